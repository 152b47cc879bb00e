package answer

import (
	"fmt"
	"strings"
)

// Sentinel 信息不足哨兵串。有据提示词要求模型在上下文不够时
// 逐字输出这句话，回答校验按大小写不敏感的子串匹配识别它。
const Sentinel = "No tengo suficiente información."

// buildGroundedPrompt 构造有据提示词：只许用上下文回答，不够就输出哨兵串
func buildGroundedPrompt(contextText, query string) string {
	var sb strings.Builder
	sb.WriteString("Responde SOLAMENTE usando la información del contexto. ")
	sb.WriteString("Si no encuentras la respuesta, contesta: '")
	sb.WriteString(Sentinel)
	sb.WriteString("'\n\n")
	sb.WriteString("Contexto:\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\nPregunta: ")
	sb.WriteString(query)
	sb.WriteString("\n\nRespuesta:")
	return sb.String()
}

// buildGeneralPrompt 构造无上下文的通识提示词（检索完全落空时的退化路径）
func buildGeneralPrompt(query string) string {
	return fmt.Sprintf(
		"Eres un asistente experto en educación superior y deserción universitaria en Ecuador. "+
			"Responde la siguiente pregunta con tu conocimiento general, de forma clara y concisa.\n\n"+
			"Pregunta: %s\n\nRespuesta:", query)
}

// buildInsightsPrompt 构造洞察提示词：要求输出恰好 3 条编号结论
func buildInsightsPrompt(samples []string) string {
	var sb strings.Builder
	sb.WriteString("Analiza los siguientes fragmentos de datos sobre deserción universitaria ")
	sb.WriteString("y genera EXACTAMENTE 3 hallazgos clave, numerados del 1 al 3. ")
	sb.WriteString("Cada hallazgo debe ser una oración completa basada en los datos.\n\n")
	sb.WriteString("Datos:\n")
	for i, s := range samples {
		sb.WriteString(fmt.Sprintf("--- Fragmento %d ---\n%s\n\n", i+1, s))
	}
	sb.WriteString("Hallazgos:")
	return sb.String()
}
