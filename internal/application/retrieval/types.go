package retrieval

import "github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"

// EvidenceSet 检索级联的产出：有序证据块与去重后的来源列表
type EvidenceSet struct {
	Chunks  []document.Chunk
	Sources []string
}

// Empty 是否没有任何证据
func (e *EvidenceSet) Empty() bool {
	return e == nil || len(e.Chunks) == 0
}

// JoinContents 按序拼接证据内容，单块之间以分隔符分隔，
// 超出 budget（按 rune 计）时截断。
func (e *EvidenceSet) JoinContents(budget int) string {
	if e.Empty() {
		return ""
	}
	var sb []rune
	for i, c := range e.Chunks {
		piece := []rune(c.Content)
		if i > 0 {
			sb = append(sb, []rune("\n\n")...)
		}
		sb = append(sb, piece...)
		if len(sb) >= budget {
			return string(sb[:budget])
		}
	}
	return string(sb)
}

// dedupeSources 按文件名去重，保留首次出现顺序
func dedupeSources(chunks []document.Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		name := c.Basename()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
