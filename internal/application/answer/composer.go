// Package answer 实现回答组装管线：确定性 CSV 路由、有据生成、
// 通识兜底与哨兵触发的确定性救援。
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/retrieval"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/logger"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/metrics"
)

// 通识兜底生效所需的最小上下文长度
const minGroundedContext = 100

// ModelClient 生成模型端口。实现方内部负责调用约定回退与超时，
// 两种约定都失败才返回错误。
type ModelClient interface {
	Complete(ctx context.Context, modelID, prompt string, temperature float64) (string, error)
}

// Metadata 回答的可观测性标记
type Metadata struct {
	DocsFound      int    `json:"docs_found"`
	UsedRAGContext bool   `json:"used_rag_context"`
	CSVDirect      bool   `json:"csv_direct,omitempty"`
	Fallback       bool   `json:"fallback,omitempty"`
	KnowledgeType  string `json:"knowledge_type,omitempty"`
	CSVDocs        int    `json:"csv_docs"`
	OtherDocs      int    `json:"other_docs"`
}

// Result 一次查询的完整产出
type Result struct {
	Answer   string
	Sources  []string
	Metadata Metadata
}

// Composer 回答组装器
type Composer struct {
	llm ModelClient
	csv *CSVAnswerer
	cfg config.AnswerConfig
}

// NewComposer 创建回答组装器
func NewComposer(llm ModelClient, csv *CSVAnswerer, cfg config.AnswerConfig) *Composer {
	if cfg.PromptBudget <= 0 {
		cfg.PromptBudget = 1800
	}
	return &Composer{llm: llm, csv: csv, cfg: cfg}
}

// Compose 组装对查询的回答。管线自身永不返回错误：
// 模型失败降级为错误描述串，检索落空降级为通识回答。
func (c *Composer) Compose(ctx context.Context, query, modelID string, ev *retrieval.EvidenceSet) *Result {
	log := logger.FromContext(ctx)

	// 1. 确定性优先路由：已知数值事实不交给模型改写
	if intent := c.csv.Route(query); intent != IntentNone {
		if text, ok := c.csv.Answer(ctx, intent); ok && text != "" {
			log.Info("query answered deterministically", "intent", int(intent))
			metrics.AnswerTotal.WithLabelValues("csv_direct").Inc()
			return &Result{
				Answer:  text,
				Sources: c.csv.Sources(),
				Metadata: Metadata{
					DocsFound:      evLen(ev),
					UsedRAGContext: false,
					CSVDirect:      true,
					CSVDocs:        countTabular(ev),
					OtherDocs:      evLen(ev) - countTabular(ev),
				},
			}
		}
	}

	// 2. 零证据：退化为通识回答，显式打上"无据"标记
	if ev.Empty() {
		return c.generalAnswer(ctx, query, modelID)
	}

	// 3. 有据提示词构造
	contextText := ev.JoinContents(c.cfg.PromptBudget)
	prompt := buildGroundedPrompt(contextText, query)

	// 4. 模型调用（调用约定回退在 ModelClient 内部完成）
	text, err := c.llm.Complete(ctx, modelID, prompt, c.cfg.GroundedTemperature)
	if err != nil {
		log.Warn("model call failed on both conventions", "model", modelID, "error", err)
		metrics.AnswerTotal.WithLabelValues("degraded").Inc()
		text = fmt.Sprintf("Error al invocar el modelo: %v", err)
		return c.groundedResult(text, ev, contextText, false)
	}

	// 5. 哨兵触发的确定性救援：空回答或模型自认信息不足时
	// 尝试一次确定性路径。查询没有具体意图时退而求其次用汇总意图。
	if isInsufficient(text) {
		intent := c.csv.Route(query)
		if intent == IntentNone {
			intent = IntentOverview
		}
		if rescued, ok := c.csv.Answer(ctx, intent); ok && rescued != "" {
			log.Info("sentinel answer rescued deterministically")
			metrics.AnswerTotal.WithLabelValues("rescue").Inc()
			r := c.groundedResult(rescued, ev, contextText, true)
			r.Sources = c.csv.Sources()
			return r
		}
	}

	metrics.AnswerTotal.WithLabelValues("grounded").Inc()
	return c.groundedResult(text, ev, contextText, false)
}

// generalAnswer 通识兜底：宽松提示词 + 较高温度
func (c *Composer) generalAnswer(ctx context.Context, query, modelID string) *Result {
	text, err := c.llm.Complete(ctx, modelID, buildGeneralPrompt(query), c.cfg.GeneralTemperature)
	if err != nil {
		logger.FromContext(ctx).Warn("general-knowledge fallback model call failed", "error", err)
		metrics.AnswerTotal.WithLabelValues("degraded").Inc()
		text = fmt.Sprintf("Error al invocar el modelo: %v", err)
	} else {
		metrics.AnswerTotal.WithLabelValues("general").Inc()
	}
	return &Result{
		Answer:  text,
		Sources: []string{},
		Metadata: Metadata{
			DocsFound:      0,
			UsedRAGContext: false,
			KnowledgeType:  "general",
		},
	}
}

func (c *Composer) groundedResult(text string, ev *retrieval.EvidenceSet, contextText string, rescued bool) *Result {
	csvDocs := countTabular(ev)
	return &Result{
		Answer:  text,
		Sources: ev.Sources,
		Metadata: Metadata{
			DocsFound:      len(ev.Chunks),
			UsedRAGContext: !ev.Empty() && len([]rune(contextText)) > minGroundedContext,
			Fallback:       rescued,
			CSVDocs:        csvDocs,
			OtherDocs:      len(ev.Chunks) - csvDocs,
		},
	}
}

// isInsufficient 判断模型回答是否为空或命中信息不足哨兵
func isInsufficient(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	return strings.Contains(retrieval.Normalize(trimmed), retrieval.Normalize(Sentinel))
}

func evLen(ev *retrieval.EvidenceSet) int {
	if ev == nil {
		return 0
	}
	return len(ev.Chunks)
}

func countTabular(ev *retrieval.EvidenceSet) int {
	if ev == nil {
		return 0
	}
	n := 0
	for _, c := range ev.Chunks {
		if c.IsTabular() {
			n++
		}
	}
	return n
}
