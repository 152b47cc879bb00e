package answer

import (
	"context"
	"regexp"
	"strings"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/retrieval"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/logger"
)

// 洞察合成要求的结论数量
const insightCount = 3

// 洞察调用温度：介于有据和通识之间
const insightTemperature = 0.3

// 行首枚举标记（1. / 1) / - / * / •）
var enumMarker = regexp.MustCompile(`^\s*(\d+[.)]|[-*•])\s*`)

// InsightsCacheKey 返回某个模型的洞察结果缓存键。
// 重新摄取语料后按此键失效。
func InsightsCacheKey(modelID string) string {
	return "rag:insights:" + modelID
}

// InsightsResult 洞察合成产出。要么恰好 3 条，要么 0 条，
// 绝不返回残缺列表。
type InsightsResult struct {
	Success  bool     `json:"success"`
	Insights []string `json:"insights"`
	Sources  []string `json:"sources"`
	Error    string   `json:"error,omitempty"`
}

// Synthesizer 语料洞察合成器。不走查询驱动的相似度检索，
// 而是每个来源取一个块直到覆盖 N 个不同来源，求广度不求深度。
type Synthesizer struct {
	store retrieval.ChunkStore
	llm   ModelClient
	cfg   config.InsightsConfig
}

// NewSynthesizer 创建洞察合成器
func NewSynthesizer(store retrieval.ChunkStore, llm ModelClient, cfg config.InsightsConfig) *Synthesizer {
	if cfg.DistinctSources <= 0 {
		cfg.DistinctSources = 8
	}
	if cfg.MinLineRunes <= 0 {
		cfg.MinLineRunes = 20
	}
	return &Synthesizer{store: store, llm: llm, cfg: cfg}
}

// Synthesize 对全库采样并生成恰好 3 条结论
func (s *Synthesizer) Synthesize(ctx context.Context, modelID string) *InsightsResult {
	log := logger.FromContext(ctx)

	samples, sources := s.sample(ctx)
	if len(samples) == 0 {
		return &InsightsResult{
			Success:  false,
			Insights: []string{},
			Sources:  []string{},
			Error:    "No hay datos en el sistema RAG para analizar",
		}
	}

	raw, err := s.llm.Complete(ctx, modelID, buildInsightsPrompt(samples), insightTemperature)
	if err != nil {
		log.Warn("insight synthesis model call failed", "model", modelID, "error", err)
		return &InsightsResult{
			Success:  false,
			Insights: []string{},
			Sources:  []string{},
			Error:    err.Error(),
		}
	}

	insights := parseInsights(raw, s.cfg.MinLineRunes)
	if len(insights) < insightCount {
		log.Warn("insight synthesis produced a degenerate list", "parsed", len(insights))
		return &InsightsResult{
			Success:  false,
			Insights: []string{},
			Sources:  []string{},
			Error:    "El modelo no produjo hallazgos válidos",
		}
	}

	return &InsightsResult{
		Success:  true,
		Insights: insights[:insightCount],
		Sources:  sources,
	}
}

// sample 每个不同来源取一个块，直到覆盖配置的来源数
func (s *Synthesizer) sample(ctx context.Context) ([]string, []string) {
	if s.store == nil {
		return nil, nil
	}
	all, err := s.store.ListAll(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("insight sampling scan failed", "error", err)
		return nil, nil
	}

	seen := make(map[string]struct{}, s.cfg.DistinctSources)
	var samples []string
	var sources []string
	for _, c := range all {
		if len(sources) >= s.cfg.DistinctSources {
			break
		}
		name := c.Basename()
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		samples = append(samples, c.Content)
		sources = append(sources, name)
	}
	return samples, sources
}

// parseInsights 去掉行首枚举标记，丢弃过短的退化行
func parseInsights(raw string, minRunes int) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(enumMarker.ReplaceAllString(line, ""))
		if len([]rune(line)) < minRunes {
			continue
		}
		out = append(out, line)
	}
	return out
}
