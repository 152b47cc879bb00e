// Package retrieval 实现面向教育辍学语料的检索级联：
// 相似度召回 -> 元数据关键词兜底 -> 表格优先重排 -> 领域关键词过滤 -> 来源去重。
// 级联永不返回错误：任何一级失败都降级为空结果继续往下走。
package retrieval

import (
	"context"
	"sort"
	"strconv"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/logger"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/metrics"
)

// Policy 检索级联
type Policy struct {
	store ChunkStore
	cfg   config.RetrievalConfig
}

// NewPolicy 创建检索级联
func NewPolicy(store ChunkStore, cfg config.RetrievalConfig) *Policy {
	if cfg.FetchK <= 0 {
		cfg.FetchK = 30
	}
	if cfg.MinPrimary <= 0 {
		cfg.MinPrimary = 5
	}
	if cfg.MetadataCap <= 0 {
		cfg.MetadataCap = 20
	}
	if cfg.TypePriorityCap <= 0 {
		cfg.TypePriorityCap = 15
	}
	if cfg.EvidenceCap <= 0 {
		cfg.EvidenceCap = 5
	}
	return &Policy{store: store, cfg: cfg}
}

// Retrieve 执行完整级联并返回证据集。
// 存储不可用或各级为空时返回空集，由上层决定退化路径。
func (p *Policy) Retrieve(ctx context.Context, query string) *EvidenceSet {
	log := logger.FromContext(ctx)

	candidates := p.similarityStage(ctx, query)
	if len(candidates) < p.cfg.MinPrimary {
		candidates = p.metadataStage(ctx, query, candidates)
	}
	candidates = p.tabularFirstStage(candidates)
	evidence := p.keywordFilterStage(query, candidates)

	set := &EvidenceSet{
		Chunks:  evidence,
		Sources: dedupeSources(evidence),
	}

	metrics.RetrievalEvidenceSize.WithLabelValues(strconv.FormatBool(!set.Empty())).
		Observe(float64(len(set.Chunks)))
	log.Debug("retrieval cascade finished",
		"candidates", len(candidates),
		"evidence", len(set.Chunks),
		"sources", len(set.Sources),
	)
	return set
}

// similarityStage 首轮向量相似度召回
func (p *Policy) similarityStage(ctx context.Context, query string) []document.Chunk {
	if p.store == nil {
		metrics.RetrievalStageTotal.WithLabelValues("similarity", "error").Inc()
		return nil
	}
	chunks, err := p.store.SimilaritySearch(ctx, query, p.cfg.FetchK)
	if err != nil {
		logger.FromContext(ctx).Warn("similarity search failed, cascade degrades", "error", err)
		metrics.RetrievalStageTotal.WithLabelValues("similarity", "error").Inc()
		return nil
	}
	metrics.RetrievalStageTotal.WithLabelValues("similarity", stageStatus(len(chunks))).Inc()
	return chunks
}

// metadataStage 首轮欠产时的兜底：用查询词匹配全量块的来源元数据，
// 命中的块并入候选集（去掉与首轮重复的）。
func (p *Policy) metadataStage(ctx context.Context, query string, primary []document.Chunk) []document.Chunk {
	if p.store == nil {
		metrics.RetrievalStageTotal.WithLabelValues("metadata", "error").Inc()
		return primary
	}
	all, err := p.store.ListAll(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("metadata fallback scan failed", "error", err)
		metrics.RetrievalStageTotal.WithLabelValues("metadata", "error").Inc()
		return primary
	}

	tokens := Tokens(query)
	seen := make(map[string]struct{}, len(primary))
	for _, c := range primary {
		seen[c.ID] = struct{}{}
	}

	combined := primary
	added := 0
	for _, c := range all {
		if added >= p.cfg.MetadataCap {
			break
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		meta := c.Metadata.Source + " " + c.Metadata.Filename + " " + string(c.Metadata.Type)
		if !ContainsAny(meta, tokens) {
			continue
		}
		combined = append(combined, c)
		seen[c.ID] = struct{}{}
		added++
	}
	metrics.RetrievalStageTotal.WithLabelValues("metadata", stageStatus(added)).Inc()
	return combined
}

// tabularFirstStage 表格证据排到前面（稳定排序，保持各自相对顺序），
// 再按上限截断。数值型问题的答案几乎都在表格块里。
func (p *Policy) tabularFirstStage(candidates []document.Chunk) []document.Chunk {
	if len(candidates) == 0 {
		return candidates
	}
	ordered := make([]document.Chunk, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].IsTabular() && !ordered[j].IsTabular()
	})
	if len(ordered) > p.cfg.TypePriorityCap {
		ordered = ordered[:p.cfg.TypePriorityCap]
	}
	return ordered
}

// keywordFilterStage 按查询词 + 领域词给候选打分（出现次数累加），
// 有命中时只保留得分大于零的候选并按得分降序稳定排序再截断；
// 全部零命中时退回表格优先的顺序截断。过滤永远不会把非空候选集清空。
func (p *Policy) keywordFilterStage(query string, candidates []document.Chunk) []document.Chunk {
	if len(candidates) == 0 {
		metrics.RetrievalStageTotal.WithLabelValues("keyword_filter", "empty").Inc()
		return nil
	}

	tokens := Tokens(query)
	type scored struct {
		chunk document.Chunk
		hits  int
	}
	scorers := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		hits := countHits(c.Content, tokens) + countHits(c.Content, p.cfg.DomainKeywords)
		if hits > 0 {
			scorers = append(scorers, scored{chunk: c, hits: hits})
		}
	}

	var filtered []document.Chunk
	if len(scorers) == 0 {
		filtered = candidates
	} else {
		sort.SliceStable(scorers, func(i, j int) bool {
			return scorers[i].hits > scorers[j].hits
		})
		filtered = make([]document.Chunk, 0, len(scorers))
		for _, s := range scorers {
			filtered = append(filtered, s.chunk)
		}
	}

	if len(filtered) > p.cfg.EvidenceCap {
		filtered = filtered[:p.cfg.EvidenceCap]
	}
	metrics.RetrievalStageTotal.WithLabelValues("keyword_filter", stageStatus(len(filtered))).Inc()
	return filtered
}

func stageStatus(n int) string {
	if n > 0 {
		return "hit"
	}
	return "empty"
}
