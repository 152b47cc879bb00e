// Package ingest 实现离线摄取管线：装载多来源文档、递归切分、
// 顺序分批入库。单写者批处理，批间不并发，控制内存占用并
// 尊重嵌入服务的限流。
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
	pkgerrors "github.com/SKEIILATT/ProyectoLP-2P/pkg/errors"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/logger"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/metrics"
)

// Upserter 摄取管线的入库端口
type Upserter interface {
	Upsert(ctx context.Context, chunks []document.Chunk) error
}

// Summary 一次摄取的汇总
type Summary struct {
	Documents int
	Chunks    int
	Batches   int
}

// Pipeline 摄取管线
type Pipeline struct {
	loader   *Loader
	splitter *Splitter
	store    Upserter
	batch    int
}

// NewPipeline 创建摄取管线
func NewPipeline(store Upserter, cfg config.IngestConfig) *Pipeline {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 150
	}
	return &Pipeline{
		loader:   NewLoader(cfg.Roots),
		splitter: NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MaxChunkRunes),
		store:    store,
		batch:    batch,
	}
}

// Run 执行完整摄取：装载、切分、顺序分批入库
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	log := logger.FromContext(ctx)

	docs := p.loader.LoadAll(ctx)
	chunks := p.SplitAll(docs)
	log.Info("documents split into chunks", "documents", len(docs), "chunks", len(chunks))

	batches := 0
	for start := 0; start < len(chunks); start += p.batch {
		end := start + p.batch
		if end > len(chunks) {
			end = len(chunks)
		}
		began := time.Now()
		if err := p.store.Upsert(ctx, chunks[start:end]); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeIngestFailed, "batch upsert failed").
				WithDetail(fmt.Sprintf("batch %d", batches))
		}
		metrics.IngestBatchDuration.Observe(time.Since(began).Seconds())
		batches++
		log.Info("batch upserted", "batch", batches, "chunks", end-start)
	}

	for _, c := range chunks {
		metrics.IngestChunksTotal.WithLabelValues(string(c.Metadata.Type)).Inc()
	}
	return &Summary{Documents: len(docs), Chunks: len(chunks), Batches: batches}, nil
}

// SplitAll 切分全部文档并为每个块分配稳定 ID
func (p *Pipeline) SplitAll(docs []SourceDocument) []document.Chunk {
	var chunks []document.Chunk
	for _, d := range docs {
		for _, piece := range p.splitter.Split(d.Content) {
			chunks = append(chunks, document.Chunk{
				ID:       uuid.NewString(),
				Content:  piece,
				Metadata: d.Metadata,
			})
		}
	}
	return chunks
}
