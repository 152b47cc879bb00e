package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/metrics"
)

// Store 语料块存储：封装向量化、集合管理与查询。
// 同时服务在线检索（SimilaritySearch/ListAll）和离线摄取（Upsert）。
type Store struct {
	client     *Client
	embedder   embedding.Embedder
	cfg        *config.MilvusConfig
	embedBatch int
}

// NewStore 创建语料块存储
func NewStore(client *Client, embedder embedding.Embedder, cfg *config.MilvusConfig, embedBatch int) *Store {
	if embedBatch <= 0 {
		embedBatch = 32
	}
	return &Store{client: client, embedder: embedder, cfg: cfg, embedBatch: embedBatch}
}

// EnsureCollection 确保集合与索引可用（不存在则创建）。
// 约束：不做 drop/rebuild 等破坏性操作。
func (s *Store) EnsureCollection(ctx context.Context) error {
	if s == nil || s.client == nil || s.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := s.client.HasCollection(ctx, s.cfg.Collection)
	if err != nil {
		return err
	}
	if !exists {
		schema := ChunksSchema(s.cfg.Collection, s.cfg.Dimension)
		if err := s.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		if err := s.createIndex(ctx); err != nil {
			return err
		}
	}

	return s.client.LoadCollection(ctx, s.cfg.Collection)
}

// Reset 清空并重建集合。重新摄取是替换而不是更新。
func (s *Store) Reset(ctx context.Context) error {
	if s == nil || s.client == nil || s.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	exists, err := s.client.HasCollection(ctx, s.cfg.Collection)
	if err != nil {
		return err
	}
	if exists {
		if err := s.client.milvus.DropCollection(ctx, s.cfg.Collection); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	return s.EnsureCollection(ctx)
}

func (s *Store) createIndex(ctx context.Context) error {
	idx, err := entity.NewIndexHNSW(
		entity.MetricType(s.cfg.MetricType),
		s.cfg.HNSWM,
		s.cfg.HNSWEfConstruction,
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := s.client.milvus.CreateIndex(ctx, s.cfg.Collection, "vector", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Upsert 向量化并写入一批语料块
func (s *Store) Upsert(ctx context.Context, chunks []document.Chunk) error {
	if s == nil || s.client == nil || s.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	if len(chunks) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "milvus.Upsert",
		trace.WithAttributes(attribute.Int("count", len(chunks))))
	defer span.End()

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	vectors, err := s.embedAll(ctx, contents)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	ids := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	types := make([]string, len(chunks))
	filenames := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		sources[i] = c.Metadata.Source
		types[i] = string(c.Metadata.Type)
		filenames[i] = c.Metadata.Filename
	}

	_, err = s.client.milvus.Insert(ctx, s.cfg.Collection, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector("vector", s.cfg.Dimension, vectors),
		entity.NewColumnVarChar("source", sources),
		entity.NewColumnVarChar("source_type", types),
		entity.NewColumnVarChar("filename", filenames),
		entity.NewColumnVarChar("content", contents),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

// SimilaritySearch 按查询文本做向量相似度召回
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]document.Chunk, error) {
	if s == nil || s.client == nil || s.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SimilaritySearch",
		trace.WithAttributes(attribute.Int("top_k", k)))
	defer span.End()

	vectors, err := s.embedAll(ctx, []string{query})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	began := time.Now()
	results, err := s.client.milvus.Search(ctx,
		s.cfg.Collection,
		nil,
		"",
		[]string{"id", "source", "source_type", "filename", "content"},
		[]entity.Vector{entity.FloatVector(vectors[0])},
		"vector",
		entity.MetricType(s.cfg.MetricType),
		k,
		sp,
	)
	metrics.MilvusSearchDuration.WithLabelValues(s.cfg.Collection).Observe(time.Since(began).Seconds())
	if err != nil {
		metrics.MilvusSearchTotal.WithLabelValues(s.cfg.Collection, "error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	metrics.MilvusSearchTotal.WithLabelValues(s.cfg.Collection, "ok").Inc()

	var chunks []document.Chunk
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			chunk := document.Chunk{}
			if col, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				chunk.ID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("source").(*entity.ColumnVarChar); ok {
				chunk.Metadata.Source = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("source_type").(*entity.ColumnVarChar); ok {
				chunk.Metadata.Type = document.SourceType(col.Data()[i])
			}
			if col, ok := result.Fields.GetColumn("filename").(*entity.ColumnVarChar); ok {
				chunk.Metadata.Filename = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("content").(*entity.ColumnVarChar); ok {
				chunk.Content = col.Data()[i]
			}
			chunks = append(chunks, chunk)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(chunks)))
	return chunks, nil
}

// ListAll 全量拉取语料块（元数据兜底与统计用）
func (s *Store) ListAll(ctx context.Context) ([]document.Chunk, error) {
	if s == nil || s.client == nil || s.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.ListAll")
	defer span.End()

	rs, err := s.client.milvus.Query(ctx,
		s.cfg.Collection,
		nil,
		`id != ""`,
		[]string{"id", "source", "source_type", "filename", "content"},
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	var (
		ids, sources, types, filenames, contents []string
	)
	for _, col := range rs {
		vc, ok := col.(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		switch col.Name() {
		case "id":
			ids = vc.Data()
		case "source":
			sources = vc.Data()
		case "source_type":
			types = vc.Data()
		case "filename":
			filenames = vc.Data()
		case "content":
			contents = vc.Data()
		}
	}

	chunks := make([]document.Chunk, 0, len(ids))
	for i := range ids {
		chunk := document.Chunk{ID: ids[i]}
		if i < len(sources) {
			chunk.Metadata.Source = sources[i]
		}
		if i < len(types) {
			chunk.Metadata.Type = document.SourceType(types[i])
		}
		if i < len(filenames) {
			chunk.Metadata.Filename = filenames[i]
		}
		if i < len(contents) {
			chunk.Content = contents[i]
		}
		chunks = append(chunks, chunk)
	}

	span.SetAttributes(attribute.Int("result_count", len(chunks)))
	return chunks, nil
}

// embedAll 分批向量化并转为 float32
func (s *Store) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.embedBatch {
		end := start + s.embedBatch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := s.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for _, v := range vectors {
			f32 := make([]float32, len(v))
			for i, x := range v {
				f32[i] = float32(x)
			}
			out = append(out, f32)
		}
	}
	return out, nil
}
