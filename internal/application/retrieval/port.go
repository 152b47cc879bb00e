package retrieval

import (
	"context"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
)

// ChunkStore 检索级联依赖的语料存储端口
type ChunkStore interface {
	// SimilaritySearch 按查询文本做向量相似度召回，返回最多 k 个块
	SimilaritySearch(ctx context.Context, query string, k int) ([]document.Chunk, error)
	// ListAll 全量拉取语料块（元数据兜底与统计用）
	ListAll(ctx context.Context) ([]document.Chunk, error)
}
