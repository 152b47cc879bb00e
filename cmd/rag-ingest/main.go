// Package main 语料摄取命令入口
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/answer"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/ingest"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/stats"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/infrastructure/embedding"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/infrastructure/persistence/milvus"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/infrastructure/persistence/redis"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting rag-ingest",
		"roots", cfg.Ingest.Roots,
		"collection", cfg.Vector.Milvus.Collection,
	)

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Fatal(ctx, "failed to connect milvus", err)
	}
	defer func() {
		if err := milvusClient.Close(); err != nil {
			log.Error("failed to close milvus client", "error", err)
		}
	}()

	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "failed to init embedder", err)
	}

	store := milvus.NewStore(milvusClient, embedder, &cfg.Vector.Milvus, cfg.Embedding.BatchSize)

	// 重建集合：重新摄取是替换而不是增量更新
	if err := store.Reset(ctx); err != nil {
		logger.Fatal(ctx, "failed to reset collection", err)
	}

	start := time.Now()
	pipeline := ingest.NewPipeline(store, cfg.Ingest)
	summary, err := pipeline.Run(ctx)
	if err != nil {
		logger.Fatal(ctx, "ingestion failed", err)
	}

	// 语料换了，API 进程缓存的统计和洞察全部失效
	invalidateCaches(ctx, cfg)

	log.Info("ingestion finished",
		"documents", summary.Documents,
		"chunks", summary.Chunks,
		"batches", summary.Batches,
		"elapsed", time.Since(start).String(),
	)
}

// invalidateCaches 删除按语料内容派生的缓存键。
// redis 连不上只告警：缓存最迟在 TTL 后自行过期。
func invalidateCaches(ctx context.Context, cfg *config.Config) {
	if !cfg.Cache.Enabled {
		return
	}
	log := logger.FromContext(ctx)

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		log.Warn("redis unavailable, stale caches expire by ttl", "error", err)
		return
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close redis client", "error", err)
		}
	}()

	keys := []string{stats.CacheKey}
	for id := range cfg.LLM.Models {
		keys = append(keys, answer.InsightsCacheKey(id))
	}
	if err := redis.NewCache(redisClient).Delete(ctx, keys...); err != nil {
		log.Warn("cache invalidation failed, stale caches expire by ttl", "error", err)
		return
	}
	log.Info("corpus caches invalidated", "keys", len(keys))
}
