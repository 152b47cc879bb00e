// Package main RAG 问答服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/answer"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/retrieval"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/stats"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/infrastructure/embedding"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/infrastructure/llm"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/infrastructure/persistence/milvus"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/infrastructure/persistence/redis"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/interfaces/http/handler"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/interfaces/http/router"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/logger"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/tracer"

	"github.com/joho/godotenv"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
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
	log.Info("starting rag-api",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 向量库加载失败不退出：服务降级运行，问答端点返回 503
	var chunkStore retrieval.ChunkStore
	ragLoaded := false

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		log.Warn("milvus unavailable, running in degraded mode", "error", err)
		milvusClient = nil
	} else {
		defer func() {
			if err := milvusClient.Close(); err != nil {
				log.Error("failed to close milvus client", "error", err)
			}
		}()

		embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
		if err != nil {
			log.Warn("embedder init failed, running in degraded mode", "error", err)
		} else {
			store := milvus.NewStore(milvusClient, embedder, &cfg.Vector.Milvus, cfg.Embedding.BatchSize)
			if err := store.EnsureCollection(ctx); err != nil {
				log.Warn("collection load failed, running in degraded mode", "error", err)
			} else {
				chunkStore = store
				ragLoaded = true
			}
		}
	}

	// Redis 缓存可选，连不上直接落库查询
	var redisClient *redis.Client
	var cache *redis.Cache
	if cfg.Cache.Enabled {
		redisClient, err = redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			log.Warn("redis unavailable, cache disabled", "error", err)
			redisClient = nil
		} else {
			cache = redis.NewCache(redisClient)
			defer func() {
				if err := redisClient.Close(); err != nil {
					log.Error("failed to close redis client", "error", err)
				}
			}()
		}
	}

	// 组装应用服务
	factory := llm.NewEinoFactory(cfg)
	invoker := llm.NewInvoker(factory)
	csv := answer.NewCSVAnswerer(cfg.Deterministic)
	policy := retrieval.NewPolicy(chunkStore, cfg.Retrieval)
	composer := answer.NewComposer(invoker, csv, cfg.Answer)
	synthesizer := answer.NewSynthesizer(chunkStore, invoker, cfg.Insights)
	reporter := stats.NewReporter(chunkStore)

	r := router.New(cfg, router.Handlers{
		Health: handler.NewHealthHandler(milvusClient, redisClient, ragLoaded),
		RAG:    handler.NewRAGHandler(cfg, policy, composer, synthesizer, reporter, cache, ragLoaded),
	})

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr, "rag_loaded", ragLoaded)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
