package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/answer"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/retrieval"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/stats"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/infrastructure/persistence/redis"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/interfaces/http/dto"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/logger"
)

const (
	notLoadedQueryMsg = "Sistema RAG no inicializado. Verifica que la colección de vectores existe."
	notLoadedMsg      = "Sistema RAG no inicializado"
)

// 失败的洞察结果不进缓存，让后续请求有机会重试
var errInsightsNotCacheable = errors.New("insights synthesis failed")

// RAGHandler 问答服务处理器
type RAGHandler struct {
	cfg         *config.Config
	policy      *retrieval.Policy
	composer    *answer.Composer
	synthesizer *answer.Synthesizer
	reporter    *stats.Reporter
	cache       *redis.Cache
	ragLoaded   bool
}

// NewRAGHandler 创建问答服务处理器。
// cache 可为 nil，此时统计和洞察直接落库查询。
func NewRAGHandler(
	cfg *config.Config,
	policy *retrieval.Policy,
	composer *answer.Composer,
	synthesizer *answer.Synthesizer,
	reporter *stats.Reporter,
	cache *redis.Cache,
	ragLoaded bool,
) *RAGHandler {
	return &RAGHandler{
		cfg:         cfg,
		policy:      policy,
		composer:    composer,
		synthesizer: synthesizer,
		reporter:    reporter,
		cache:       cache,
		ragLoaded:   ragLoaded,
	}
}

// Query 问答接口
// @Summary RAG 问答
// @Description 对教育语料执行检索增强问答
// @Tags RAG
// @Accept json
// @Produce json
// @Param request body dto.QueryRequest true "问答请求"
// @Success 200 {object} dto.QueryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/rag/query [post]
func (h *RAGHandler) Query(c *gin.Context) {
	if !h.ragLoaded {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(notLoadedQueryMsg))
		return
	}

	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Pregunta == nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(`El campo "pregunta" es requerido`))
		return
	}

	pregunta := *req.Pregunta
	if strings.TrimSpace(pregunta) == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("La pregunta no puede estar vacía"))
		return
	}

	modelo := req.Modelo
	if modelo == "" {
		modelo = h.cfg.LLM.DefaultModel
	}

	ctx := c.Request.Context()
	ctx = logger.WithContext(ctx, logger.ModelKey, modelo)

	evidence := h.policy.Retrieve(ctx, pregunta)
	result := h.composer.Compose(ctx, pregunta, modelo, evidence)

	c.JSON(http.StatusOK, dto.QueryResponse{
		Success:   true,
		Pregunta:  pregunta,
		Respuesta: result.Answer,
		Sources:   result.Sources,
		Metadata:  result.Metadata,
		Modelo:    modelo,
	})
}

// Insights 洞察接口
// @Summary 语料洞察
// @Description 扫描语料并生成三条量化发现
// @Tags RAG
// @Accept json
// @Produce json
// @Param request body dto.InsightsRequest false "洞察请求"
// @Success 200 {object} answer.InsightsResult
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/rag/insights [post]
func (h *RAGHandler) Insights(c *gin.Context) {
	if !h.ragLoaded {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(notLoadedMsg))
		return
	}

	// 请求体可省略
	var req dto.InsightsRequest
	_ = c.ShouldBindJSON(&req)

	modelo := req.Modelo
	if modelo == "" {
		modelo = h.cfg.LLM.DefaultModel
	}

	ctx := c.Request.Context()
	ctx = logger.WithContext(ctx, logger.ModelKey, modelo)

	if h.cache != nil {
		var failed *answer.InsightsResult
		payload, err := h.cache.GetOrLoadSafe(ctx, answer.InsightsCacheKey(modelo), h.cfg.Cache.InsightsTTL, func() (interface{}, error) {
			res := h.synthesizer.Synthesize(ctx, modelo)
			v, err := cacheableInsights(res)
			if err != nil {
				failed = res
			}
			return v, err
		})
		if err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
			return
		}
		// 失败结果原样返回但不缓存，下一次请求重新合成
		if failed != nil {
			c.JSON(http.StatusOK, failed)
			return
		}
		logger.Error(ctx, "insights cache read failed", err)
	}

	c.JSON(http.StatusOK, h.synthesizer.Synthesize(ctx, modelo))
}

// cacheableInsights 只放行成功结果进缓存；失败结果（模型瞬时故障、
// 空语料、退化列表）缓存整个 TTL 会把故障冻结给所有调用方
func cacheableInsights(res *answer.InsightsResult) (interface{}, error) {
	if res == nil || !res.Success {
		return nil, errInsightsNotCacheable
	}
	return res, nil
}

// Stats 语料统计接口
// @Summary 语料统计
// @Description 按来源文件聚合的语料统计信息
// @Tags RAG
// @Produce json
// @Success 200 {object} stats.Report
// @Failure 503 {object} dto.StatsErrorResponse
// @Router /api/rag/stats [get]
func (h *RAGHandler) Stats(c *gin.Context) {
	if !h.ragLoaded {
		c.JSON(http.StatusServiceUnavailable, dto.StatsErrorResponse{Error: notLoadedMsg})
		return
	}

	ctx := c.Request.Context()

	if h.cache != nil {
		payload, err := h.cache.GetOrLoadSafe(ctx, stats.CacheKey, h.cfg.Cache.StatsTTL, func() (interface{}, error) {
			return h.reporter.CorpusStats(ctx)
		})
		if err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
			return
		}
		logger.Error(ctx, "stats cache read failed", err)
	}

	report, err := h.reporter.CorpusStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.StatsErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Models 模型目录接口
// @Summary 可用模型列表
// @Description 返回配置的生成模型目录
// @Tags RAG
// @Produce json
// @Success 200 {object} dto.ModelsResponse
// @Router /api/rag/models [get]
func (h *RAGHandler) Models(c *gin.Context) {
	infos := make([]dto.ModelInfo, 0, len(h.cfg.LLM.Models))
	for id, m := range h.cfg.LLM.Models {
		infos = append(infos, dto.ModelInfo{
			ID:          id,
			Name:        m.Name,
			Description: m.Description,
		})
	}

	// 目录顺序固定：默认模型在前，其余按 ID 排序
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].ID == h.cfg.LLM.DefaultModel {
			return infos[j].ID != h.cfg.LLM.DefaultModel
		}
		if infos[j].ID == h.cfg.LLM.DefaultModel {
			return false
		}
		return infos[i].ID < infos[j].ID
	})

	c.JSON(http.StatusOK, dto.ModelsResponse{Models: infos})
}
