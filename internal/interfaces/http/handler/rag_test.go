package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/answer"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/retrieval"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/stats"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/interfaces/http/dto"
)

type fakeStore struct {
	chunks []document.Chunk
}

func (f *fakeStore) SimilaritySearch(_ context.Context, _ string, k int) ([]document.Chunk, error) {
	if k < len(f.chunks) {
		return f.chunks[:k], nil
	}
	return f.chunks, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]document.Chunk, error) {
	return f.chunks, nil
}

type fakeModel struct {
	reply string
	err   error
}

func (f *fakeModel) Complete(_ context.Context, _, _ string, _ float64) (string, error) {
	return f.reply, f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLM: config.LLMConfig{
			DefaultModel: "llama3",
			Models: map[string]config.ModelConfig{
				"llama3":     {Name: "Llama 3.1 (8B)", Description: "Modelo rápido y eficiente"},
				"llama3-70b": {Name: "Llama 3.3 (70B)", Description: "Modelo más potente"},
				"mixtral":    {Name: "Mistral Saba 24B", Description: "Modelo de Mistral AI"},
				"gemma":      {Name: "Gemma 2 (9B)", Description: "Modelo de Google"},
			},
		},
		Insights: config.InsightsConfig{DistinctSources: 8, MinLineRunes: 20},
		Deterministic: config.DeterministicConfig{
			DataDir: t.TempDir(),
		},
	}
}

func newTestHandler(t *testing.T, store retrieval.ChunkStore, model answer.ModelClient, loaded bool) *RAGHandler {
	t.Helper()
	cfg := testConfig(t)
	csv := answer.NewCSVAnswerer(cfg.Deterministic)
	policy := retrieval.NewPolicy(store, cfg.Retrieval)
	composer := answer.NewComposer(model, csv, cfg.Answer)
	synthesizer := answer.NewSynthesizer(store, model, cfg.Insights)
	reporter := stats.NewReporter(store)
	return NewRAGHandler(cfg, policy, composer, synthesizer, reporter, nil, loaded)
}

func newTestRouter(h *RAGHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/rag/query", h.Query)
	r.POST("/api/rag/insights", h.Insights)
	r.GET("/api/rag/stats", h.Stats)
	r.GET("/api/rag/models", h.Models)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQueryNotLoaded(t *testing.T) {
	h := newTestHandler(t, nil, &fakeModel{reply: "x"}, false)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/rag/query", gin.H{"pregunta": "hola"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Sistema RAG no inicializado")
}

func TestQueryMissingPregunta(t *testing.T) {
	h := newTestHandler(t, &fakeStore{}, &fakeModel{reply: "x"}, true)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/rag/query", gin.H{"modelo": "llama3"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, `El campo "pregunta" es requerido`, resp.Error)
}

func TestQueryEmptyPregunta(t *testing.T) {
	h := newTestHandler(t, &fakeStore{}, &fakeModel{reply: "x"}, true)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/rag/query", gin.H{"pregunta": "   "})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "La pregunta no puede estar vacía", resp.Error)
}

func TestQueryGrounded(t *testing.T) {
	store := &fakeStore{chunks: []document.Chunk{
		{
			ID: "1",
			Content: "En 2022 los estudiantes universitarios del Ecuador registraron una " +
				"tasa de deserción del 15.3% según las cifras oficiales publicadas por la autoridad educativa.",
			Metadata: document.Metadata{Source: "/docs/informe.pdf", Type: document.TypePDF},
		},
	}}
	h := newTestHandler(t, store, &fakeModel{reply: "La tasa de deserción fue del 15.3% en 2022."}, true)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/rag/query", gin.H{"pregunta": "situación de los estudiantes universitarios"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "llama3", resp.Modelo)
	assert.Equal(t, "La tasa de deserción fue del 15.3% en 2022.", resp.Respuesta)
	assert.Equal(t, []string{"informe.pdf"}, resp.Sources)
	assert.True(t, resp.Metadata.UsedRAGContext)
	assert.Equal(t, 1, resp.Metadata.DocsFound)
}

func TestModelsCatalogOrder(t *testing.T) {
	h := newTestHandler(t, &fakeStore{}, &fakeModel{reply: "x"}, true)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/api/rag/models", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ModelsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Models, 4)
	// 默认模型排第一，其余按 ID 排序
	assert.Equal(t, "llama3", resp.Models[0].ID)
	assert.Equal(t, "gemma", resp.Models[1].ID)
	assert.Equal(t, "llama3-70b", resp.Models[2].ID)
	assert.Equal(t, "mixtral", resp.Models[3].ID)
	assert.Equal(t, "Llama 3.1 (8B)", resp.Models[0].Name)
}

func TestStatsNotLoaded(t *testing.T) {
	h := newTestHandler(t, nil, &fakeModel{reply: "x"}, false)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/api/rag/stats", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Sistema RAG no inicializado", body["error"])
	// 统计端点的错误体只有 error 字段
	assert.NotContains(t, body, "success")
}

func TestStatsAggregation(t *testing.T) {
	store := &fakeStore{chunks: []document.Chunk{
		{ID: "1", Content: "a", Metadata: document.Metadata{Source: "/d/resumen.csv", Type: document.TypeCSV}},
		{ID: "2", Content: "b", Metadata: document.Metadata{Source: "/d/resumen.csv", Type: document.TypeCSV}},
		{ID: "3", Content: "c", Metadata: document.Metadata{Source: "/d/informe.pdf", Type: document.TypePDF}},
	}}
	h := newTestHandler(t, store, &fakeModel{reply: "x"}, true)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/api/rag/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var report stats.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 2, report.TotalDocumentos)
	assert.Equal(t, 3, report.TotalChunks)
}

func TestInsightsNotLoaded(t *testing.T) {
	h := newTestHandler(t, nil, &fakeModel{reply: "x"}, false)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/rag/insights", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Sistema RAG no inicializado", resp.Error)
}

func TestInsightsModelFailureReturnedNotFrozen(t *testing.T) {
	store := &fakeStore{chunks: []document.Chunk{
		{ID: "1", Content: "datos de deserción", Metadata: document.Metadata{Source: "/d/resumen.csv"}},
	}}
	h := newTestHandler(t, store, &fakeModel{err: errors.New("model unavailable")}, true)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/rag/insights", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp answer.InsightsResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestCacheableInsights(t *testing.T) {
	ok := &answer.InsightsResult{Success: true, Insights: []string{"a", "b", "c"}}
	v, err := cacheableInsights(ok)
	require.NoError(t, err)
	assert.Equal(t, ok, v)

	// 失败结果和空结果都不允许进缓存
	_, err = cacheableInsights(&answer.InsightsResult{Success: false, Error: "model unavailable"})
	assert.ErrorIs(t, err, errInsightsNotCacheable)
	_, err = cacheableInsights(nil)
	assert.ErrorIs(t, err, errInsightsNotCacheable)
}

func TestInsightsSuccess(t *testing.T) {
	store := &fakeStore{chunks: []document.Chunk{
		{ID: "1", Content: "datos de deserción", Metadata: document.Metadata{Source: "/d/resumen.csv"}},
		{ID: "2", Content: "datos por sexo", Metadata: document.Metadata{Source: "/d/sexo.csv"}},
	}}
	reply := "1. La tasa de deserción universitaria fue de 15.3% en 2022\n" +
		"2. Los hombres abandonaron en mayor proporción que las mujeres\n" +
		"3. Las instituciones públicas concentran la mayor parte de la matrícula"
	h := newTestHandler(t, store, &fakeModel{reply: reply}, true)
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/rag/insights", gin.H{"modelo": "gemma"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp answer.InsightsResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Insights, 3)
	assert.Equal(t, []string{"resumen.csv", "sexo.csv"}, resp.Sources)
}
