// Package dto 定义 HTTP 请求和响应结构
package dto

import "github.com/SKEIILATT/ProyectoLP-2P/internal/application/answer"

// QueryResponse 问答响应
type QueryResponse struct {
	Success   bool            `json:"success"`
	Pregunta  string          `json:"pregunta"`
	Respuesta string          `json:"respuesta"`
	Sources   []string        `json:"sources"`
	Metadata  answer.Metadata `json:"metadata"`
	Modelo    string          `json:"modelo"`
}

// ModelInfo 可选模型目录项
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModelsResponse 模型目录响应
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	RagLoaded bool   `json:"rag_loaded"`
	Service   string `json:"service"`
}

// ErrorResponse 带 success 标志的错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewErrorResponse 构造错误响应
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Success: false, Error: message}
}

// StatsErrorResponse 统计端点的错误响应（单一 error 字段）
type StatsErrorResponse struct {
	Error string `json:"error"`
}
