// Package dto 定义 HTTP 请求和响应结构
package dto

// QueryRequest 问答请求。
// Pregunta 用指针区分"字段缺失"和"内容为空"，两者报错文案不同。
type QueryRequest struct {
	Pregunta *string `json:"pregunta"`
	Modelo   string  `json:"modelo"`
}

// InsightsRequest 洞察请求
type InsightsRequest struct {
	Modelo string `json:"modelo"`
}
