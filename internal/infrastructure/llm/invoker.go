package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/SKEIILATT/ProyectoLP-2P/pkg/logger"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/metrics"
)

// 外部模型服务延迟无上界，必须有兜底超时
const defaultCallTimeout = 60 * time.Second

// Invoker 统一的模型调用入口。先走一次性生成约定，失败再走
// 流式约定拼接，两种都失败才向上返回错误。不同提供方/版本
// 对调用接口的暴露方式不一致，单个约定失败不该让查询失败。
type Invoker struct {
	factory *EinoFactory
}

// NewInvoker 创建调用器
func NewInvoker(factory *EinoFactory) *Invoker {
	return &Invoker{factory: factory}
}

// Complete 以给定温度补全提示词，返回归一化后的纯文本
func (i *Invoker) Complete(ctx context.Context, modelID, prompt string, temperature float64) (string, error) {
	chatModel, err := i.factory.Get(ctx, modelID)
	if err != nil {
		return "", err
	}

	timeout := i.factory.Timeout(modelID)
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msgs := []*schema.Message{schema.UserMessage(prompt)}
	opts := []model.Option{model.WithTemperature(float32(temperature))}

	began := time.Now()
	text, genErr := i.generate(ctx, chatModel, modelID, msgs, opts)
	if genErr == nil {
		metrics.LLMCallDuration.WithLabelValues(modelID).Observe(time.Since(began).Seconds())
		return text, nil
	}
	logger.FromContext(ctx).Warn("generate convention failed, falling back to stream",
		"model", modelID, "error", genErr)

	text, streamErr := i.stream(ctx, chatModel, modelID, msgs, opts)
	if streamErr == nil {
		metrics.LLMCallDuration.WithLabelValues(modelID).Observe(time.Since(began).Seconds())
		return text, nil
	}

	return "", fmt.Errorf("model call failed on both conventions: generate: %v; stream: %w", genErr, streamErr)
}

// generate 一次性生成约定
func (i *Invoker) generate(ctx context.Context, m model.BaseChatModel, modelID string, msgs []*schema.Message, opts []model.Option) (string, error) {
	out, err := m.Generate(ctx, msgs, opts...)
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(modelID, "generate", "error").Inc()
		return "", err
	}
	metrics.LLMCallTotal.WithLabelValues(modelID, "generate", "ok").Inc()
	return normalize(out), nil
}

// stream 流式约定：逐帧接收并拼接
func (i *Invoker) stream(ctx context.Context, m model.BaseChatModel, modelID string, msgs []*schema.Message, opts []model.Option) (string, error) {
	sr, err := m.Stream(ctx, msgs, opts...)
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(modelID, "stream", "error").Inc()
		return "", err
	}
	defer sr.Close()

	var sb strings.Builder
	for {
		frame, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.LLMCallTotal.WithLabelValues(modelID, "stream", "error").Inc()
			return "", err
		}
		sb.WriteString(frame.Content)
	}
	metrics.LLMCallTotal.WithLabelValues(modelID, "stream", "ok").Inc()
	return strings.TrimSpace(sb.String()), nil
}

// normalize 不同客户端返回的消息形态不一，统一抽出纯文本
func normalize(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	return strings.TrimSpace(msg.Content)
}
