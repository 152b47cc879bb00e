// Package llm 提供生成模型客户端：多模型工厂与统一调用入口
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// EinoFactory 管理多个 Eino ChatModel 客户端实例
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultModel
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	modelCfg, ok := f.config.Models[name]
	if !ok {
		return nil, fmt.Errorf("model %s not found in LLM config", name)
	}

	// 使用 Eino 的 OpenAI 适配器
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:    modelCfg.APIKey,
		BaseURL:   modelCfg.BaseURL,
		Model:     modelCfg.Model,
		MaxTokens: &modelCfg.MaxTokens,
		Timeout:   modelCfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// Timeout 返回指定模型的调用超时（未配置时为 0）
func (f *EinoFactory) Timeout(name string) time.Duration {
	if name == "" {
		name = f.config.DefaultModel
	}
	if cfg, ok := f.config.Models[name]; ok {
		return cfg.Timeout
	}
	return 0
}
