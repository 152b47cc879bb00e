// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Vector        VectorConfig        `yaml:"vector" mapstructure:"vector"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Embedding     EmbeddingConfig     `yaml:"embedding" mapstructure:"embedding"`
	Retrieval     RetrievalConfig     `yaml:"retrieval" mapstructure:"retrieval"`
	Answer        AnswerConfig        `yaml:"answer" mapstructure:"answer"`
	Deterministic DeterministicConfig `yaml:"deterministic" mapstructure:"deterministic"`
	Insights      InsightsConfig      `yaml:"insights" mapstructure:"insights"`
	Ingest        IngestConfig        `yaml:"ingest" mapstructure:"ingest"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// VectorConfig 向量数据库配置
type VectorConfig struct {
	Milvus MilvusConfig `yaml:"milvus" mapstructure:"milvus"`
}

// MilvusConfig Milvus 配置
type MilvusConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Collection         string `yaml:"collection" mapstructure:"collection"`
	Dimension          int    `yaml:"dimension" mapstructure:"dimension"`
	IndexType          string `yaml:"index_type" mapstructure:"index_type"`
	MetricType         string `yaml:"metric_type" mapstructure:"metric_type"`
	HNSWM              int    `yaml:"hnsw_m" mapstructure:"hnsw_m"`
	HNSWEfConstruction int    `yaml:"hnsw_ef_construction" mapstructure:"hnsw_ef_construction"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Redis   RedisConfig `yaml:"redis" mapstructure:"redis"`

	// StatsTTL 语料统计缓存过期时间
	StatsTTL time.Duration `yaml:"stats_ttl" mapstructure:"stats_ttl"`
	// InsightsTTL 洞察结果缓存过期时间
	InsightsTTL time.Duration `yaml:"insights_ttl" mapstructure:"insights_ttl"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultModel string                 `yaml:"default_model" mapstructure:"default_model"`
	Models       map[string]ModelConfig `yaml:"models" mapstructure:"models"`
}

// ModelConfig 可选模型配置（对外目录 + 调用参数）
type ModelConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Description string        `yaml:"description" mapstructure:"description"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// EmbeddingConfig Embedding 配置
type EmbeddingConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Model     string `yaml:"model" mapstructure:"model"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// RetrievalConfig 检索级联配置
type RetrievalConfig struct {
	// FetchK 首轮相似度召回数量（大于最终证据数量，留重排余量）
	FetchK int `yaml:"fetch_k" mapstructure:"fetch_k"`
	// MinPrimary 首轮结果低于该阈值时触发元数据兜底
	MinPrimary int `yaml:"min_primary" mapstructure:"min_primary"`
	// MetadataCap 元数据兜底最多收集数量
	MetadataCap int `yaml:"metadata_cap" mapstructure:"metadata_cap"`
	// TypePriorityCap 表格优先重排后保留数量
	TypePriorityCap int `yaml:"type_priority_cap" mapstructure:"type_priority_cap"`
	// EvidenceCap 关键词过滤后的最终证据数量
	EvidenceCap int `yaml:"evidence_cap" mapstructure:"evidence_cap"`
	// DomainKeywords 领域关键词表（内容相关性打分用）
	DomainKeywords []string `yaml:"domain_keywords" mapstructure:"domain_keywords"`
}

// AnswerConfig 回答组装配置
type AnswerConfig struct {
	// PromptBudget 上下文注入的硬性字符预算
	PromptBudget int `yaml:"prompt_budget" mapstructure:"prompt_budget"`
	// GroundedTemperature 有据回答温度
	GroundedTemperature float64 `yaml:"grounded_temperature" mapstructure:"grounded_temperature"`
	// GeneralTemperature 无上下文兜底回答温度
	GeneralTemperature float64 `yaml:"general_temperature" mapstructure:"general_temperature"`
}

// DeterministicConfig 确定性 CSV 应答配置
type DeterministicConfig struct {
	DataDir         string `yaml:"data_dir" mapstructure:"data_dir"`
	SummaryFile     string `yaml:"summary_file" mapstructure:"summary_file"`
	GenderFile      string `yaml:"gender_file" mapstructure:"gender_file"`
	InstitutionFile string `yaml:"institution_file" mapstructure:"institution_file"`

	// 触发词组：查询命中对应词组时优先走确定性路径
	TriggerRate        []string `yaml:"trigger_rate" mapstructure:"trigger_rate"`
	TriggerDropout     []string `yaml:"trigger_dropout" mapstructure:"trigger_dropout"`
	TriggerCount       []string `yaml:"trigger_count" mapstructure:"trigger_count"`
	TriggerGender      []string `yaml:"trigger_gender" mapstructure:"trigger_gender"`
	TriggerInstitution []string `yaml:"trigger_institution" mapstructure:"trigger_institution"`
	TriggerOverview    []string `yaml:"trigger_overview" mapstructure:"trigger_overview"`
}

// InsightsConfig 洞察合成配置
type InsightsConfig struct {
	// DistinctSources 采样覆盖的不同来源数量
	DistinctSources int `yaml:"distinct_sources" mapstructure:"distinct_sources"`
	// MinLineRunes 低于该长度的行视为退化结果丢弃
	MinLineRunes int `yaml:"min_line_runes" mapstructure:"min_line_runes"`
}

// IngestConfig 摄取管线配置
type IngestConfig struct {
	Roots        []string `yaml:"roots" mapstructure:"roots"`
	ChunkSize    int      `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	// MaxChunkRunes 切分后的硬性上限，超长截断
	MaxChunkRunes int `yaml:"max_chunk_runes" mapstructure:"max_chunk_runes"`
	BatchSize     int `yaml:"batch_size" mapstructure:"batch_size"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
