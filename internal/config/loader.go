// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, "configs/config.yaml", false); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := fmt.Sprintf("configs/config.%s.yaml", env)
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// 执行环境变量替换
	expanded := expandEnv(string(content))

	// 加载到 viper
	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	// 匹配 ${VAR} 或 ${VAR:default}
	// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
	re := regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		submatch := re.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match // 原样返回，以便识别未定义的变量
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "rag-edu-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 5000)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "120s")
	v.SetDefault("server.http.idle_timeout", "120s")

	// Milvus 默认值
	v.SetDefault("vector.milvus.host", "localhost")
	v.SetDefault("vector.milvus.port", 19530)
	v.SetDefault("vector.milvus.collection", "edu_chunks")
	v.SetDefault("vector.milvus.dimension", 768)
	v.SetDefault("vector.milvus.index_type", "HNSW")
	v.SetDefault("vector.milvus.metric_type", "COSINE")
	v.SetDefault("vector.milvus.hnsw_m", 16)
	v.SetDefault("vector.milvus.hnsw_ef_construction", 200)

	// Redis 默认值
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 100)
	v.SetDefault("cache.redis.min_idle_conns", 10)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.stats_ttl", "60s")
	v.SetDefault("cache.insights_ttl", "300s")

	// LLM 默认值
	v.SetDefault("llm.default_model", "llama3")

	// Embedding 默认值
	v.SetDefault("embedding.endpoint", "http://localhost:11434/v1")
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.dimension", 768)
	v.SetDefault("embedding.batch_size", 32)

	// 检索级联默认值
	v.SetDefault("retrieval.fetch_k", 30)
	v.SetDefault("retrieval.min_primary", 5)
	v.SetDefault("retrieval.metadata_cap", 20)
	v.SetDefault("retrieval.type_priority_cap", 15)
	v.SetDefault("retrieval.evidence_cap", 5)
	v.SetDefault("retrieval.domain_keywords", []string{
		"desercion", "abandono", "abandonaron", "tasa", "matricula",
		"matriculados", "retencion", "estudiantes", "universidad", "educacion",
	})

	// 回答组装默认值
	v.SetDefault("answer.prompt_budget", 1800)
	v.SetDefault("answer.grounded_temperature", 0.0)
	v.SetDefault("answer.general_temperature", 0.7)

	// 确定性 CSV 应答默认值
	v.SetDefault("deterministic.data_dir", "data/processed/estadisticas_ecuador")
	v.SetDefault("deterministic.summary_file", "resumen_general_desercion_2022.csv")
	v.SetDefault("deterministic.gender_file", "desercion_por_sexo.csv")
	v.SetDefault("deterministic.institution_file", "desercion_por_tipo_institucion.csv")
	v.SetDefault("deterministic.trigger_rate", []string{"tasa", "porcentaje", "indice"})
	v.SetDefault("deterministic.trigger_dropout", []string{"desercion", "abandono", "abandonaron", "desertaron"})
	v.SetDefault("deterministic.trigger_count", []string{"cuantos", "cuantas", "numero", "total"})
	v.SetDefault("deterministic.trigger_gender", []string{"sexo", "genero", "hombres", "mujeres"})
	v.SetDefault("deterministic.trigger_institution", []string{"institucion", "instituciones", "financiamiento", "publica", "privada"})
	v.SetDefault("deterministic.trigger_overview", []string{"resumen", "general", "estadisticas", "panorama"})

	// 洞察合成默认值
	v.SetDefault("insights.distinct_sources", 8)
	v.SetDefault("insights.min_line_runes", 20)

	// 摄取默认值
	v.SetDefault("ingest.roots", []string{
		"documents_raw",
		"data/raw",
		"data/processed/estadisticas_ecuador",
		"data/analysis",
		"knowledge_sources/papers",
		"knowledge_sources/resources",
	})
	v.SetDefault("ingest.chunk_size", 2000)
	v.SetDefault("ingest.chunk_overlap", 200)
	v.SetDefault("ingest.max_chunk_runes", 4000)
	v.SetDefault("ingest.batch_size", 150)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.output", "stdout")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.exporter", "otlp")
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")
}
