// =============================================================================
// 📦 AgentGraph 配置
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("AGENTGRAPH").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"time"
)

// Config 是 AgentGraph 的完整配置结构
type Config struct {
	// Retrieval 混合检索配置
	Retrieval RetrievalConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// Chunking 文档分块配置
	Chunking ChunkingConfig `yaml:"chunking" env:"CHUNKING"`

	// Graph 知识图谱配置
	Graph GraphConfig `yaml:"graph" env:"GRAPH"`

	// LLM 生成模型配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Redis 会话历史缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`
}

// RetrievalConfig 混合检索配置。
// RRF 常量与权重有部署级默认值，均可按需调整。
type RetrievalConfig struct {
	// 稠密候选列表大小
	DenseTopK int `yaml:"dense_top_k" env:"DENSE_TOP_K"`
	// 稀疏候选列表大小
	SparseTopK int `yaml:"sparse_top_k" env:"SPARSE_TOP_K"`
	// RRF 融合后保留的候选数
	FusedTopK int `yaml:"fused_top_k" env:"FUSED_TOP_K"`
	// 重排序后返回的最终候选数
	TopK int `yaml:"top_k" env:"TOP_K"`

	// RRF 常数 k
	RRFK float64 `yaml:"rrf_k" env:"RRF_K"`
	// 稠密列表权重
	DenseWeight float64 `yaml:"dense_weight" env:"DENSE_WEIGHT"`
	// 稀疏列表权重
	SparseWeight float64 `yaml:"sparse_weight" env:"SPARSE_WEIGHT"`

	// BM25 参数
	BM25K1 float64 `yaml:"bm25_k1" env:"BM25_K1"`
	BM25B  float64 `yaml:"bm25_b" env:"BM25_B"`

	// 单次外部调用（嵌入/索引查询）超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ChunkingConfig 文档分块配置
type ChunkingConfig struct {
	// 块大小上限（单位）
	ChunkSize int `yaml:"chunk_size" env:"CHUNK_SIZE"`
	// 相邻块重叠（单位）
	ChunkOverlap int `yaml:"chunk_overlap" env:"CHUNK_OVERLAP"`
	// 最小块大小，低于此值的尾块并入前块
	MinChunkSize int `yaml:"min_chunk_size" env:"MIN_CHUNK_SIZE"`
}

// GraphConfig 知识图谱配置
type GraphConfig struct {
	// 扩展的最大跳数（1-3）
	MaxHops int `yaml:"max_hops" env:"MAX_HOPS"`
	// 单次查询最多使用的种子实体数
	MaxSeedEntities int `yaml:"max_seed_entities" env:"MAX_SEED_ENTITIES"`
	// 图谱查询超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// SQLite 图谱存储文件路径（空则仅用内存存储）
	StorePath string `yaml:"store_path" env:"STORE_PATH"`
}

// LLMConfig 生成模型配置
type LLMConfig struct {
	// OpenAI 兼容接口地址
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 单次生成超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 生成失败的最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 每秒请求数限制
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 突发请求上限
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// RedisConfig Redis 会话历史配置
type RedisConfig struct {
	// 是否启用 Redis 会话存储（关闭时使用内存存储）
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址 host:port
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 每个会话保留的最大轮数
	MaxTurns int `yaml:"max_turns" env:"MAX_TURNS"`
	// 会话过期时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 级别: debug / info / warn / error
	Level string `yaml:"level" env:"LEVEL"`
	// 格式: json / console
	Format string `yaml:"format" env:"FORMAT"`
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.FusedTopK < c.Retrieval.TopK {
		return fmt.Errorf("retrieval.fused_top_k (%d) must be >= retrieval.top_k (%d)",
			c.Retrieval.FusedTopK, c.Retrieval.TopK)
	}
	if c.Retrieval.RRFK <= 0 {
		return fmt.Errorf("retrieval.rrf_k must be positive, got %v", c.Retrieval.RRFK)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap (%d) must be less than chunk_size (%d)",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	if c.Graph.MaxHops < 1 || c.Graph.MaxHops > 3 {
		return fmt.Errorf("graph.max_hops must be in [1,3], got %d", c.Graph.MaxHops)
	}
	return nil
}
