// =============================================================================
// 📦 AgentGraph 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Retrieval: DefaultRetrievalConfig(),
		Chunking:  DefaultChunkingConfig(),
		Graph:     DefaultGraphConfig(),
		LLM:       DefaultLLMConfig(),
		Redis:     DefaultRedisConfig(),
		Log:       DefaultLogConfig(),
	}
}

// DefaultRetrievalConfig 返回默认检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		DenseTopK:    20,
		SparseTopK:   20,
		FusedTopK:    10,
		TopK:         5,
		RRFK:         60,
		DenseWeight:  0.6,
		SparseWeight: 0.4,
		BM25K1:       1.5,
		BM25B:        0.75,
		Timeout:      10 * time.Second,
	}
}

// DefaultChunkingConfig 返回默认分块配置
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		ChunkSize:    800,
		ChunkOverlap: 150,
		MinChunkSize: 50,
	}
}

// DefaultGraphConfig 返回默认图谱配置
func DefaultGraphConfig() GraphConfig {
	return GraphConfig{
		MaxHops:         2,
		MaxSeedEntities: 5,
		Timeout:         10 * time.Second,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:          "gpt-4o-mini",
		Temperature:    0.3,
		Timeout:        60 * time.Second,
		MaxRetries:     1,
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:   false,
		Addr:      "localhost:6379",
		DB:        0,
		KeyPrefix: "agentgraph:",
		MaxTurns:  100,
		TTL:       24 * time.Hour,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
	}
}
