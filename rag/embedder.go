package rag

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Embedder 将文本转换为固定维度稠密向量。
type Embedder interface {
	// Embed 嵌入单条文本
	Embed(ctx context.Context, text string) ([]float64, error)
	// EmbedBatch 批量嵌入，结果顺序与输入一致
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// HashingEmbedder 基于特征哈希的本地嵌入器。
// 将词项哈希到固定维度并做 L2 归一化，无需外部服务，
// 用于离线部署与测试；生产环境通常替换为模型嵌入服务。
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder 创建哈希嵌入器。dim 非正时使用 256。
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashingEmbedder{dim: dim}
}

// Dim 返回向量维度。
func (e *HashingEmbedder) Dim() int { return e.dim }

// Embed 嵌入单条文本。
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, e.dim)
	for _, term := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(term))
		sum := h.Sum32()
		idx := int(sum % uint32(e.dim))
		// 最高位决定符号，减少哈希碰撞造成的偏置
		sign := 1.0
		if sum&0x80000000 != 0 {
			sign = -1.0
		}
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedBatch 批量嵌入，保持输入顺序。
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// tokenize 小写分词，去掉标点。
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r >= 0x80)
	})
}
