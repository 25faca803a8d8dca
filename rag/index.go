package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// IndexHit 最近邻搜索命中，Distance 越小越相似。
type IndexHit struct {
	ChunkID  string
	Distance float64
}

// VectorIndex 稠密向量最近邻搜索。
type VectorIndex interface {
	// Add 添加向量
	Add(ctx context.Context, chunkID string, vector []float64) error
	// Query 返回最近的 k 个命中，按距离升序
	Query(ctx context.Context, vector []float64, k int) ([]IndexHit, error)
	// Delete 删除向量
	Delete(ctx context.Context, chunkID string) error
	// Size 返回向量数量
	Size() int
}

// FlatIndex 余弦距离暴力搜索索引。
// 规模可控时精确且无需构建参数；并发读安全。
type FlatIndex struct {
	vectors map[string][]float64
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewFlatIndex 创建暴力搜索索引。
func NewFlatIndex(logger *zap.Logger) *FlatIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlatIndex{
		vectors: make(map[string][]float64),
		logger:  logger.With(zap.String("component", "flat_index")),
	}
}

// Add 添加向量。
func (idx *FlatIndex) Add(ctx context.Context, chunkID string, vector []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(vector) == 0 {
		return fmt.Errorf("vector for chunk %s is empty", chunkID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[chunkID] = vector
	return nil
}

// Query 余弦距离最近邻搜索，距离升序，同距离按 chunk ID 字典序。
func (idx *FlatIndex) Query(ctx context.Context, vector []float64, k int) ([]IndexHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]IndexHit, 0, len(idx.vectors))
	for id, stored := range idx.vectors {
		similarity := cosineSimilarity(vector, stored)
		hits = append(hits, IndexHit{ChunkID: id, Distance: 1.0 - similarity})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete 删除向量。
func (idx *FlatIndex) Delete(ctx context.Context, chunkID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, chunkID)
	return nil
}

// Size 返回向量数量。
func (idx *FlatIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// cosineSimilarity 计算余弦相似度，维度不一致或零向量时返回 0。
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
