package rag

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/config"
)

// SparseHit 稀疏排序命中，Score 越大越相关。
type SparseHit struct {
	ChunkID string
	Score   float64
}

// SparseScorer 词法稀疏排序能力。
type SparseScorer interface {
	// Rank 返回得分最高的 k 个块，按分数降序
	Rank(ctx context.Context, query string, k int) ([]SparseHit, error)
}

// BM25Scorer 基于 Okapi BM25 的稀疏排序器。
// 统计信息在 Refresh 时基于 Corpus 重建；查询只读。
type BM25Scorer struct {
	corpus *Corpus
	k1     float64
	b      float64
	logger *zap.Logger

	mu        sync.RWMutex
	idf       map[string]float64
	docTerms  map[string]map[string]int
	docLens   map[string]int
	avgDocLen float64
}

// NewBM25Scorer 创建 BM25 排序器。
func NewBM25Scorer(corpus *Corpus, cfg config.RetrievalConfig, logger *zap.Logger) *BM25Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	k1 := cfg.BM25K1
	if k1 <= 0 {
		k1 = 1.5
	}
	b := cfg.BM25B
	if b <= 0 {
		b = 0.75
	}
	return &BM25Scorer{
		corpus:   corpus,
		k1:       k1,
		b:        b,
		logger:   logger.With(zap.String("component", "bm25_scorer")),
		idf:      make(map[string]float64),
		docTerms: make(map[string]map[string]int),
		docLens:  make(map[string]int),
	}
}

// Refresh 基于语料库当前内容重建 BM25 统计信息。
// 摄取新文档后调用一次。
func (s *BM25Scorer) Refresh() {
	chunks := s.corpus.All()

	docTerms := make(map[string]map[string]int, len(chunks))
	docLens := make(map[string]int, len(chunks))
	termDocCount := make(map[string]int)
	totalLen := 0

	for _, chunk := range chunks {
		terms := tokenize(chunk.Text)
		freq := make(map[string]int, len(terms))
		for _, term := range terms {
			freq[term]++
		}
		docTerms[chunk.ID] = freq
		docLens[chunk.ID] = len(terms)
		totalLen += len(terms)

		for term := range freq {
			termDocCount[term]++
		}
	}

	idf := make(map[string]float64, len(termDocCount))
	n := float64(len(chunks))
	for term, df := range termDocCount {
		idf[term] = math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1.0)
	}

	avg := 0.0
	if len(chunks) > 0 {
		avg = float64(totalLen) / float64(len(chunks))
	}

	s.mu.Lock()
	s.idf = idf
	s.docTerms = docTerms
	s.docLens = docLens
	s.avgDocLen = avg
	s.mu.Unlock()

	s.logger.Debug("bm25 stats refreshed",
		zap.Int("chunks", len(chunks)),
		zap.Int("terms", len(idf)))
}

// Rank 对全部语料按 BM25 打分，返回前 k 个。
// 同分按 chunk ID 字典序，保证结果确定。
func (s *BM25Scorer) Rank(ctx context.Context, query string, k int) ([]SparseHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]SparseHit, 0, len(s.docTerms))
	for id, freq := range s.docTerms {
		score := 0.0
		docLen := float64(s.docLens[id])

		for _, term := range queryTerms {
			tf, ok := freq[term]
			if !ok {
				continue
			}
			idf := s.idf[term]
			numerator := float64(tf) * (s.k1 + 1.0)
			denominator := float64(tf) + s.k1*(1.0-s.b+s.b*(docLen/s.avgDocLen))
			score += idf * (numerator / denominator)
		}

		if score > 0 {
			hits = append(hits, SparseHit{ChunkID: id, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
