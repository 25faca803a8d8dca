package rag

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/types"
)

// HybridRetriever 组合 Embedder → VectorIndex、BM25Scorer、RRF 融合与 Reranker，
// 提供一次 Retrieve(query, topK) → 有序候选 操作。
//
// 失败语义：稠密或稀疏来源不可用时降级到可用来源；
// 两者都不可用时返回空序列，由调用方按"无依据"处理，不视为错误。
type HybridRetriever struct {
	embedder Embedder
	index    VectorIndex
	sparse   SparseScorer
	reranker Reranker
	corpus   *Corpus
	cfg      config.RetrievalConfig
	logger   *zap.Logger
}

// NewHybridRetriever 创建混合检索器。
// reranker 为 nil 时跳过重排阶段，直接按融合分数截断。
func NewHybridRetriever(
	embedder Embedder,
	index VectorIndex,
	sparse SparseScorer,
	reranker Reranker,
	corpus *Corpus,
	cfg config.RetrievalConfig,
	logger *zap.Logger,
) *HybridRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridRetriever{
		embedder: embedder,
		index:    index,
		sparse:   sparse,
		reranker: reranker,
		corpus:   corpus,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "hybrid_retriever")),
	}
}

// RetrievalOutcome 一次混合检索的结果与来源参与情况。
type RetrievalOutcome struct {
	Candidates []types.RetrievalCandidate
	// DenseUsed / SparseUsed 记录实际参与融合的来源
	DenseUsed  bool
	SparseUsed bool
}

// Degraded 返回是否有来源缺席。
func (o RetrievalOutcome) Degraded() bool {
	return !o.DenseUsed || !o.SparseUsed
}

// Retrieve 执行混合检索，返回按相关性降序的前 topK 个候选。
// topK 非正时使用配置默认值。
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, topK int) (RetrievalOutcome, error) {
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	outcome := RetrievalOutcome{}

	// 1. 稠密检索：嵌入查询后做最近邻搜索
	dense := r.denseSearch(ctx, query)
	outcome.DenseUsed = dense != nil

	// 2. 稀疏检索
	sparse := r.sparseSearch(ctx, query)
	outcome.SparseUsed = sparse != nil

	// 取消优先于降级上报
	if err := ctx.Err(); err != nil {
		return RetrievalOutcome{}, err
	}

	if len(dense) == 0 && len(sparse) == 0 {
		r.logger.Info("no retrieval source produced candidates",
			zap.String("query", truncateQuery(query)))
		outcome.Candidates = []types.RetrievalCandidate{}
		return outcome, nil
	}

	// 3. RRF 融合
	fused := FuseRRF(dense, sparse, r.cfg)
	for i := range fused {
		if chunk, ok := r.corpus.Get(fused[i].ChunkID); ok {
			fused[i].Text = chunk.Text
		}
	}

	// 4. 重排
	ranked := r.rerank(ctx, query, fused)
	if err := ctx.Err(); err != nil {
		return RetrievalOutcome{}, err
	}

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	outcome.Candidates = ranked

	r.logger.Debug("hybrid retrieval completed",
		zap.Int("dense", len(dense)),
		zap.Int("sparse", len(sparse)),
		zap.Int("fused", len(fused)),
		zap.Int("returned", len(ranked)),
		zap.Bool("degraded", outcome.Degraded()))

	return outcome, nil
}

// denseSearch 执行稠密检索，失败时返回 nil 表示来源缺席。
func (r *HybridRetriever) denseSearch(ctx context.Context, query string) []IndexHit {
	if r.embedder == nil || r.index == nil {
		return nil
	}

	searchCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.Timeout > 0 {
		searchCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	vector, err := r.embedder.Embed(searchCtx, query)
	if err != nil {
		r.logger.Warn("embedder unavailable, degrading to sparse-only", zap.Error(err))
		return nil
	}

	hits, err := r.index.Query(searchCtx, vector, r.cfg.DenseTopK)
	if err != nil {
		r.logger.Warn("vector index unavailable, degrading to sparse-only", zap.Error(err))
		return nil
	}
	if hits == nil {
		hits = []IndexHit{}
	}
	return hits
}

// sparseSearch 执行稀疏检索，失败时返回 nil 表示来源缺席。
func (r *HybridRetriever) sparseSearch(ctx context.Context, query string) []SparseHit {
	if r.sparse == nil {
		return nil
	}

	searchCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.Timeout > 0 {
		searchCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	hits, err := r.sparse.Rank(searchCtx, query, r.cfg.SparseTopK)
	if err != nil {
		r.logger.Warn("sparse scorer unavailable, degrading to dense-only", zap.Error(err))
		return nil
	}
	if hits == nil {
		hits = []SparseHit{}
	}
	return hits
}

// rerank 对融合候选做成对相关性重排；重排器缺席或失败时保持融合顺序。
func (r *HybridRetriever) rerank(ctx context.Context, query string, fused []types.RetrievalCandidate) []types.RetrievalCandidate {
	if r.reranker == nil || len(fused) == 0 {
		return fused
	}

	texts := make(map[string]string, len(fused))
	for _, cand := range fused {
		texts[cand.ChunkID] = cand.Text
	}

	scores, err := r.reranker.ScorePairs(ctx, query, texts)
	if err != nil {
		r.logger.Warn("reranker failed, keeping fused order", zap.Error(err))
		return fused
	}

	for i := range fused {
		fused[i].RerankScore = scores[fused[i].ChunkID]
		fused[i].Reranked = true
	}
	sortByRerankScore(fused)
	return fused
}

func truncateQuery(query string) string {
	const max = 80
	if len(query) <= max {
		return query
	}
	return query[:max] + "..."
}
