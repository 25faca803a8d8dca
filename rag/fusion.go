package rag

import (
	"math"
	"sort"

	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/types"
)

// FuseRRF 以 Reciprocal Rank Fusion 合并稠密与稀疏排名列表。
//
// 对出现在任一列表的块 d：
//
//	score(d) = w_dense/(k + rank_dense(d)) + w_sparse/(k + rank_sparse(d))
//
// 块缺席的列表不贡献分数（视为无穷大排名）。
// 排序降序取前 fusedTopK；同分先比稠密排名（低者优先，未上榜视为无穷大），
// 再按 chunk ID 字典序，保证完全确定。
// NaN 分数按最低分处理，排在最后。
func FuseRRF(dense []IndexHit, sparse []SparseHit, cfg config.RetrievalConfig) []types.RetrievalCandidate {
	byID := make(map[string]*types.RetrievalCandidate, len(dense)+len(sparse))

	for i, hit := range dense {
		byID[hit.ChunkID] = &types.RetrievalCandidate{
			ChunkID:   hit.ChunkID,
			DenseRank: i + 1,
		}
	}
	for i, hit := range sparse {
		cand, ok := byID[hit.ChunkID]
		if !ok {
			cand = &types.RetrievalCandidate{ChunkID: hit.ChunkID}
			byID[hit.ChunkID] = cand
		}
		cand.SparseRank = i + 1
	}

	fused := make([]types.RetrievalCandidate, 0, len(byID))
	for _, cand := range byID {
		score := 0.0
		if cand.DenseRank > 0 {
			score += cfg.DenseWeight / (cfg.RRFK + float64(cand.DenseRank))
		}
		if cand.SparseRank > 0 {
			score += cfg.SparseWeight / (cfg.RRFK + float64(cand.SparseRank))
		}
		cand.FusedScore = score
		fused = append(fused, *cand)
	}

	sort.Slice(fused, func(i, j int) bool {
		return lessByFusedScore(fused[i], fused[j])
	})

	if cfg.FusedTopK > 0 && len(fused) > cfg.FusedTopK {
		fused = fused[:cfg.FusedTopK]
	}
	return fused
}

// lessByFusedScore 定义融合候选的全序：
// 分数降序 → 稠密排名升序（0 视为无穷大）→ chunk ID 字典序。
func lessByFusedScore(a, b types.RetrievalCandidate) bool {
	aNaN, bNaN := math.IsNaN(a.FusedScore), math.IsNaN(b.FusedScore)
	if aNaN != bNaN {
		return bNaN // NaN 排在最后
	}
	if !aNaN && a.FusedScore != b.FusedScore {
		return a.FusedScore > b.FusedScore
	}
	if a.DenseRank != b.DenseRank {
		return denseRankOrInf(a.DenseRank) < denseRankOrInf(b.DenseRank)
	}
	return a.ChunkID < b.ChunkID
}

func denseRankOrInf(rank int) float64 {
	if rank <= 0 {
		return math.Inf(1)
	}
	return float64(rank)
}
