package rag

import (
	"fmt"
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/BaSui01/agentgraph/config"
)

func fusionConfig() config.RetrievalConfig {
	cfg := config.DefaultRetrievalConfig()
	cfg.FusedTopK = 10
	return cfg
}

func TestFuseRRF_TopRankedInBothWins(t *testing.T) {
	t.Parallel()

	dense := []IndexHit{
		{ChunkID: "a", Distance: 0.1},
		{ChunkID: "b", Distance: 0.2},
		{ChunkID: "c", Distance: 0.3},
	}
	sparse := []SparseHit{
		{ChunkID: "a", Score: 9.0},
		{ChunkID: "c", Score: 5.0},
		{ChunkID: "b", Score: 1.0},
	}

	fused := FuseRRF(dense, sparse, fusionConfig())
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(fused))
	}
	if fused[0].ChunkID != "a" {
		t.Fatalf("expected chunk a first (rank 1 in both lists), got %s", fused[0].ChunkID)
	}
	if fused[0].DenseRank != 1 || fused[0].SparseRank != 1 {
		t.Fatalf("expected ranks 1/1 for chunk a, got %d/%d", fused[0].DenseRank, fused[0].SparseRank)
	}
}

func TestFuseRRF_ScoresMonotonicallyNonIncreasing(t *testing.T) {
	t.Parallel()

	dense := []IndexHit{
		{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}, {ChunkID: "d"},
	}
	sparse := []SparseHit{
		{ChunkID: "d"}, {ChunkID: "e"}, {ChunkID: "a"},
	}

	fused := FuseRRF(dense, sparse, fusionConfig())
	for i := 1; i < len(fused); i++ {
		if fused[i].FusedScore > fused[i-1].FusedScore {
			t.Fatalf("fused scores not non-increasing at %d: %v > %v",
				i, fused[i].FusedScore, fused[i-1].FusedScore)
		}
	}
}

func TestFuseRRF_DenseOnlyCandidateSurvives(t *testing.T) {
	t.Parallel()

	// 仅出现在稠密列表第 1 位的块必须进入融合结果，
	// 其分数只由稠密项构成。
	dense := []IndexHit{{ChunkID: "solo"}}
	fused := FuseRRF(dense, nil, fusionConfig())

	if len(fused) != 1 {
		t.Fatalf("expected 1 fused candidate, got %d", len(fused))
	}
	cand := fused[0]
	if cand.ChunkID != "solo" {
		t.Fatalf("expected chunk solo, got %s", cand.ChunkID)
	}
	if cand.SparseRank != 0 {
		t.Fatalf("expected unranked sparse (0), got %d", cand.SparseRank)
	}

	cfg := fusionConfig()
	want := cfg.DenseWeight / (cfg.RRFK + 1)
	if math.Abs(cand.FusedScore-want) > 1e-12 {
		t.Fatalf("expected score %v (dense term only), got %v", want, cand.FusedScore)
	}
}

func TestFuseRRF_TieBrokenByDenseRankThenChunkID(t *testing.T) {
	t.Parallel()

	// x 与 y 融合分数相同（镜像排名），稠密排名低者优先
	dense := []IndexHit{{ChunkID: "x"}, {ChunkID: "y"}}
	sparse := []SparseHit{{ChunkID: "y"}, {ChunkID: "x"}}

	cfg := fusionConfig()
	cfg.DenseWeight = 0.5
	cfg.SparseWeight = 0.5

	fused := FuseRRF(dense, sparse, cfg)
	if len(fused) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(fused))
	}
	if fused[0].ChunkID != "x" {
		t.Fatalf("expected x first (dense rank 1), got %s", fused[0].ChunkID)
	}
}

func TestFuseRRF_NaNWeightSortsLast(t *testing.T) {
	t.Parallel()

	cfg := fusionConfig()
	cfg.SparseWeight = math.NaN()

	// b 只有稀疏排名，分数为 NaN；必须排在有限分数的 a 之后
	dense := []IndexHit{{ChunkID: "a"}}
	sparse := []SparseHit{{ChunkID: "b"}}

	fused := FuseRRF(dense, sparse, cfg)
	if len(fused) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(fused))
	}
	if fused[0].ChunkID != "a" {
		t.Fatalf("expected finite-score chunk a first, got %s", fused[0].ChunkID)
	}
	if !math.IsNaN(fused[1].FusedScore) {
		t.Fatalf("expected NaN score last, got %v", fused[1].FusedScore)
	}
}

func TestFuseRRF_TruncatesToFusedTopK(t *testing.T) {
	t.Parallel()

	var dense []IndexHit
	for i := 0; i < 30; i++ {
		dense = append(dense, IndexHit{ChunkID: fmt.Sprintf("c%02d", i)})
	}

	cfg := fusionConfig()
	cfg.FusedTopK = 10

	fused := FuseRRF(dense, nil, cfg)
	if len(fused) != 10 {
		t.Fatalf("expected 10 candidates after truncation, got %d", len(fused))
	}
}

func TestFuseRRF_Property_RankOneBothDominates(t *testing.T) {
	t.Parallel()

	// RRF 不变量：在两个列表中都排第 1 的块，融合分数
	// 不低于任何在两个列表中都排更低的块。
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 15).Draw(t, "n")

		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("chunk-%02d", i)
		}

		dense := make([]IndexHit, n)
		sparse := make([]SparseHit, n)
		for i, id := range ids {
			dense[i] = IndexHit{ChunkID: id}
			sparse[i] = SparseHit{ChunkID: id}
		}

		cfg := fusionConfig()
		cfg.FusedTopK = n

		fused := FuseRRF(dense, sparse, cfg)
		scores := make(map[string]float64, len(fused))
		for _, cand := range fused {
			scores[cand.ChunkID] = cand.FusedScore
		}

		top := scores[ids[0]]
		for _, id := range ids[1:] {
			if scores[id] > top {
				t.Fatalf("chunk %s ranked lower in both lists but scored higher: %v > %v",
					id, scores[id], top)
			}
		}
	})
}

func TestFuseRRF_Property_OutputSortedAndDeterministic(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		idGen := rapid.StringMatching(`c[0-9]{2}`)
		denseIDs := rapid.SliceOfNDistinct(idGen, 0, 10, rapid.ID[string]).Draw(t, "dense")
		sparseIDs := rapid.SliceOfNDistinct(idGen, 0, 10, rapid.ID[string]).Draw(t, "sparse")

		dense := make([]IndexHit, len(denseIDs))
		for i, id := range denseIDs {
			dense[i] = IndexHit{ChunkID: id}
		}
		sparse := make([]SparseHit, len(sparseIDs))
		for i, id := range sparseIDs {
			sparse[i] = SparseHit{ChunkID: id}
		}

		cfg := fusionConfig()
		first := FuseRRF(dense, sparse, cfg)
		second := FuseRRF(dense, sparse, cfg)

		if len(first) != len(second) {
			t.Fatalf("fusion not deterministic: %d vs %d candidates", len(first), len(second))
		}
		for i := range first {
			if first[i].ChunkID != second[i].ChunkID {
				t.Fatalf("fusion not deterministic at %d: %s vs %s",
					i, first[i].ChunkID, second[i].ChunkID)
			}
			if i > 0 && first[i].FusedScore > first[i-1].FusedScore {
				t.Fatalf("fused output not sorted at %d", i)
			}
		}
	})
}
