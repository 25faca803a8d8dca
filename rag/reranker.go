package rag

import (
	"context"
	"math"
	"sort"

	"github.com/BaSui01/agentgraph/types"
)

// Reranker 成对相关性打分能力（交叉编码式）。
// 输入为 chunk ID → 文本 的候选映射，输出 chunk ID → 分数，分数越大越相关。
type Reranker interface {
	ScorePairs(ctx context.Context, query string, candidates map[string]string) (map[string]float64, error)
}

// LexicalReranker 基于词项重叠的轻量重排器。
// 无交叉编码模型服务时的本地实现：按查询词覆盖率打分。
type LexicalReranker struct{}

// NewLexicalReranker 创建词法重排器。
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

// ScorePairs 计算每个候选对查询词的覆盖率。
func (r *LexicalReranker) ScorePairs(ctx context.Context, query string, candidates map[string]string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryTerms := tokenize(query)
	scores := make(map[string]float64, len(candidates))

	for id, text := range candidates {
		if len(queryTerms) == 0 {
			scores[id] = 0.0
			continue
		}
		docTerms := make(map[string]struct{})
		for _, term := range tokenize(text) {
			docTerms[term] = struct{}{}
		}
		matched := 0
		for _, term := range queryTerms {
			if _, ok := docTerms[term]; ok {
				matched++
			}
		}
		scores[id] = float64(matched) / float64(len(queryTerms))
	}
	return scores, nil
}

// sortByRerankScore 按重排分数降序排序候选。
// NaN 按最低分处理，同分先比融合顺序（融合分数降序），再比 chunk ID。
func sortByRerankScore(candidates []types.RetrievalCandidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aNaN, bNaN := math.IsNaN(a.RerankScore), math.IsNaN(b.RerankScore)
		if aNaN != bNaN {
			return bNaN
		}
		if !aNaN && a.RerankScore != b.RerankScore {
			return a.RerankScore > b.RerankScore
		}
		return lessByFusedScore(a, b)
	})
}
