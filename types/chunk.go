package types

// Chunk 是文档切分后的最小检索单元。
// 一经创建不可变，随所属文档一起删除。
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	// Position 在同一文档内唯一且单调递增
	Position  int       `json:"position"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// RetrievalCandidate 单次查询产生的检索候选，不做持久化。
type RetrievalCandidate struct {
	ChunkID string `json:"chunk_id"`
	Text    string `json:"text"`

	// DenseRank / SparseRank 为 1 起始的排名；
	// 0 表示未出现在对应的排名列表中（"not ranked"）
	DenseRank  int `json:"dense_rank"`
	SparseRank int `json:"sparse_rank"`

	FusedScore  float64 `json:"fused_score"`
	RerankScore float64 `json:"rerank_score"`

	// Reranked 表示 RerankScore 确由重排器赋值；
	// 0.0 也是合法得分，不能当哨兵用
	Reranked bool `json:"reranked"`
}

// Ranked 返回候选是否至少出现在一个排名列表中。
func (c RetrievalCandidate) Ranked() bool {
	return c.DenseRank > 0 || c.SparseRank > 0
}
