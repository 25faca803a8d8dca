package agent

import (
	"github.com/BaSui01/agentgraph/types"
)

// AgentState 一次查询的可变状态记录。
// 由 Orchestrator 独占持有并合并各阶段增量，查询结束后即丢弃；
// 跨查询的连续性由外部会话存储负责。
type AgentState struct {
	// 输入
	Query     string       `json:"query"`
	SessionID string       `json:"session_id"`
	History   []types.Turn `json:"history,omitempty"`

	// 路由
	Route RouteLabel `json:"route"`

	// researcher 阶段输出
	RetrievedCandidates []types.RetrievalCandidate `json:"retrieved_candidates,omitempty"`
	RAGAnswer           string                     `json:"rag_answer,omitempty"`
	RetrievalDegraded   bool                       `json:"retrieval_degraded,omitempty"`

	// kg_builder 阶段输出
	ExtractedEntities      []types.Entity       `json:"extracted_entities,omitempty"`
	ExtractedRelationships []types.Relationship `json:"extracted_relationships,omitempty"`
	KGContext              string               `json:"kg_context,omitempty"`

	// analyst 阶段输出
	Analysis string `json:"analysis,omitempty"`

	// 最终输出
	FinalAnswer string         `json:"final_answer"`
	Sources     []types.Source `json:"sources,omitempty"`

	// 执行轨迹
	StepsTaken []string `json:"steps_taken"`
}

// newAgentState 构造一次查询的初始状态。
func newAgentState(query, sessionID string, history []types.Turn) *AgentState {
	return &AgentState{
		Query:     query,
		SessionID: sessionID,
		History:   history,
	}
}

// step 追加一条执行轨迹。
func (s *AgentState) step(name string) {
	s.StepsTaken = append(s.StepsTaken, name)
}

// Result 返回给调用方的状态投影。
type Result struct {
	Answer     string         `json:"answer"`
	Sources    []types.Source `json:"sources"`
	StepsTaken []string       `json:"steps_taken"`
	Route      RouteLabel     `json:"route"`
	Cancelled  bool           `json:"cancelled"`
}

// researcherDelta researcher 阶段的增量输出。
type researcherDelta struct {
	candidates []types.RetrievalCandidate
	ragAnswer  string
	degraded   bool
}

// kgDelta kg_builder 阶段的增量输出。
type kgDelta struct {
	entities      []types.Entity
	relationships []types.Relationship
	kgContext     string
	graphNodes    int
}
