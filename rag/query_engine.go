package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/llm"
	"github.com/BaSui01/agentgraph/types"
)

// NoGroundingAnswer 在检索不到任何依据时返回的标准答案。
// 调用方可据此区分"有依据的答案"与"无依据的答案"。
const NoGroundingAnswer = "I could not find relevant information to answer your question."

// QueryResult 一次端到端 RAG 查询的结果。
type QueryResult struct {
	Answer     string                     `json:"answer"`
	Candidates []types.RetrievalCandidate `json:"candidates"`
	// Degraded 标记检索阶段是否发生来源降级
	Degraded bool `json:"degraded"`
}

// Grounded 返回答案是否有检索依据支撑。
func (r QueryResult) Grounded() bool {
	return len(r.Candidates) > 0
}

// QueryEngine 端到端 RAG 管线：混合检索 → 提示词组装 → 生成。
type QueryEngine struct {
	retriever *HybridRetriever
	generator *llm.Generator
	logger    *zap.Logger
}

// NewQueryEngine 创建查询引擎。generator 不可用时只做检索不做生成。
func NewQueryEngine(retriever *HybridRetriever, generator *llm.Generator, logger *zap.Logger) *QueryEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryEngine{
		retriever: retriever,
		generator: generator,
		logger:    logger.With(zap.String("component", "query_engine")),
	}
}

// Query 执行完整 RAG 管线。
// 检索为空时返回 NoGroundingAnswer，不视为错误；生成失败向上抛出。
func (e *QueryEngine) Query(ctx context.Context, question string, topK int) (QueryResult, error) {
	outcome, err := e.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{
		Candidates: outcome.Candidates,
		Degraded:   outcome.Degraded(),
	}

	if len(outcome.Candidates) == 0 {
		result.Answer = NoGroundingAnswer
		return result, nil
	}

	if !e.generator.Available() {
		// 无生成能力时退化为纯检索
		result.Answer = ""
		return result, nil
	}

	answer, err := e.generator.Generate(ctx, llm.AnswerPrompt(question, BuildContext(outcome.Candidates)))
	if err != nil {
		return QueryResult{}, err
	}
	result.Answer = answer

	return result, nil
}

// BuildContext 将候选拼装为编号的提示词上下文。
func BuildContext(candidates []types.RetrievalCandidate) string {
	var sb strings.Builder
	for i, cand := range candidates {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Source %d] %s", i+1, cand.Text)
	}
	return sb.String()
}
