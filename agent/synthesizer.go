package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/llm"
	"github.com/BaSui01/agentgraph/types"
)

// NoEvidenceAnswer 在所有分支都没有产出依据时返回的答案。
// 综合器必须明确声明缺乏支撑证据，而不是编造引用。
const NoEvidenceAnswer = "I could not find sufficient information to answer your question."

const maxSourceContentChars = 300

// Synthesizer 把各分支的输出合并为最终答案与引用列表。
type Synthesizer struct {
	generator *llm.Generator
	logger    *zap.Logger
}

// NewSynthesizer 创建综合器。generator 可为 nil，此时只做择优拼装不做 LLM 综合。
func NewSynthesizer(generator *llm.Generator, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		generator: generator,
		logger:    logger.With(zap.String("component", "synthesizer")),
	}
}

// Synthesize 产出 FinalAnswer 与 Sources 并写回 state。
//
// 择优顺序：analysis > rag_answer > 无依据声明。
// 分析与检索答案同时存在时尝试 LLM 综合，失败回退到择优结果；
// 没有任何依据时不产出引用。
func (s *Synthesizer) Synthesize(ctx context.Context, state *AgentState) {
	candidate := NoEvidenceAnswer
	switch {
	case state.Analysis != "":
		candidate = state.Analysis
	case state.RAGAnswer != "":
		candidate = state.RAGAnswer
	}

	if state.RAGAnswer != "" && state.Analysis != "" && s.generator.Available() {
		merged, err := s.generator.Generate(ctx,
			llm.SynthesisPrompt(state.Query, state.RAGAnswer, state.Analysis, state.KGContext))
		if err != nil {
			s.logger.Warn("final synthesis failed, keeping best branch answer", zap.Error(err))
		} else {
			candidate = merged
		}
	}

	state.FinalAnswer = candidate
	state.Sources = buildSources(state)

	s.logger.Info("synthesizer produced final answer",
		zap.Int("answer_chars", len(candidate)),
		zap.Int("sources", len(state.Sources)))
}

// buildSources 汇总实际用到的依据：检索片段与图谱实体，去重。
// 没有任何依据时返回空，绝不编造引用。
func buildSources(state *AgentState) []types.Source {
	var sources []types.Source
	seen := make(map[string]struct{})

	for _, cand := range state.RetrievedCandidates {
		key := "chunk:" + cand.ChunkID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		content := cand.Text
		if runes := []rune(content); len(runes) > maxSourceContentChars {
			content = string(runes[:maxSourceContentChars])
		}
		// 重排得分 0.0 也是有效得分，只看 Reranked 标记
		score := cand.FusedScore
		if cand.Reranked {
			score = cand.RerankScore
		}
		sources = append(sources, types.Source{
			Kind:    "chunk",
			ID:      cand.ChunkID,
			Content: content,
			Score:   score,
		})
	}

	if state.KGContext != "" {
		for _, entity := range state.ExtractedEntities {
			key := "entity:" + types.NormalizeEntityName(entity.Name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			sources = append(sources, types.Source{
				Kind:    "entity",
				ID:      strings.TrimSpace(entity.Name),
				Content: entity.Description,
			})
		}
	}

	return sources
}
