package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/llm"
	"github.com/BaSui01/agentgraph/types"
)

func newGenerator(fn func(ctx context.Context, prompt string) (string, error)) *llm.Generator {
	cfg := config.DefaultLLMConfig()
	cfg.RateLimitRPS = 1000
	cfg.RateLimitBurst = 1000
	return llm.NewGenerator(llm.ProviderFunc(fn), cfg, nil)
}

func TestSynthesizer_NoEvidenceStatement(t *testing.T) {
	t.Parallel()

	s := NewSynthesizer(nil, nil)
	state := newAgentState("q", "", nil)

	s.Synthesize(context.Background(), state)
	require.Equal(t, NoEvidenceAnswer, state.FinalAnswer)
	require.Empty(t, state.Sources)
}

func TestSynthesizer_PrefersAnalysisOverRAGAnswer(t *testing.T) {
	t.Parallel()

	s := NewSynthesizer(nil, nil)
	state := newAgentState("q", "", nil)
	state.Analysis = "deep analysis"
	state.RAGAnswer = ""

	s.Synthesize(context.Background(), state)
	require.Equal(t, "deep analysis", state.FinalAnswer)
}

func TestSynthesizer_MergesWhenBothBranchesPresent(t *testing.T) {
	t.Parallel()

	var prompt string
	gen := newGenerator(func(ctx context.Context, p string) (string, error) {
		prompt = p
		return "merged answer", nil
	})

	s := NewSynthesizer(gen, nil)
	state := newAgentState("the question", "", nil)
	state.RAGAnswer = "retrieval answer"
	state.Analysis = "analysis text"
	state.KGContext = "graph context"

	s.Synthesize(context.Background(), state)
	require.Equal(t, "merged answer", state.FinalAnswer)
	require.Contains(t, prompt, "the question")
	require.Contains(t, prompt, "retrieval answer")
	require.Contains(t, prompt, "analysis text")
	require.Contains(t, prompt, "graph context")
}

func TestSynthesizer_FallsBackWhenMergeFails(t *testing.T) {
	t.Parallel()

	gen := newGenerator(func(ctx context.Context, p string) (string, error) {
		return "", errors.New("merge exploded")
	})

	s := NewSynthesizer(gen, nil)
	state := newAgentState("q", "", nil)
	state.RAGAnswer = "retrieval answer"
	state.Analysis = "analysis text"

	s.Synthesize(context.Background(), state)
	require.Equal(t, "analysis text", state.FinalAnswer)
}

func TestBuildSources_DedupesAndTruncates(t *testing.T) {
	t.Parallel()

	state := newAgentState("q", "", nil)
	state.RetrievedCandidates = []types.RetrievalCandidate{
		{ChunkID: "c1", Text: strings.Repeat("x", maxSourceContentChars+100), RerankScore: 0.9, Reranked: true},
		{ChunkID: "c1", Text: "duplicate", FusedScore: 0.5},
		{ChunkID: "c2", Text: "short", FusedScore: 0.4},
	}

	sources := buildSources(state)
	require.Len(t, sources, 2)
	require.Equal(t, "c1", sources[0].ID)
	require.Len(t, []rune(sources[0].Content), maxSourceContentChars)
	require.Equal(t, 0.9, sources[0].Score)
	require.Equal(t, 0.4, sources[1].Score)
}

func TestBuildSources_RerankedZeroIsNotReplaced(t *testing.T) {
	t.Parallel()

	state := newAgentState("q", "", nil)
	state.RetrievedCandidates = []types.RetrievalCandidate{
		// 重排器可以给出 0.0：词项零覆盖的候选
		{ChunkID: "c1", Text: "off-topic", FusedScore: 0.7, RerankScore: 0, Reranked: true},
		// 未经过重排的候选沿用融合分数
		{ChunkID: "c2", Text: "unranked", FusedScore: 0.3},
	}

	sources := buildSources(state)
	require.Len(t, sources, 2)
	require.Equal(t, 0.0, sources[0].Score)
	require.Equal(t, 0.3, sources[1].Score)
}

func TestBuildSources_EntitiesOnlyWithGraphContext(t *testing.T) {
	t.Parallel()

	state := newAgentState("q", "", nil)
	state.ExtractedEntities = []types.Entity{{Name: "LangGraph", Type: types.EntityTechnology}}

	require.Empty(t, buildSources(state))

	state.KGContext = "Knowledge Graph Context:\nsomething"
	sources := buildSources(state)
	require.Len(t, sources, 1)
	require.Equal(t, "entity", sources[0].Kind)
	require.Equal(t, "LangGraph", sources[0].ID)
}

func TestBuildSources_EntityDedupIgnoresCasing(t *testing.T) {
	t.Parallel()

	state := newAgentState("q", "", nil)
	state.KGContext = "Knowledge Graph Context:\nsomething"
	state.ExtractedEntities = []types.Entity{
		{Name: "LangGraph", Type: types.EntityTechnology},
		{Name: "  langgraph ", Type: types.EntityTechnology},
	}

	sources := buildSources(state)
	require.Len(t, sources, 1)
	require.Equal(t, "LangGraph", sources[0].ID)
}
