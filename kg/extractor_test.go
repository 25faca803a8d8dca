package kg

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/llm"
	"github.com/BaSui01/agentgraph/types"
)

func newGenerator(fn func(ctx context.Context, prompt string) (string, error)) *llm.Generator {
	return llm.NewGenerator(llm.ProviderFunc(fn), config.DefaultLLMConfig(), nil)
}

func TestEntityExtractor_ParsesLLMJSON(t *testing.T) {
	t.Parallel()

	generator := newGenerator(func(ctx context.Context, prompt string) (string, error) {
		return `Here are the entities:
[
  {"name": "Kubernetes", "type": "TECHNOLOGY", "description": "container orchestrator"},
  {"name": "Google", "type": "organization", "description": ""},
  {"name": "kubernetes", "type": "TECHNOLOGY", "description": "duplicate"},
  {"name": "Something", "type": "NOT_A_TYPE", "description": ""}
]`, nil
	})

	extractor := NewEntityExtractor(generator, nil)
	entities, err := extractor.Extract(context.Background(), "Kubernetes was created at Google.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(entities) != 3 {
		t.Fatalf("expected 3 deduplicated entities, got %d: %+v", len(entities), entities)
	}
	if entities[0].Name != "Kubernetes" || entities[0].Type != types.EntityTechnology {
		t.Fatalf("unexpected first entity: %+v", entities[0])
	}
	if entities[1].Type != types.EntityOrganization {
		t.Fatalf("lowercase type should be upcased: %+v", entities[1])
	}
	if entities[2].Type != types.EntityConcept {
		t.Fatalf("unknown type should fall back to CONCEPT: %+v", entities[2])
	}
}

func TestEntityExtractor_FallsBackOnLLMFailure(t *testing.T) {
	t.Parallel()

	generator := newGenerator(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("provider down")
	})

	extractor := NewEntityExtractor(generator, nil)
	entities, err := extractor.Extract(context.Background(),
		"The Raft Consensus algorithm powers etcd inside Google Cloud.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(entities) == 0 {
		t.Fatal("expected fallback entities")
	}
	for _, entity := range entities {
		if entity.Type != types.EntityConcept {
			t.Fatalf("fallback entities must be CONCEPT, got %+v", entity)
		}
	}
	var found bool
	for _, entity := range entities {
		if strings.Contains(entity.Name, "Raft") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a Title-Case phrase containing Raft, got %+v", entities)
	}
}

func TestEntityExtractor_FallsBackOnMalformedJSON(t *testing.T) {
	t.Parallel()

	generator := newGenerator(func(ctx context.Context, prompt string) (string, error) {
		return "no array here", nil
	})

	extractor := NewEntityExtractor(generator, nil)
	entities, err := extractor.Extract(context.Background(), "Cloud Native Computing is popular.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(entities) == 0 {
		t.Fatal("expected fallback entities after malformed LLM output")
	}
}

func TestEntityExtractor_NilGeneratorUsesFallback(t *testing.T) {
	t.Parallel()

	extractor := NewEntityExtractor(nil, nil)
	entities, err := extractor.Extract(context.Background(), "Open Source Software thrives.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(entities) == 0 {
		t.Fatal("expected regex extraction without a generator")
	}
}

func TestEntityExtractor_BlankTextReturnsNothing(t *testing.T) {
	t.Parallel()

	extractor := NewEntityExtractor(nil, nil)
	entities, err := extractor.Extract(context.Background(), "   \n ")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(entities) != 0 {
		t.Fatalf("expected no entities, got %+v", entities)
	}
}
