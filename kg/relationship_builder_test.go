package kg

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/agentgraph/types"
)

var relTestEntities = []types.Entity{
	{Name: "kubernetes", Type: types.EntityTechnology},
	{Name: "google", Type: types.EntityOrganization},
	{Name: "borg", Type: types.EntityTechnology},
}

func TestRelationshipBuilder_NormalizesAndFilters(t *testing.T) {
	t.Parallel()

	generator := newGenerator(func(ctx context.Context, prompt string) (string, error) {
		return `[
  {"source": "Kubernetes", "target": "Google", "relationship": "created by", "description": "origin"},
  {"source": "kubernetes", "target": "kubernetes", "relationship": "SELF_LOOP"},
  {"source": "kubernetes", "target": "outsider", "relationship": "USES"},
  {"source": "Kubernetes", "target": "google", "relationship": "CREATED BY", "description": "dup"},
  {"source": "borg", "target": "kubernetes", "relationship": ""}
]`, nil
	})

	builder := NewRelationshipBuilder(generator, nil, nil)
	rels, err := builder.Build(context.Background(), "some source text", relTestEntities)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rels) != 2 {
		t.Fatalf("expected 2 relationships, got %d: %+v", len(rels), rels)
	}
	if rels[0].Source != "kubernetes" || rels[0].Target != "google" || rels[0].Type != "CREATED_BY" {
		t.Fatalf("unexpected first relationship: %+v", rels[0])
	}
	if rels[1].Source != "borg" || rels[1].Type != "RELATED_TO" {
		t.Fatalf("empty type should default to RELATED_TO: %+v", rels[1])
	}
}

func TestRelationshipBuilder_LLMFailureReturnsEmpty(t *testing.T) {
	t.Parallel()

	generator := newGenerator(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("provider down")
	})

	builder := NewRelationshipBuilder(generator, nil, nil)
	rels, err := builder.Build(context.Background(), "text", relTestEntities)
	if err != nil {
		t.Fatalf("Build should swallow LLM failure: %v", err)
	}
	if len(rels) != 0 {
		t.Fatalf("expected no relationships, got %+v", rels)
	}
}

func TestRelationshipBuilder_TooFewEntities(t *testing.T) {
	t.Parallel()

	builder := NewRelationshipBuilder(nil, nil, nil)
	rels, err := builder.Build(context.Background(), "text", relTestEntities[:1])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rels != nil {
		t.Fatalf("expected nil for a single entity, got %+v", rels)
	}
}

func TestRelationshipBuilder_PersistWritesStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	generator := newGenerator(func(ctx context.Context, prompt string) (string, error) {
		return `[{"source": "kubernetes", "target": "google", "relationship": "CREATED_BY"}]`, nil
	})
	store := NewMemoryGraphStore()
	builder := NewRelationshipBuilder(generator, store, nil)

	rels, err := builder.Build(ctx, "text", relTestEntities)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	builder.Persist(ctx, relTestEntities, rels)

	stored, err := store.GetRelationships(ctx, "kubernetes")
	if err != nil {
		t.Fatalf("GetRelationships: %v", err)
	}
	if len(stored) != 1 || stored[0].Type != "CREATED_BY" {
		t.Fatalf("expected persisted edge, got %+v", stored)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.EntityCount != 3 {
		t.Fatalf("expected 3 persisted entities, got %d", stats.EntityCount)
	}
}

func TestRelationshipBuilder_PersistBestEffort(t *testing.T) {
	t.Parallel()

	// store 为 nil 时 Persist 必须是安静的空操作
	builder := NewRelationshipBuilder(nil, nil, nil)
	builder.Persist(context.Background(), relTestEntities, nil)
}
