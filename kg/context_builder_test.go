package kg

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/types"
)

// 链式图 a→b→c→d，用于跳数边界测试
func chainStore(t *testing.T) *MemoryGraphStore {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryGraphStore()

	names := []string{"a", "b", "c", "d"}
	entities := make([]types.Entity, 0, len(names))
	for _, name := range names {
		entities = append(entities, types.Entity{Name: name, Type: types.EntityConcept})
	}
	if err := store.UpsertEntities(ctx, entities); err != nil {
		t.Fatalf("upsert entities: %v", err)
	}

	rels := []types.Relationship{
		{Source: "a", Type: "NEXT", Target: "b"},
		{Source: "b", Type: "NEXT", Target: "c"},
		{Source: "c", Type: "NEXT", Target: "d"},
	}
	if err := store.UpsertRelationships(ctx, rels); err != nil {
		t.Fatalf("upsert relationships: %v", err)
	}
	return store
}

func expandNames(gc types.GraphContext) []string {
	names := make([]string, 0, len(gc.Nodes))
	for _, node := range gc.Nodes {
		names = append(names, node.Name)
	}
	return names
}

func TestContextBuilder_SingleHop(t *testing.T) {
	t.Parallel()

	builder := NewContextBuilder(chainStore(t), config.DefaultGraphConfig(), nil)
	gc, err := builder.Expand(context.Background(), []string{"a"}, 1)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	got := strings.Join(expandNames(gc), ",")
	if got != "a,b" {
		t.Fatalf("expected nodes a,b at 1 hop, got %s", got)
	}
	if len(gc.Edges) != 1 || gc.Edges[0].Target != "b" {
		t.Fatalf("expected single edge a->b, got %+v", gc.Edges)
	}
}

func TestContextBuilder_HopBoundRespected(t *testing.T) {
	t.Parallel()

	builder := NewContextBuilder(chainStore(t), config.DefaultGraphConfig(), nil)

	for hops, want := range map[int]string{
		1: "a,b",
		2: "a,b,c",
		3: "a,b,c,d",
	} {
		gc, err := builder.Expand(context.Background(), []string{"a"}, hops)
		if err != nil {
			t.Fatalf("Expand hops=%d: %v", hops, err)
		}
		if got := strings.Join(expandNames(gc), ","); got != want {
			t.Fatalf("hops=%d: expected %s, got %s", hops, want, got)
		}
	}
}

func TestContextBuilder_MissingSeedsSilentlySkipped(t *testing.T) {
	t.Parallel()

	builder := NewContextBuilder(chainStore(t), config.DefaultGraphConfig(), nil)
	gc, err := builder.Expand(context.Background(), []string{"ghost", "  A  ", "phantom"}, 1)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got := strings.Join(expandNames(gc), ","); got != "a,b" {
		t.Fatalf("expected a,b from the one existing seed, got %s", got)
	}
}

func TestContextBuilder_AllSeedsMissingReturnsEmpty(t *testing.T) {
	t.Parallel()

	builder := NewContextBuilder(chainStore(t), config.DefaultGraphConfig(), nil)
	gc, err := builder.Expand(context.Background(), []string{"ghost"}, 2)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !gc.Empty() {
		t.Fatalf("expected empty context, got %+v", gc)
	}
}

func TestContextBuilder_EdgesDeduplicated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewMemoryGraphStore()
	if err := store.UpsertEntities(ctx, []types.Entity{
		{Name: "x", Type: types.EntityConcept},
		{Name: "y", Type: types.EntityConcept},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// 同一条边写两次，另加一条不同类型的平行边
	rels := []types.Relationship{
		{Source: "x", Type: "USES", Target: "y"},
		{Source: "x", Type: "USES", Target: "y", Description: "again"},
		{Source: "x", Type: "DEPENDS_ON", Target: "y"},
	}
	if err := store.UpsertRelationships(ctx, rels); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	builder := NewContextBuilder(store, config.DefaultGraphConfig(), nil)
	gc, err := builder.Expand(ctx, []string{"x", "y"}, 2)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(gc.Edges) != 2 {
		t.Fatalf("expected 2 distinct edges, got %d: %+v", len(gc.Edges), gc.Edges)
	}
}

func TestContextBuilder_IdempotentExpansion(t *testing.T) {
	t.Parallel()

	builder := NewContextBuilder(chainStore(t), config.DefaultGraphConfig(), nil)
	ctx := context.Background()

	first, err := builder.Expand(ctx, []string{"b"}, 2)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	second, err := builder.Expand(ctx, []string{"b"}, 2)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if strings.Join(expandNames(first), ",") != strings.Join(expandNames(second), ",") {
		t.Fatal("expansion not deterministic across calls")
	}
	if len(first.Edges) != len(second.Edges) {
		t.Fatal("edge sets differ across calls")
	}
}

func TestContextBuilder_SeedCapApplied(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultGraphConfig()
	cfg.MaxSeedEntities = 1
	builder := NewContextBuilder(chainStore(t), cfg, nil)

	gc, err := builder.Expand(context.Background(), []string{"d", "a"}, 1)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	// 只保留第一个种子 d，因此 a 不应出现
	for _, name := range expandNames(gc) {
		if name == "a" {
			t.Fatal("seed beyond cap was expanded")
		}
	}
}

func TestContextBuilder_Property_HopBound(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := NewMemoryGraphStore()

		// 随机小图
		n := rapid.IntRange(2, 12).Draw(t, "nodes")
		entities := make([]types.Entity, 0, n)
		names := make([]string, 0, n)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("n%02d", i)
			names = append(names, name)
			entities = append(entities, types.Entity{Name: name, Type: types.EntityConcept})
		}
		if err := store.UpsertEntities(ctx, entities); err != nil {
			t.Fatalf("upsert: %v", err)
		}

		edgeCount := rapid.IntRange(0, 20).Draw(t, "edges")
		adj := make(map[string][]string)
		for i := 0; i < edgeCount; i++ {
			src := rapid.SampledFrom(names).Draw(t, "src")
			dst := rapid.SampledFrom(names).Draw(t, "dst")
			if src == dst {
				continue
			}
			if err := store.UpsertRelationships(ctx, []types.Relationship{
				{Source: src, Type: "LINKS", Target: dst},
			}); err != nil {
				t.Fatalf("upsert: %v", err)
			}
			adj[src] = append(adj[src], dst)
			adj[dst] = append(adj[dst], src)
		}

		seed := rapid.SampledFrom(names).Draw(t, "seed")
		hops := rapid.IntRange(1, 3).Draw(t, "hops")

		builder := NewContextBuilder(store, config.DefaultGraphConfig(), nil)
		gc, err := builder.Expand(ctx, []string{seed}, hops)
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}

		// 参考 BFS 计算可达距离
		dist := map[string]int{seed: 0}
		frontier := []string{seed}
		for d := 1; d <= hops; d++ {
			var next []string
			for _, node := range frontier {
				for _, nb := range adj[node] {
					if _, ok := dist[nb]; !ok {
						dist[nb] = d
						next = append(next, nb)
					}
				}
			}
			frontier = next
		}

		for _, node := range gc.Nodes {
			d, reachable := dist[node.Name]
			if !reachable || d > hops {
				t.Fatalf("node %s beyond hop bound %d", node.Name, hops)
			}
		}
	})
}

func TestFormatContext(t *testing.T) {
	t.Parallel()

	gc := types.GraphContext{
		Nodes: []types.Entity{
			{Name: "google", Type: types.EntityOrganization},
			{Name: "kubernetes", Type: types.EntityTechnology, Description: "container orchestrator"},
		},
		Edges: []types.Relationship{
			{Source: "kubernetes", Type: "CREATED_BY", Target: "google"},
		},
	}

	out := FormatContext(gc)
	if !strings.Contains(out, "Entity: kubernetes (TECHNOLOGY): container orchestrator") {
		t.Fatalf("missing entity line:\n%s", out)
	}
	if !strings.Contains(out, "└─ [CREATED_BY] → google (ORGANIZATION)") {
		t.Fatalf("missing relationship line:\n%s", out)
	}

	if FormatContext(types.GraphContext{}) != "" {
		t.Fatal("empty context should format to empty string")
	}
}

// 节点名带显示大小写，边端点仍是归一化键，两者必须对得上。
func TestFormatContext_DisplayCasing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewMemoryGraphStore()
	if err := store.UpsertEntities(ctx, []types.Entity{
		{Name: "LangGraph", Type: types.EntityTechnology, Description: "agent orchestration framework"},
		{Name: "LangChain", Type: types.EntityOrganization},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertRelationships(ctx, []types.Relationship{
		{Source: "LangGraph", Type: "CREATED_BY", Target: "LangChain"},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	builder := NewContextBuilder(store, config.DefaultGraphConfig(), nil)
	gc, err := builder.Expand(ctx, []string{"langgraph"}, 1)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	out := FormatContext(gc)
	if !strings.Contains(out, "Entity: LangGraph (TECHNOLOGY): agent orchestration framework") {
		t.Fatalf("entity should render with extracted casing:\n%s", out)
	}
	if !strings.Contains(out, "└─ [CREATED_BY] → LangChain (ORGANIZATION)") {
		t.Fatalf("edge target should render with extracted casing:\n%s", out)
	}
	if strings.Contains(out, "langgraph") {
		t.Fatalf("normalized key leaked into rendered context:\n%s", out)
	}
}
