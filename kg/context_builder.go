package kg

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/types"
)

// ContextBuilder 从种子实体出发做有界跳数的 BFS 扩展，
// 为提示词组装结构化图谱上下文。
type ContextBuilder struct {
	store  GraphStore
	cfg    config.GraphConfig
	logger *zap.Logger
}

// NewContextBuilder 创建图谱上下文构建器。
func NewContextBuilder(store GraphStore, cfg config.GraphConfig, logger *zap.Logger) *ContextBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextBuilder{
		store:  store,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "context_builder")),
	}
}

// Expand 从种子集合出发扩展至多 maxHops 跳。
//
// 种子名先归一化再查找，图中不存在的种子静默跳过；
// 边按 (source, type, target) 去重；maxHops 非法时回退到配置值并夹到 [1,3]。
// 结果节点、边均按名称/键排序，保证确定性。
func (b *ContextBuilder) Expand(ctx context.Context, seeds []string, maxHops int) (types.GraphContext, error) {
	if b.store == nil || len(seeds) == 0 {
		return types.GraphContext{}, nil
	}

	maxHops = b.clampHops(maxHops)
	if b.cfg.MaxSeedEntities > 0 && len(seeds) > b.cfg.MaxSeedEntities {
		seeds = seeds[:b.cfg.MaxSeedEntities]
	}

	expandCtx := ctx
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		expandCtx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	visited := make(map[string]types.Entity)
	edges := make(map[string]types.Relationship)

	// 第 0 层：图中实际存在的种子
	var frontier []string
	for _, seed := range seeds {
		name := types.NormalizeEntityName(seed)
		if name == "" {
			continue
		}
		if _, ok := visited[name]; ok {
			continue
		}
		entity, ok, err := b.store.GetEntity(expandCtx, name)
		if err != nil {
			return types.GraphContext{}, err
		}
		if !ok {
			continue
		}
		visited[name] = entity
		frontier = append(frontier, name)
	}

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		sort.Strings(frontier)

		var next []string
		for _, name := range frontier {
			if err := expandCtx.Err(); err != nil {
				return types.GraphContext{}, err
			}

			rels, err := b.store.GetRelationships(expandCtx, name)
			if err != nil {
				return types.GraphContext{}, err
			}

			for _, rel := range rels {
				edges[rel.Key()] = rel

				neighbour := rel.Target
				if neighbour == name {
					neighbour = rel.Source
				}
				if _, ok := visited[neighbour]; ok {
					continue
				}
				entity, ok, err := b.store.GetEntity(expandCtx, neighbour)
				if err != nil {
					return types.GraphContext{}, err
				}
				if !ok {
					continue
				}
				visited[neighbour] = entity
				next = append(next, neighbour)
			}
		}
		frontier = next
	}

	result := types.GraphContext{
		Nodes: make([]types.Entity, 0, len(visited)),
		Edges: make([]types.Relationship, 0, len(edges)),
	}
	for _, entity := range visited {
		result.Nodes = append(result.Nodes, entity)
	}
	for _, rel := range edges {
		result.Edges = append(result.Edges, rel)
	}
	sort.Slice(result.Nodes, func(i, j int) bool {
		return types.NormalizeEntityName(result.Nodes[i].Name) < types.NormalizeEntityName(result.Nodes[j].Name)
	})
	sort.Slice(result.Edges, func(i, j int) bool { return result.Edges[i].Key() < result.Edges[j].Key() })

	b.logger.Debug("graph expansion completed",
		zap.Int("seeds", len(seeds)),
		zap.Int("hops", maxHops),
		zap.Int("nodes", len(result.Nodes)),
		zap.Int("edges", len(result.Edges)))

	return result, nil
}

func (b *ContextBuilder) clampHops(maxHops int) int {
	if maxHops < 1 || maxHops > 3 {
		maxHops = b.cfg.MaxHops
	}
	if maxHops < 1 {
		maxHops = 1
	}
	if maxHops > 3 {
		maxHops = 3
	}
	return maxHops
}

// FormatContext 把扩展结果渲染为提示词可用的文本。
// 空结果返回空串，由调用方决定回退文案。
func FormatContext(gc types.GraphContext) string {
	if gc.Empty() {
		return ""
	}

	// 边的端点是归一化键，节点名带显示大小写，按归一化键对齐
	byKey := make(map[string]types.Entity, len(gc.Nodes))
	outgoing := make(map[string][]types.Relationship, len(gc.Nodes))
	for _, node := range gc.Nodes {
		byKey[types.NormalizeEntityName(node.Name)] = node
	}
	for _, edge := range gc.Edges {
		outgoing[edge.Source] = append(outgoing[edge.Source], edge)
	}

	var sb strings.Builder
	sb.WriteString("Knowledge Graph Context:\n")
	for _, node := range gc.Nodes {
		fmt.Fprintf(&sb, "\nEntity: %s (%s)", node.Name, node.Type)
		if node.Description != "" {
			fmt.Fprintf(&sb, ": %s", node.Description)
		}
		sb.WriteString("\n")
		for _, edge := range outgoing[types.NormalizeEntityName(node.Name)] {
			target := edge.Target
			targetType := types.EntityType("")
			if entity, ok := byKey[edge.Target]; ok {
				target = entity.Name
				targetType = entity.Type
			}
			fmt.Fprintf(&sb, "  └─ [%s] → %s (%s)\n", edge.Type, target, targetType)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
