package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/kg"
	"github.com/BaSui01/agentgraph/types"
)

// KGBuilder 从检索到的文本中抽取实体与关系，落图后
// 做有界跳数扩展，产出结构化图谱上下文。
type KGBuilder struct {
	extractor  *kg.EntityExtractor
	relBuilder *kg.RelationshipBuilder
	contexts   *kg.ContextBuilder
	cfg        config.GraphConfig
	logger     *zap.Logger
}

// NewKGBuilder 创建 kg_builder 阶段。
func NewKGBuilder(
	extractor *kg.EntityExtractor,
	relBuilder *kg.RelationshipBuilder,
	contexts *kg.ContextBuilder,
	cfg config.GraphConfig,
	logger *zap.Logger,
) *KGBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KGBuilder{
		extractor:  extractor,
		relBuilder: relBuilder,
		contexts:   contexts,
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "kg_builder")),
	}
}

// Run 执行图谱构建阶段。
// candidates 是（可能为空的）已检索文本；为空时直接从查询本身抽取实体。
// 图谱查不到任何东西不是错误，返回空上下文。
func (b *KGBuilder) Run(ctx context.Context, query string, candidates []types.RetrievalCandidate) (kgDelta, error) {
	text := combineTexts(candidates)
	if text == "" {
		text = query
	}

	entities, err := b.extractor.Extract(ctx, text)
	if err != nil {
		return kgDelta{}, err
	}
	if len(entities) == 0 {
		b.logger.Info("no entities extracted, skipping graph expansion")
		return kgDelta{}, nil
	}

	relationships, err := b.relBuilder.Build(ctx, text, entities)
	if err != nil {
		return kgDelta{}, err
	}

	// 落图是尽力而为的，失败不阻断查询
	b.relBuilder.Persist(ctx, entities, relationships)

	seeds := make([]string, 0, len(entities))
	for _, entity := range entities {
		seeds = append(seeds, entity.Name)
	}
	graphCtx, err := b.contexts.Expand(ctx, seeds, b.cfg.MaxHops)
	if err != nil {
		return kgDelta{}, err
	}

	b.logger.Info("kg builder completed",
		zap.Int("entities", len(entities)),
		zap.Int("relationships", len(relationships)),
		zap.Int("graph_nodes", len(graphCtx.Nodes)),
		zap.Int("graph_edges", len(graphCtx.Edges)))

	return kgDelta{
		entities:      entities,
		relationships: relationships,
		kgContext:     kg.FormatContext(graphCtx),
		graphNodes:    len(graphCtx.Nodes),
	}, nil
}

func combineTexts(candidates []types.RetrievalCandidate) string {
	var parts []string
	for _, cand := range candidates {
		if cand.Text != "" {
			parts = append(parts, cand.Text)
		}
	}
	return strings.Join(parts, " ")
}
