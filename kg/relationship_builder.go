package kg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/llm"
	"github.com/BaSui01/agentgraph/types"
)

const (
	// 送入关系推断提示词的文本上限
	maxRelationshipChars = 2000
	// 单次推断最多送入的实体数
	maxRelationshipEntities = 20
)

// RelationshipBuilder 用 LLM 在已抽取实体之间推断关系并落图。
type RelationshipBuilder struct {
	generator *llm.Generator
	store     GraphStore
	logger    *zap.Logger
}

// NewRelationshipBuilder 创建关系构建器。store 可为 nil，此时 Persist 是空操作。
func NewRelationshipBuilder(generator *llm.Generator, store GraphStore, logger *zap.Logger) *RelationshipBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationshipBuilder{
		generator: generator,
		store:     store,
		logger:    logger.With(zap.String("component", "relationship_builder")),
	}
}

// Build 在 entities 之间推断关系。
// 关系类型统一为 UPPER_SNAKE_CASE；自环与端点不在实体集内的关系被丢弃。
// 实体不足两个或 LLM 不可用时返回空，不视为错误。
func (b *RelationshipBuilder) Build(ctx context.Context, text string, entities []types.Entity) ([]types.Relationship, error) {
	if len(entities) < 2 || !b.generator.Available() {
		return nil, nil
	}

	rels, err := b.llmBuild(ctx, text, entities)
	if err != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.logger.Warn("llm relationship building failed", zap.Error(err))
		return nil, nil
	}
	return rels, nil
}

// Persist 尽力把实体与关系写入图谱存储，失败只记日志不抛错。
func (b *RelationshipBuilder) Persist(ctx context.Context, entities []types.Entity, relationships []types.Relationship) {
	if b.store == nil {
		return
	}

	if err := b.store.UpsertEntities(ctx, entities); err != nil {
		b.logger.Warn("graph persist failed for entities", zap.Error(err))
		return
	}
	if err := b.store.UpsertRelationships(ctx, relationships); err != nil {
		b.logger.Warn("graph persist failed for relationships", zap.Error(err))
		return
	}

	b.logger.Info("persisted graph batch",
		zap.Int("entities", len(entities)),
		zap.Int("relationships", len(relationships)))
}

func (b *RelationshipBuilder) llmBuild(ctx context.Context, text string, entities []types.Entity) ([]types.Relationship, error) {
	subset := entities
	if len(subset) > maxRelationshipEntities {
		subset = subset[:maxRelationshipEntities]
	}
	snippet := text
	if runes := []rune(snippet); len(runes) > maxRelationshipChars {
		snippet = string(runes[:maxRelationshipChars])
	}

	brief := make([]map[string]string, 0, len(subset))
	for _, entity := range subset {
		brief = append(brief, map[string]string{
			"name": entity.Name,
			"type": string(entity.Type),
		})
	}
	entitiesJSON, err := json.MarshalIndent(brief, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode entities: %w", err)
	}

	raw, err := b.generator.Generate(ctx, llm.ExtractRelationshipsPrompt(string(entitiesJSON), snippet))
	if err != nil {
		return nil, err
	}

	payload, err := extractJSONArray(raw)
	if err != nil {
		return nil, err
	}

	var parsed []struct {
		Source       string `json:"source"`
		Target       string `json:"target"`
		Relationship string `json:"relationship"`
		Description  string `json:"description"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse relationship JSON: %w", err)
	}

	known := make(map[string]struct{}, len(subset))
	for _, entity := range subset {
		known[types.NormalizeEntityName(entity.Name)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(parsed))
	rels := make([]types.Relationship, 0, len(parsed))
	for _, p := range parsed {
		source := types.NormalizeEntityName(p.Source)
		target := types.NormalizeEntityName(p.Target)
		if source == "" || target == "" || source == target {
			continue
		}
		if _, ok := known[source]; !ok {
			continue
		}
		if _, ok := known[target]; !ok {
			continue
		}

		relType := normalizeRelationType(p.Relationship)
		rel := types.Relationship{
			Source:      source,
			Type:        relType,
			Target:      target,
			Description: p.Description,
		}
		if _, dup := seen[rel.Key()]; dup {
			continue
		}
		seen[rel.Key()] = struct{}{}
		rels = append(rels, rel)
	}

	b.logger.Info("llm built relationships", zap.Int("count", len(rels)))
	return rels, nil
}

// normalizeRelationType 统一为 UPPER_SNAKE_CASE，空值归为 RELATED_TO。
func normalizeRelationType(relType string) string {
	relType = strings.TrimSpace(relType)
	if relType == "" {
		return "RELATED_TO"
	}
	return strings.ToUpper(strings.ReplaceAll(relType, " ", "_"))
}
