package kg

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/llm"
	"github.com/BaSui01/agentgraph/types"
)

// 超出此长度的文本截断后再送入抽取提示词
const maxExtractChars = 3000

// titleCasePattern 匹配 2-4 个连续 Title-Case 单词，用于回退抽取。
var titleCasePattern = regexp.MustCompile(`\b(?:[A-Z][a-z]+\s){1,3}[A-Z][a-z]+\b`)

// EntityExtractor 从文本中抽取命名实体。
// 优先走 LLM JSON 抽取；LLM 不可用或解析失败时回退到
// Title-Case 启发式（全部标为 CONCEPT）。
type EntityExtractor struct {
	generator *llm.Generator
	logger    *zap.Logger
}

// NewEntityExtractor 创建实体抽取器。generator 可为 nil，此时只用回退路径。
func NewEntityExtractor(generator *llm.Generator, logger *zap.Logger) *EntityExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityExtractor{
		generator: generator,
		logger:    logger.With(zap.String("component", "entity_extractor")),
	}
}

// Extract 抽取实体，按归一化名去重，类型不在封闭集合内的归为 CONCEPT。
func (e *EntityExtractor) Extract(ctx context.Context, text string) ([]types.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	snippet := text
	if runes := []rune(snippet); len(runes) > maxExtractChars {
		snippet = string(runes[:maxExtractChars])
	}

	if e.generator.Available() {
		entities, err := e.llmExtract(ctx, snippet)
		if err == nil {
			return dedupEntities(entities), nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.logger.Warn("llm entity extraction failed, using fallback", zap.Error(err))
	}

	return dedupEntities(e.regexExtract(snippet)), nil
}

func (e *EntityExtractor) llmExtract(ctx context.Context, text string) ([]types.Entity, error) {
	raw, err := e.generator.Generate(ctx, llm.ExtractEntitiesPrompt(text))
	if err != nil {
		return nil, err
	}

	payload, err := extractJSONArray(raw)
	if err != nil {
		return nil, err
	}

	var parsed []struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse entity JSON: %w", err)
	}

	entities := make([]types.Entity, 0, len(parsed))
	for _, p := range parsed {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		entityType := types.EntityType(strings.ToUpper(strings.TrimSpace(p.Type)))
		if !types.ValidEntityType(entityType) {
			entityType = types.EntityConcept
		}
		entities = append(entities, types.Entity{
			Name:        name,
			Type:        entityType,
			Description: p.Description,
		})
	}

	e.logger.Info("llm extracted entities", zap.Int("count", len(entities)))
	return entities, nil
}

// regexExtract 回退路径：把 Title-Case 词组当作 CONCEPT 实体。
func (e *EntityExtractor) regexExtract(text string) []types.Entity {
	matches := titleCasePattern.FindAllString(text, -1)

	entities := make([]types.Entity, 0, len(matches))
	for _, m := range matches {
		entities = append(entities, types.Entity{
			Name: strings.TrimSpace(m),
			Type: types.EntityConcept,
		})
	}

	e.logger.Info("regex fallback extracted entities", zap.Int("count", len(entities)))
	return entities
}

// dedupEntities 按归一化名去重，保留首见者，顺序稳定。
func dedupEntities(entities []types.Entity) []types.Entity {
	seen := make(map[string]struct{}, len(entities))
	out := entities[:0]
	for _, entity := range entities {
		key := types.NormalizeEntityName(entity.Name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, entity)
	}
	return out
}

// extractJSONArray 从 LLM 回复中截取最外层 JSON 数组文本。
func extractJSONArray(raw string) (string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON array found in response")
	}
	return raw[start : end+1], nil
}
