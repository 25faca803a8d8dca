package kg

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/BaSui01/agentgraph/types"
)

// GraphStats 图谱基础统计。
type GraphStats struct {
	EntityCount       int64                      `json:"entity_count"`
	RelationshipCount int64                      `json:"relationship_count"`
	EntityTypeCounts  map[types.EntityType]int64 `json:"entity_type_counts"`
}

// GraphStore 知识图谱存储抽象。
// 所有方法按归一化实体名（types.NormalizeEntityName）工作。
type GraphStore interface {
	// GetEntity 按名称查找实体；不存在时 ok 为 false，不是错误。
	GetEntity(ctx context.Context, name string) (types.Entity, bool, error)

	// GetRelationships 返回与实体相连的所有边，含出边与入边。
	GetRelationships(ctx context.Context, name string) ([]types.Relationship, error)

	// UpsertEntities 批量写入实体，同名覆盖。
	UpsertEntities(ctx context.Context, entities []types.Entity) error

	// UpsertRelationships 批量写入边，同 (source, type, target) 覆盖。
	// 端点实体不存在的边被丢弃。
	UpsertRelationships(ctx context.Context, relationships []types.Relationship) error

	// SearchEntities 按名称大小写不敏感包含匹配搜索实体。
	SearchEntities(ctx context.Context, term string, limit int) ([]types.Entity, error)

	// Stats 返回图谱统计。
	Stats(ctx context.Context) (GraphStats, error)
}

// MemoryGraphStore 内存图谱存储，适合测试与无持久化部署。
type MemoryGraphStore struct {
	mu       sync.RWMutex
	entities map[string]types.Entity        // 归一化名 → 实体
	edges    map[string]types.Relationship  // Key() → 边
	adjacent map[string]map[string]struct{} // 归一化名 → 相连边的 Key() 集合
}

// NewMemoryGraphStore 创建空的内存图谱存储。
func NewMemoryGraphStore() *MemoryGraphStore {
	return &MemoryGraphStore{
		entities: make(map[string]types.Entity),
		edges:    make(map[string]types.Relationship),
		adjacent: make(map[string]map[string]struct{}),
	}
}

func (s *MemoryGraphStore) GetEntity(ctx context.Context, name string) (types.Entity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entities[types.NormalizeEntityName(name)]
	return entity, ok, nil
}

func (s *MemoryGraphStore) GetRelationships(ctx context.Context, name string) ([]types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.adjacent[types.NormalizeEntityName(name)]
	if len(keys) == 0 {
		return nil, nil
	}

	rels := make([]types.Relationship, 0, len(keys))
	for key := range keys {
		rels = append(rels, s.edges[key])
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].Key() < rels[j].Key() })
	return rels, nil
}

func (s *MemoryGraphStore) UpsertEntities(ctx context.Context, entities []types.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entity := range entities {
		key := types.NormalizeEntityName(entity.Name)
		if key == "" {
			continue
		}
		// 键归一化，Name 保留抽取到的显示大小写
		entity.Name = strings.TrimSpace(entity.Name)
		s.entities[key] = entity
	}
	return nil
}

func (s *MemoryGraphStore) UpsertRelationships(ctx context.Context, relationships []types.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rel := range relationships {
		rel.Source = types.NormalizeEntityName(rel.Source)
		rel.Target = types.NormalizeEntityName(rel.Target)
		if rel.Source == "" || rel.Target == "" || rel.Type == "" {
			continue
		}
		if _, ok := s.entities[rel.Source]; !ok {
			continue
		}
		if _, ok := s.entities[rel.Target]; !ok {
			continue
		}

		key := rel.Key()
		s.edges[key] = rel
		s.link(rel.Source, key)
		s.link(rel.Target, key)
	}
	return nil
}

func (s *MemoryGraphStore) link(name, edgeKey string) {
	set, ok := s.adjacent[name]
	if !ok {
		set = make(map[string]struct{})
		s.adjacent[name] = set
	}
	set[edgeKey] = struct{}{}
}

func (s *MemoryGraphStore) SearchEntities(ctx context.Context, term string, limit int) ([]types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := types.NormalizeEntityName(term)
	if needle == "" {
		return nil, nil
	}

	var found []types.Entity
	for name, entity := range s.entities {
		if strings.Contains(name, needle) {
			found = append(found, entity)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return types.NormalizeEntityName(found[i].Name) < types.NormalizeEntityName(found[j].Name)
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (s *MemoryGraphStore) Stats(ctx context.Context) (GraphStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := GraphStats{
		EntityCount:       int64(len(s.entities)),
		RelationshipCount: int64(len(s.edges)),
		EntityTypeCounts:  make(map[types.EntityType]int64),
	}
	for _, entity := range s.entities {
		stats.EntityTypeCounts[entity.Type]++
	}
	return stats, nil
}
