package kg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/agentgraph/types"
)

// entityRecord 实体表。NameKey 为归一化后的自然键，Name 保留显示大小写。
type entityRecord struct {
	ID          uint   `gorm:"primaryKey"`
	NameKey     string `gorm:"size:255;uniqueIndex;not null"`
	Name        string `gorm:"size:255;not null"`
	Type        string `gorm:"size:32;index;not null"`
	Description string `gorm:"type:text"`
}

func (entityRecord) TableName() string { return "kg_entities" }

// relationshipRecord 边表，(source, type, target) 唯一。
type relationshipRecord struct {
	ID          uint   `gorm:"primaryKey"`
	Source      string `gorm:"size:255;uniqueIndex:idx_edge,priority:1;index;not null"`
	Type        string `gorm:"size:64;uniqueIndex:idx_edge,priority:2;not null"`
	Target      string `gorm:"size:255;uniqueIndex:idx_edge,priority:3;index;not null"`
	Description string `gorm:"type:text"`
}

func (relationshipRecord) TableName() string { return "kg_relationships" }

// GormGraphStore 基于 SQLite 的持久化图谱存储。
type GormGraphStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormGraphStore 打开（必要时创建）path 处的 SQLite 图谱库并迁移表结构。
func NewGormGraphStore(path string, logger *zap.Logger) (*GormGraphStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&entityRecord{}, &relationshipRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate graph store: %w", err)
	}

	return &GormGraphStore{
		db:     db,
		logger: logger.With(zap.String("component", "gorm_graph_store")),
	}, nil
}

func (s *GormGraphStore) GetEntity(ctx context.Context, name string) (types.Entity, bool, error) {
	var record entityRecord
	err := s.db.WithContext(ctx).
		Where("name_key = ?", types.NormalizeEntityName(name)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Entity{}, false, nil
	}
	if err != nil {
		return types.Entity{}, false, storeErr("get entity", err)
	}
	return toEntity(record), true, nil
}

func (s *GormGraphStore) GetRelationships(ctx context.Context, name string) ([]types.Relationship, error) {
	key := types.NormalizeEntityName(name)

	var records []relationshipRecord
	err := s.db.WithContext(ctx).
		Where("source = ? OR target = ?", key, key).
		Order("source, type, target").
		Find(&records).Error
	if err != nil {
		return nil, storeErr("get relationships", err)
	}

	rels := make([]types.Relationship, 0, len(records))
	for _, record := range records {
		rels = append(rels, types.Relationship{
			Source:      record.Source,
			Type:        record.Type,
			Target:      record.Target,
			Description: record.Description,
		})
	}
	return rels, nil
}

func (s *GormGraphStore) UpsertEntities(ctx context.Context, entities []types.Entity) error {
	records := make([]entityRecord, 0, len(entities))
	seen := make(map[string]struct{}, len(entities))
	for _, entity := range entities {
		key := types.NormalizeEntityName(entity.Name)
		if key == "" {
			continue
		}
		// 同批重名只保留首个，避免冲突子句在一条语句内自撞
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		records = append(records, entityRecord{
			NameKey:     key,
			Name:        strings.TrimSpace(entity.Name),
			Type:        string(entity.Type),
			Description: entity.Description,
		})
	}
	if len(records) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "type", "description"}),
	}).Create(&records).Error
	if err != nil {
		return storeErr("upsert entities", err)
	}
	return nil
}

func (s *GormGraphStore) UpsertRelationships(ctx context.Context, relationships []types.Relationship) error {
	records := make([]relationshipRecord, 0, len(relationships))
	seen := make(map[string]struct{}, len(relationships))
	for _, rel := range relationships {
		rel.Source = types.NormalizeEntityName(rel.Source)
		rel.Target = types.NormalizeEntityName(rel.Target)
		if rel.Source == "" || rel.Target == "" || rel.Type == "" {
			continue
		}
		if _, dup := seen[rel.Key()]; dup {
			continue
		}
		if !s.entityExists(ctx, rel.Source) || !s.entityExists(ctx, rel.Target) {
			s.logger.Debug("skipping relationship with unknown endpoint",
				zap.String("source", rel.Source), zap.String("target", rel.Target))
			continue
		}
		seen[rel.Key()] = struct{}{}
		records = append(records, relationshipRecord{
			Source:      rel.Source,
			Type:        rel.Type,
			Target:      rel.Target,
			Description: rel.Description,
		})
	}
	if len(records) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "type"}, {Name: "target"}},
		DoUpdates: clause.AssignmentColumns([]string{"description"}),
	}).Create(&records).Error
	if err != nil {
		return storeErr("upsert relationships", err)
	}
	return nil
}

func (s *GormGraphStore) entityExists(ctx context.Context, name string) bool {
	var count int64
	s.db.WithContext(ctx).Model(&entityRecord{}).Where("name_key = ?", name).Count(&count)
	return count > 0
}

func (s *GormGraphStore) SearchEntities(ctx context.Context, term string, limit int) ([]types.Entity, error) {
	needle := types.NormalizeEntityName(term)
	if needle == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var records []entityRecord
	err := s.db.WithContext(ctx).
		Where("name_key LIKE ?", "%"+needle+"%").
		Order("name_key").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, storeErr("search entities", err)
	}

	entities := make([]types.Entity, 0, len(records))
	for _, record := range records {
		entities = append(entities, toEntity(record))
	}
	return entities, nil
}

func (s *GormGraphStore) Stats(ctx context.Context) (GraphStats, error) {
	stats := GraphStats{EntityTypeCounts: make(map[types.EntityType]int64)}

	if err := s.db.WithContext(ctx).Model(&entityRecord{}).Count(&stats.EntityCount).Error; err != nil {
		return GraphStats{}, storeErr("count entities", err)
	}
	if err := s.db.WithContext(ctx).Model(&relationshipRecord{}).Count(&stats.RelationshipCount).Error; err != nil {
		return GraphStats{}, storeErr("count relationships", err)
	}

	var typeCounts []struct {
		Type  string
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&entityRecord{}).
		Select("type, count(*) as count").
		Group("type").
		Scan(&typeCounts).Error
	if err != nil {
		return GraphStats{}, storeErr("count entity types", err)
	}
	for _, tc := range typeCounts {
		stats.EntityTypeCounts[types.EntityType(tc.Type)] = tc.Count
	}
	return stats, nil
}

func toEntity(record entityRecord) types.Entity {
	return types.Entity{
		Name:        record.Name,
		Type:        types.EntityType(record.Type),
		Description: record.Description,
	}
}

func storeErr(op string, err error) error {
	return types.NewError(types.ErrStoreUnavailable, "graph store "+op+" failed").WithCause(err)
}
