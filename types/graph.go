package types

import "strings"

// EntityType 实体类型，封闭集合。
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityLocation     EntityType = "LOCATION"
	EntityTechnology   EntityType = "TECHNOLOGY"
	EntityConcept      EntityType = "CONCEPT"
	EntityEvent        EntityType = "EVENT"
	EntityProduct      EntityType = "PRODUCT"
	EntityDate         EntityType = "DATE"
)

// EntityTypes 按声明顺序列出全部合法实体类型。
var EntityTypes = []EntityType{
	EntityPerson, EntityOrganization, EntityLocation, EntityTechnology,
	EntityConcept, EntityEvent, EntityProduct, EntityDate,
}

// ValidEntityType 检查类型是否属于封闭集合。
func ValidEntityType(t EntityType) bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Entity 知识图谱实体。Name 是自然键，按精确名称（大小写归一化）去重。
type Entity struct {
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Description string     `json:"description,omitempty"`
}

// NormalizeEntityName 归一化实体名，用作图谱查找键：
// 去除首尾空白并统一小写。
func NormalizeEntityName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Relationship 实体间的有向边。
// 同一对实体之间允许多种关系类型，各自是独立的边。
// 一条边由 (Source, Type, Target) 唯一标识。
type Relationship struct {
	Source      string `json:"source"`
	Type        string `json:"type"`
	Target      string `json:"target"`
	Description string `json:"description,omitempty"`
}

// Key 返回边的去重键。
func (r Relationship) Key() string {
	return r.Source + "\x1f" + r.Type + "\x1f" + r.Target
}

// GraphContext 图谱扩展结果：节点集与边集。
type GraphContext struct {
	Nodes []Entity       `json:"nodes"`
	Edges []Relationship `json:"edges"`
}

// Empty 返回扩展结果是否为空。
func (g GraphContext) Empty() bool {
	return len(g.Nodes) == 0 && len(g.Edges) == 0
}
