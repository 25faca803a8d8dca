package agent

import "strings"

// RouteLabel 查询处理路线。
type RouteLabel string

const (
	RouteResearcher RouteLabel = "researcher"
	RouteKGBuilder  RouteLabel = "kg_builder"
	RouteAnalyst    RouteLabel = "analyst"
)

// 强烈指示图谱构建意图的关键词
var kgKeywords = []string{
	"extract entities",
	"build graph",
	"create graph",
	"knowledge graph",
	"entities",
	"relationships",
	"map out",
	"connections between",
	"related to",
}

// 指示分析/比较型推理的关键词
var analystKeywords = []string{
	"compare",
	"contrast",
	"analyze",
	"analyse",
	"summarize",
	"summarise",
	"evaluate",
	"assessment",
	"pros and cons",
	"difference between",
	"similarities",
}

// Router 按关键词优先级给查询分配路线。
// 纯函数式分类：没有失败模式，无规则命中时落到默认的 researcher。
type Router struct{}

// NewRouter 创建路由器。
func NewRouter() *Router {
	return &Router{}
}

// Route 分类查询。优先级：图谱线索 → 分析线索 → 默认 researcher。
func (r *Router) Route(query string) RouteLabel {
	lower := strings.ToLower(query)

	for _, kw := range kgKeywords {
		if strings.Contains(lower, kw) {
			return RouteKGBuilder
		}
	}
	for _, kw := range analystKeywords {
		if strings.Contains(lower, kw) {
			return RouteAnalyst
		}
	}
	return RouteResearcher
}
