// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 查询指标
	queriesTotal   *prometheus.CounterVec
	queryDuration  *prometheus.HistogramVec
	queryStepCount *prometheus.HistogramVec

	// 检索指标
	retrievalCandidates  *prometheus.HistogramVec
	retrievalDegradation *prometheus.CounterVec

	// 图谱指标
	graphExpansionNodes *prometheus.HistogramVec
	graphEntityCount    prometheus.Gauge

	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到 reg。
// reg 为 nil 时使用全局默认注册表。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 查询指标
	c.queriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of queries processed",
		},
		[]string{"route", "status"},
	)

	c.queryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end query duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"route"},
	)

	c.queryStepCount = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_steps",
			Help:      "Number of pipeline steps taken per query",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
		[]string{"route"},
	)

	// 检索指标
	c.retrievalCandidates = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_candidates",
			Help:      "Number of candidates returned by hybrid retrieval",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		},
		[]string{"route"},
	)

	c.retrievalDegradation = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_degradations_total",
			Help:      "Total number of queries served with a degraded retrieval source",
		},
		[]string{"route"},
	)

	// 图谱指标
	c.graphExpansionNodes = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_expansion_nodes",
			Help:      "Number of nodes returned by graph expansion",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"route"},
	)

	c.graphEntityCount = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_entities",
			Help:      "Number of entities currently stored in the knowledge graph",
		},
	)

	// LLM 指标
	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM generation requests",
		},
		[]string{"model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 查询指标记录
// =============================================================================

// RecordQuery 记录一次端到端查询
func (c *Collector) RecordQuery(route, status string, duration time.Duration, steps int) {
	c.queriesTotal.WithLabelValues(route, status).Inc()
	c.queryDuration.WithLabelValues(route).Observe(duration.Seconds())
	c.queryStepCount.WithLabelValues(route).Observe(float64(steps))
}

// RecordRetrieval 记录检索结果
func (c *Collector) RecordRetrieval(route string, candidates int, degraded bool) {
	c.retrievalCandidates.WithLabelValues(route).Observe(float64(candidates))
	if degraded {
		c.retrievalDegradation.WithLabelValues(route).Inc()
	}
}

// RecordGraphExpansion 记录图谱扩展结果
func (c *Collector) RecordGraphExpansion(route string, nodes int) {
	c.graphExpansionNodes.WithLabelValues(route).Observe(float64(nodes))
}

// SetGraphEntityCount 更新图谱实体总数
func (c *Collector) SetGraphEntityCount(count int64) {
	c.graphEntityCount.Set(float64(count))
}

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(model, status string, duration time.Duration) {
	c.llmRequestsTotal.WithLabelValues(model, status).Inc()
	c.llmRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}
