package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordQuery(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector("agentgraph", reg, nil)

	c.RecordQuery("researcher", "success", 250*time.Millisecond, 3)
	c.RecordQuery("researcher", "success", 100*time.Millisecond, 3)
	c.RecordQuery("analyst", "error", time.Second, 5)

	require.Equal(t, 2.0, testutil.ToFloat64(
		c.queriesTotal.WithLabelValues("researcher", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(
		c.queriesTotal.WithLabelValues("analyst", "error")))
}

func TestCollector_RecordRetrievalDegradation(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector("agentgraph", reg, nil)

	c.RecordRetrieval("researcher", 5, false)
	c.RecordRetrieval("researcher", 2, true)
	c.RecordRetrieval("kg_builder", 0, true)

	require.Equal(t, 1.0, testutil.ToFloat64(
		c.retrievalDegradation.WithLabelValues("researcher")))
	require.Equal(t, 1.0, testutil.ToFloat64(
		c.retrievalDegradation.WithLabelValues("kg_builder")))
}

func TestCollector_GraphAndLLMMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector("agentgraph", reg, nil)

	c.RecordGraphExpansion("kg_builder", 12)
	c.SetGraphEntityCount(42)
	c.RecordLLMRequest("gpt-4o-mini", "success", 800*time.Millisecond)

	require.Equal(t, 42.0, testutil.ToFloat64(c.graphEntityCount))
	require.Equal(t, 1.0, testutil.ToFloat64(
		c.llmRequestsTotal.WithLabelValues("gpt-4o-mini", "success")))
}

func TestCollector_RegistersAllMetricFamilies(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector("agentgraph", reg, nil)

	c.RecordQuery("researcher", "success", time.Second, 3)
	c.RecordRetrieval("researcher", 5, true)
	c.RecordGraphExpansion("kg_builder", 1)
	c.SetGraphEntityCount(1)
	c.RecordLLMRequest("gpt-4o-mini", "success", time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 9)
}

func TestCollector_SeparateRegistriesDoNotCollide(t *testing.T) {
	t.Parallel()

	a := NewCollector("agentgraph", prometheus.NewRegistry(), nil)
	b := NewCollector("agentgraph", prometheus.NewRegistry(), nil)

	a.SetGraphEntityCount(1)
	b.SetGraphEntityCount(2)

	require.Equal(t, 1.0, testutil.ToFloat64(a.graphEntityCount))
	require.Equal(t, 2.0, testutil.ToFloat64(b.graphEntityCount))
}
