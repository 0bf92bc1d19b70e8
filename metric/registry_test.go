package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry.PrometheusRegistry())
	require.NotNil(t, registry.CoreMetrics())

	// Core metrics must be gatherable without conflicts.
	registry.CoreMetrics().SchemasDerived.WithLabelValues("person").Inc()
	registry.CoreMetrics().RowsMaterialized.WithLabelValues("person").Add(2)
	registry.CoreMetrics().ObserveMaterialize("person", 5*time.Millisecond)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRegisterCounter_Duplicate(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "infer_records_sampled_total",
		Help: "test counter",
	})

	require.NoError(t, registry.RegisterCounter("infer", "sampled", counter))

	other := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "infer_records_sampled_total_2",
		Help: "test counter",
	})
	err := registry.RegisterCounter("infer", "sampled", other)
	assert.Error(t, err, "same component/metric key must be rejected")
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "session_open",
		Help: "test gauge",
	})
	require.NoError(t, registry.RegisterGauge("session", "open", gauge))

	assert.True(t, registry.Unregister("session", "open"))
	assert.False(t, registry.Unregister("session", "open"))

	// Re-registration after unregister must succeed.
	assert.NoError(t, registry.RegisterGauge("session", "open", gauge))
}
