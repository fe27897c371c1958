package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	t.Run("registers all collectors", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		m := NewMetrics(registry)
		require.NotNil(t, m)

		m.RecordLoad("p", time.Millisecond, 1, 0, nil)
		m.RecordCreation("p", "n", time.Millisecond, nil)
		m.RecordInjection("p", "d", nil)
		m.RecordWrapper("p", "w")
		m.RecordCacheHit("p")
		m.RecordCacheMiss("p")

		families, err := registry.Gather()
		require.NoError(t, err)
		names := make([]string, 0, len(families))
		for _, f := range families {
			names = append(names, f.GetName())
		}
		assert.ElementsMatch(t, []string{
			"extpoint_descriptor_loads_total",
			"extpoint_descriptor_load_duration_seconds",
			"extpoint_extensions_registered",
			"extpoint_creations_total",
			"extpoint_creation_duration_seconds",
			"extpoint_injections_total",
			"extpoint_wrappers_applied_total",
			"extpoint_singleton_cache_hits_total",
			"extpoint_singleton_cache_misses_total",
		}, names)
	})

	t.Run("double registration panics", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		NewMetrics(registry)
		assert.Panics(t, func() { NewMetrics(registry) })
	})

	t.Run("nil registerer", func(t *testing.T) {
		assert.NotNil(t, NewMetrics(nil))
	})
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordLoad("codec", 2*time.Millisecond, 3, 2, nil)
	m.RecordLoad("codec", time.Millisecond, 0, 0, errors.New("listing failed"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DescriptorLoadsTotal.WithLabelValues("codec", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DescriptorLoadsTotal.WithLabelValues("codec", "error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.DescriptorLineErrors.WithLabelValues("codec")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ExtensionsRegistered.WithLabelValues("codec")))

	m.RecordCreation("codec", "json", time.Millisecond, nil)
	m.RecordCreation("codec", "json", time.Millisecond, errors.New("boom"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CreationsTotal.WithLabelValues("codec", "json", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CreationsTotal.WithLabelValues("codec", "json", "error")))

	m.RecordInjection("codec", "compressor", nil)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InjectionsTotal.WithLabelValues("codec", "compressor", "success")))

	m.RecordWrapper("codec", "logging")
	m.RecordWrapper("codec", "logging")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.WrappersApplied.WithLabelValues("codec", "logging")))

	m.RecordCacheHit("codec")
	m.RecordCacheMiss("codec")
	m.RecordCacheMiss("codec")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("codec")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("codec")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLoad("p", time.Second, 1, 1, nil)
		m.RecordCreation("p", "n", time.Second, nil)
		m.RecordInjection("p", "d", nil)
		m.RecordWrapper("p", "w")
		m.RecordCacheHit("p")
		m.RecordCacheMiss("p")
	})
}
