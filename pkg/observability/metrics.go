package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for extension loading and creation.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Descriptor loading
	DescriptorLoadsTotal   *prometheus.CounterVec
	DescriptorLoadDuration *prometheus.HistogramVec
	DescriptorLineErrors   *prometheus.CounterVec
	ExtensionsRegistered   *prometheus.GaugeVec

	// Instantiation
	CreationsTotal   *prometheus.CounterVec
	CreationDuration *prometheus.HistogramVec
	InjectionsTotal  *prometheus.CounterVec
	WrappersApplied  *prometheus.CounterVec

	// Singleton cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all extension metrics. A nil registerer
// creates the collectors without registering them.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		DescriptorLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_descriptor_loads_total",
				Help: "Total number of descriptor loads per extension point",
			},
			[]string{"point", "status"},
		),
		DescriptorLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extpoint_descriptor_load_duration_seconds",
				Help:    "Descriptor load duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"point"},
		),
		DescriptorLineErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_descriptor_line_errors_total",
				Help: "Total number of descriptor lines rejected while loading",
			},
			[]string{"point"},
		),
		ExtensionsRegistered: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "extpoint_extensions_registered",
				Help: "Number of extension names registered per extension point",
			},
			[]string{"point"},
		),
		CreationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_creations_total",
				Help: "Total number of extension instances created",
			},
			[]string{"point", "name", "status"},
		),
		CreationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extpoint_creation_duration_seconds",
				Help:    "Extension creation duration in seconds, injection and wrapping included",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"point"},
		),
		InjectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_injections_total",
				Help: "Total number of dependencies injected",
			},
			[]string{"point", "dependency", "status"},
		),
		WrappersApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_wrappers_applied_total",
				Help: "Total number of wrappers applied",
			},
			[]string{"point", "wrapper"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_singleton_cache_hits_total",
				Help: "Total number of singleton cache hits",
			},
			[]string{"point"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extpoint_singleton_cache_misses_total",
				Help: "Total number of singleton cache misses",
			},
			[]string{"point"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.DescriptorLoadsTotal,
			m.DescriptorLoadDuration,
			m.DescriptorLineErrors,
			m.ExtensionsRegistered,
			m.CreationsTotal,
			m.CreationDuration,
			m.InjectionsTotal,
			m.WrappersApplied,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
		)
	}

	return m
}

// RecordLoad records one descriptor load for a point.
func (m *Metrics) RecordLoad(point string, duration time.Duration, registered, lineErrors int, err error) {
	if m == nil {
		return
	}
	m.DescriptorLoadsTotal.WithLabelValues(point, status(err)).Inc()
	m.DescriptorLoadDuration.WithLabelValues(point).Observe(duration.Seconds())
	m.ExtensionsRegistered.WithLabelValues(point).Set(float64(registered))
	if lineErrors > 0 {
		m.DescriptorLineErrors.WithLabelValues(point).Add(float64(lineErrors))
	}
}

// RecordCreation records the outcome of a top level extension request. Callers
// pass a bounded name so that unknown names do not create new series.
func (m *Metrics) RecordCreation(point, name string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.CreationsTotal.WithLabelValues(point, name, status(err)).Inc()
	m.CreationDuration.WithLabelValues(point).Observe(duration.Seconds())
}

// RecordInjection records one setter injection.
func (m *Metrics) RecordInjection(point, dependency string, err error) {
	if m == nil {
		return
	}
	m.InjectionsTotal.WithLabelValues(point, dependency, status(err)).Inc()
}

// RecordWrapper records one applied wrapper.
func (m *Metrics) RecordWrapper(point, wrapper string) {
	if m == nil {
		return
	}
	m.WrappersApplied.WithLabelValues(point, wrapper).Inc()
}

// RecordCacheHit records a singleton cache hit.
func (m *Metrics) RecordCacheHit(point string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(point).Inc()
}

// RecordCacheMiss records a singleton cache miss.
func (m *Metrics) RecordCacheMiss(point string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(point).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
