package extension

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSingletonCacheSize = 256
	DefaultSingletonTTL       = time.Duration(0)
)

type settings struct {
	logger    *logrus.Logger
	metrics   *observability.Metrics
	sources   []Source
	policy    InstancePolicy
	cacheSize int
	cacheTTL  time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*settings)

// WithLogger sets the logger used for load diagnostics and injection warnings.
func WithLogger(logger *logrus.Logger) ManagerOption {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(metrics *observability.Metrics) ManagerOption {
	return func(s *settings) {
		s.metrics = metrics
	}
}

// WithSources appends descriptor sources.
func WithSources(sources ...Source) ManagerOption {
	return func(s *settings) {
		s.sources = append(s.sources, sources...)
	}
}

// WithDefaultPolicy sets the instance policy for points that do not declare
// their own.
func WithDefaultPolicy(policy InstancePolicy) ManagerOption {
	return func(s *settings) {
		if policy != PolicyInherit {
			s.policy = policy
		}
	}
}

// WithSingletonCache sizes the per-point singleton cache. A zero ttl keeps
// instances until evicted by size.
func WithSingletonCache(size int, ttl time.Duration) ManagerOption {
	return func(s *settings) {
		if size > 0 {
			s.cacheSize = size
		}
		s.cacheTTL = ttl
	}
}

// Manager owns one Registry per extension point. Registries are created on
// first request and live until Clear.
type Manager struct {
	mu         sync.RWMutex
	settings   settings
	registries sync.Map // reflect.Type -> *Registry
}

// NewManager creates a Manager with no descriptor sources unless given.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		settings: settings{
			logger:    logrus.StandardLogger(),
			policy:    PolicyPrototype,
			cacheSize: DefaultSingletonCacheSize,
			cacheTTL:  DefaultSingletonTTL,
		},
	}
	m.Configure(opts...)
	return m
}

// Configure applies options. Policy and cache settings apply to registries
// created afterwards; logger, metrics and sources are read on every use.
func (m *Manager) Configure(opts ...ManagerOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, opt := range opts {
		opt(&m.settings)
	}
}

func (m *Manager) snapshot() settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.settings
	s.sources = append([]Source(nil), m.settings.sources...)
	return s
}

// Logger returns the configured logger.
func (m *Manager) Logger() *logrus.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.logger
}

// Get returns the registry for extension point t, creating it on first use.
// Concurrent first calls for the same type observe the same registry.
func (m *Manager) Get(t reflect.Type) (*Registry, error) {
	p, err := checkExtensionType(t)
	if err != nil {
		return nil, err
	}
	if r, ok := m.registries.Load(t); ok {
		return r.(*Registry), nil
	}

	r, err := newRegistry(m, p)
	if err != nil {
		return nil, err
	}
	actual, _ := m.registries.LoadOrStore(t, r)
	return actual.(*Registry), nil
}

// Clear drops every registry. Descriptors are reloaded on next use.
// Intended for tests.
func (m *Manager) Clear() {
	m.registries.Range(func(key, _ any) bool {
		m.registries.Delete(key)
		return true
	})
}

// Preload loads the descriptors of the given points concurrently, at most
// limit at a time. It returns the first lookup or load error.
func (m *Manager) Preload(ctx context.Context, limit int, types ...reflect.Type) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, t := range types {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := m.Get(t)
			if err != nil {
				return err
			}
			if err := r.Err(); err != nil {
				return fmt.Errorf("failed to preload extension point %s: %w", r.point.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

var std = NewManager(WithSources(embedded))

// Standard returns the process wide manager used by the package functions.
func Standard() *Manager {
	return std
}

// Configure applies options to the standard manager.
func Configure(opts ...ManagerOption) {
	std.Configure(opts...)
}

// Get returns the standard manager's registry for t.
func Get(t reflect.Type) (*Registry, error) {
	return std.Get(t)
}

// Clear drops every registry of the standard manager. Intended for tests.
func Clear() {
	std.Clear()
}

// Preload loads the given points on the standard manager.
func Preload(ctx context.Context, limit int, types ...reflect.Type) error {
	return std.Preload(ctx, limit, types...)
}

func (m *Manager) metrics() *observability.Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.metrics
}

// Loaded returns the registries created so far, sorted by point identifier.
func (m *Manager) Loaded() []*Registry {
	var out []*Registry
	m.registries.Range(func(_, v any) bool {
		out = append(out, v.(*Registry))
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].point.id < out[j].point.id
	})
	return out
}
