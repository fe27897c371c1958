package extension

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/extpoint/pkg/descriptor"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry holds the extensions of one extension point. Descriptors are read
// on first query; every later query reads the same immutable table.
type Registry struct {
	manager     *Manager
	point       *Point
	defaultName string
	policy      InstancePolicy

	mu    sync.Mutex
	state atomic.Pointer[table]
	loads atomic.Int32

	cacheMu sync.Mutex
	cache   *expirable.LRU[string, any]
}

// table is the loaded state of a registry. It is never mutated once
// published.
type table struct {
	classes     map[string]*Class
	wrappers    map[string]*Class
	attributes  map[string]*descriptor.Attributes
	adaptive    *Class
	adaptiveErr error
	diagnostics *orderedmap.OrderedMap[string, *LoadError]
	conflicts   []error
	loadErr     error
}

func newTable() *table {
	return &table{
		classes:     make(map[string]*Class),
		wrappers:    make(map[string]*Class),
		attributes:  make(map[string]*descriptor.Attributes),
		diagnostics: orderedmap.New[string, *LoadError](),
	}
}

func newRegistry(m *Manager, p *Point) (*Registry, error) {
	defaultName, err := validateDefault(p)
	if err != nil {
		return nil, err
	}

	s := m.snapshot()
	policy := p.policy
	if policy == PolicyInherit {
		policy = s.policy
	}

	r := &Registry{
		manager:     m,
		point:       p,
		defaultName: defaultName,
		policy:      policy,
	}
	if policy == PolicySingleton {
		r.cache = expirable.NewLRU[string, any](s.cacheSize, nil, s.cacheTTL)
	}
	return r, nil
}

func validateDefault(p *Point) (string, error) {
	raw := strings.TrimSpace(p.defaultName)
	if raw == "" {
		return "", nil
	}
	names := descriptor.SplitNames(raw)
	if len(names) == 1 && names[0] == "" {
		return "", nil
	}
	if len(names) > 1 {
		return "", fmt.Errorf("%w on extension %s: %v", ErrMultipleDefaults, p.id, names)
	}
	if err := descriptor.ValidateName(names[0]); err != nil {
		return "", fmt.Errorf("default name of extension point %s: %w", p.id, err)
	}
	return names[0], nil
}

// Point returns the extension point declaration.
func (r *Registry) Point() *Point { return r.point }

// Policy returns the effective instance policy.
func (r *Registry) Policy() InstancePolicy { return r.policy }

func (r *Registry) log() *logrus.Entry {
	return r.manager.Logger().WithField("extension_point", r.point.id)
}

func (r *Registry) table() *table {
	if t := r.state.Load(); t != nil {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t := r.state.Load(); t != nil {
		return t
	}
	t := r.load()
	r.state.Store(t)
	return t
}

// HasExtension reports whether name is registered. The empty name never is.
func (r *Registry) HasExtension(name string) bool {
	if name == "" {
		return false
	}
	_, ok := r.table().classes[name]
	return ok
}

// Names returns the registered extension names, sorted.
func (r *Registry) Names() []string {
	return sortedKeys(r.table().classes)
}

// Wrappers returns the registered wrapper names, sorted.
func (r *Registry) Wrappers() []string {
	return sortedKeys(r.table().wrappers)
}

// DefaultName returns the validated default name, or "" when none is declared.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// HasDefault reports whether the point declares a default name.
func (r *Registry) HasDefault() bool {
	return r.defaultName != ""
}

// Attributes returns a copy of the attributes declared with name.
func (r *Registry) Attributes(name string) (*descriptor.Attributes, error) {
	if name == "" {
		return nil, fmt.Errorf("%w for extension point %s", ErrEmptyName, r.point.id)
	}
	t := r.table()
	if _, ok := t.classes[name]; !ok {
		return nil, r.noSuchExtension(t, name)
	}
	return t.attributes[name].Clone(), nil
}

// AllAttributes returns a copy of the attributes of every extension name.
func (r *Registry) AllAttributes() map[string]*descriptor.Attributes {
	t := r.table()
	out := make(map[string]*descriptor.Attributes, len(t.classes))
	for name := range t.classes {
		out[name] = t.attributes[name].Clone()
	}
	return out
}

// Diagnostics returns the rejected descriptor lines in the order they were
// read. A line repeated verbatim is reported once.
func (r *Registry) Diagnostics() []*LoadError {
	t := r.table()
	out := make([]*LoadError, 0, t.diagnostics.Len())
	for pair := t.diagnostics.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Err returns the errors that make the registry unusable as declared: a
// failed resource enumeration, conflicting adaptive classes or conflicting
// names. Lines skipped for other reasons are only reported by Diagnostics.
func (r *Registry) Err() error {
	t := r.table()
	errs := make([]error, 0, len(t.conflicts)+1)
	if t.loadErr != nil {
		errs = append(errs, t.loadErr)
	}
	errs = append(errs, t.conflicts...)
	return errors.Join(errs...)
}

// LoadCount returns how many times descriptors were read. It is 1 after the
// first query.
func (r *Registry) LoadCount() int {
	return int(r.loads.Load())
}

// noSuchExtension reports a missing name, citing the diagnostic whose raw
// line mentions the name when there is one, and every diagnostic otherwise.
func (r *Registry) noSuchExtension(t *table, name string) error {
	msg := fmt.Sprintf("by name %s for extension point %s", name, r.point.id)

	lower := strings.ToLower(name)
	for pair := t.diagnostics.Oldest(); pair != nil; pair = pair.Next() {
		if strings.Contains(strings.ToLower(pair.Key), lower) {
			return fmt.Errorf("%w %s, cause: %w", ErrNoSuchExtension, msg, pair.Value)
		}
	}

	var b strings.Builder
	b.WriteString(msg)
	if t.loadErr != nil {
		fmt.Fprintf(&b, ", cause: %v", t.loadErr)
	}
	if t.diagnostics.Len() > 0 {
		b.WriteString(", possible causes: ")
		i := 1
		for pair := t.diagnostics.Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(&b, "\r\n(%d) %s:\r\n%v", i, pair.Key, pair.Value.Err)
			i++
		}
	}
	return fmt.Errorf("%w %s", ErrNoSuchExtension, b.String())
}

func sortedKeys(m map[string]*Class) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasAdaptive reports whether exactly one adaptive class was declared.
func (r *Registry) HasAdaptive() bool {
	t := r.table()
	return t.adaptive != nil && t.adaptiveErr == nil
}
