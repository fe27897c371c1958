package extension

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Point is the declaration of an extension point: an interface type, its
// identifier and an optional default extension name. Declaring a type is
// what makes it eligible for extension loading and injection.
type Point struct {
	typ         reflect.Type
	id          string
	defaultName string
	policy      InstancePolicy
}

// PointOption configures a Point at declaration.
type PointOption func(*Point)

// WithDefault sets the default extension name. It is validated when the
// point's registry is first requested.
func WithDefault(name string) PointOption {
	return func(p *Point) {
		p.defaultName = name
	}
}

// WithID overrides the identifier derived from the Go type. The identifier
// names the descriptor resource and keys Properties.
func WithID(id string) PointOption {
	return func(p *Point) {
		p.id = id
	}
}

// WithInstancePolicy overrides the manager's instance policy for this point.
func WithInstancePolicy(policy InstancePolicy) PointOption {
	return func(p *Point) {
		p.policy = policy
	}
}

// ID returns the extension point identifier.
func (p *Point) ID() string { return p.id }

// Type returns the interface type.
func (p *Point) Type() reflect.Type { return p.typ }

// DefaultName returns the default name exactly as declared.
func (p *Point) DefaultName() string { return p.defaultName }

// Policy returns the declared instance policy, PolicyInherit when unset.
func (p *Point) Policy() InstancePolicy { return p.policy }

func (p *Point) String() string { return p.id }

var (
	pointsMu sync.RWMutex
	points   = make(map[reflect.Type]*Point)
)

// DeclarePoint declares T as an extension point. T must be an interface.
// Declaring the same type again with identical options returns the existing
// declaration.
func DeclarePoint[T any](opts ...PointOption) (*Point, error) {
	return declarePoint(reflect.TypeFor[T](), opts...)
}

// MustDeclarePoint is like DeclarePoint but panics on error. Intended for
// package level variable initialization.
func MustDeclarePoint[T any](opts ...PointOption) *Point {
	p, err := DeclarePoint[T](opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func declarePoint(t reflect.Type, opts ...PointOption) (*Point, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: extension type == nil", ErrInvalidExtensionType)
	}
	if t.Kind() != reflect.Interface {
		return nil, fmt.Errorf("%w: extension type (%s) is not an interface", ErrInvalidExtensionType, t)
	}

	p := &Point{typ: t, id: typeID(t)}
	for _, opt := range opts {
		opt(p)
	}
	if p.id == "" {
		return nil, fmt.Errorf("%w: extension type (%s) has an empty identifier", ErrInvalidExtensionType, t)
	}

	pointsMu.Lock()
	defer pointsMu.Unlock()

	if existing, ok := points[t]; ok {
		if *existing == *p {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrPointConflict, existing.id)
	}
	points[t] = p
	return p, nil
}

// LookupPoint returns the declaration of t, if any.
func LookupPoint(t reflect.Type) (*Point, bool) {
	if t == nil {
		return nil, false
	}
	pointsMu.RLock()
	defer pointsMu.RUnlock()
	p, ok := points[t]
	return p, ok
}

// IsPoint reports whether t is an interface declared as an extension point.
func IsPoint(t reflect.Type) bool {
	_, ok := LookupPoint(t)
	return ok
}

// checkExtensionType validates t the same way for every entry point.
func checkExtensionType(t reflect.Type) (*Point, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: extension type == nil", ErrInvalidExtensionType)
	}
	if t.Kind() != reflect.Interface {
		return nil, fmt.Errorf("%w: extension type (%s) is not an interface", ErrInvalidExtensionType, t)
	}
	p, ok := LookupPoint(t)
	if !ok {
		return nil, fmt.Errorf("%w: type (%s) is not an extension point, it was never declared", ErrInvalidExtensionType, t)
	}
	return p, nil
}

// typeID derives "<import path>.<name>" for named types, dereferencing
// pointers, and falls back to the type's string form.
func typeID(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Points returns every declared extension point, sorted by identifier.
func Points() []*Point {
	pointsMu.RLock()
	out := make([]*Point, 0, len(points))
	for _, p := range points {
		out = append(out, p)
	}
	pointsMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].id == out[j].id {
			return out[i].typ.String() < out[j].typ.String()
		}
		return out[i].id < out[j].id
	})
	return out
}
