package extension

import (
	"context"
	"fmt"
	"reflect"

	"github.com/platinummonkey/extpoint/pkg/descriptor"
)

// Loader is a typed view of the Registry for extension point T.
type Loader[T any] struct {
	reg *Registry
}

// For returns the standard manager's loader for T.
func For[T any]() (*Loader[T], error) {
	return ForManager[T](std)
}

// MustFor is like For but panics on error.
func MustFor[T any]() *Loader[T] {
	l, err := For[T]()
	if err != nil {
		panic(err)
	}
	return l
}

// ForManager returns m's loader for T.
func ForManager[T any](m *Manager) (*Loader[T], error) {
	reg, err := m.Get(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Loader[T]{reg: reg}, nil
}

// Registry returns the untyped registry.
func (l *Loader[T]) Registry() *Registry { return l.reg }

// Point returns the extension point declaration.
func (l *Loader[T]) Point() *Point { return l.reg.point }

// Extension creates the extension registered under name.
func (l *Loader[T]) Extension(ctx context.Context, name string, opts ...Option) (T, error) {
	return l.cast(l.reg.Extension(ctx, name, opts...))
}

// Default creates the default extension.
func (l *Loader[T]) Default(ctx context.Context, opts ...Option) (T, error) {
	return l.cast(l.reg.Default(ctx, opts...))
}

// Select creates the extension named in props, falling back to the default.
func (l *Loader[T]) Select(ctx context.Context, props Properties, opts ...Option) (T, error) {
	return l.cast(l.reg.Select(ctx, props, opts...))
}

// Adaptive creates the adaptive extension.
func (l *Loader[T]) Adaptive(ctx context.Context, opts ...Option) (T, error) {
	return l.cast(l.reg.Adaptive(ctx, opts...))
}

func (l *Loader[T]) HasExtension(name string) bool { return l.reg.HasExtension(name) }
func (l *Loader[T]) Names() []string               { return l.reg.Names() }
func (l *Loader[T]) Wrappers() []string            { return l.reg.Wrappers() }
func (l *Loader[T]) DefaultName() string           { return l.reg.DefaultName() }
func (l *Loader[T]) HasDefault() bool              { return l.reg.HasDefault() }
func (l *Loader[T]) HasAdaptive() bool             { return l.reg.HasAdaptive() }
func (l *Loader[T]) Diagnostics() []*LoadError     { return l.reg.Diagnostics() }
func (l *Loader[T]) Err() error                    { return l.reg.Err() }

func (l *Loader[T]) Attributes(name string) (*descriptor.Attributes, error) {
	return l.reg.Attributes(name)
}

func (l *Loader[T]) AllAttributes() map[string]*descriptor.Attributes {
	return l.reg.AllAttributes()
}

func (l *Loader[T]) cast(v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T is not %s", ErrNotASubtype, v, l.reg.point.typ)
	}
	return t, nil
}
