package extension

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/platinummonkey/extpoint/pkg/descriptor"
	"github.com/platinummonkey/extpoint/pkg/observability"
)

// Properties select extension names for injected dependencies, keyed by the
// dependency's extension point identifier. A missing or empty entry selects
// the dependency's default.
type Properties map[string]string

type options struct {
	props    Properties
	wrappers []string
}

// Option configures a single extension request.
type Option func(*options)

// WithProperties merges props into the properties used for injection.
// Under PolicySingleton they only take effect when the base instance is
// built; a cached instance keeps the dependencies it was built with.
func WithProperties(props Properties) Option {
	return func(o *options) {
		for k, v := range props {
			o.props[k] = v
		}
	}
}

// WithWrappers applies the named wrappers in order: the first wraps the base
// instance, the last is outermost.
func WithWrappers(names ...string) Option {
	return func(o *options) {
		o.wrappers = append(o.wrappers, names...)
	}
}

func newOptions(opts []Option) *options {
	o := &options{props: Properties{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// resolution tracks one top level request through nested injection.
type resolution struct {
	ctx   context.Context
	props Properties
	path  []string
}

func (res *resolution) enter(key string) (*resolution, error) {
	if slices.Contains(res.path, key) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCircularDependency, strings.Join(res.path, " -> "), key)
	}
	path := append(slices.Clip(res.path), key)
	return &resolution{ctx: res.ctx, props: res.props, path: path}, nil
}

// Extension creates the extension registered under name, injects its
// dependencies and applies the requested wrappers.
func (r *Registry) Extension(ctx context.Context, name string, opts ...Option) (any, error) {
	if name == "" {
		return nil, fmt.Errorf("%w for extension point %s", ErrEmptyName, r.point.id)
	}
	return r.request(ctx, name, newOptions(opts), func(res *resolution) (any, error) {
		return r.instance(res, name)
	})
}

// Default creates the default extension.
func (r *Registry) Default(ctx context.Context, opts ...Option) (any, error) {
	if r.defaultName == "" {
		return nil, fmt.Errorf("%w for extension point %s", ErrNoDefaultExtension, r.point.id)
	}
	return r.Extension(ctx, r.defaultName, opts...)
}

// Select creates the extension named by props under this point's identifier,
// falling back to the default. props is also used for injection.
func (r *Registry) Select(ctx context.Context, props Properties, opts ...Option) (any, error) {
	name := props[r.point.id]
	if name == "" {
		name = r.defaultName
	}
	if name == "" {
		return nil, fmt.Errorf("%w for extension point %s and no property selects one", ErrNoDefaultExtension, r.point.id)
	}
	return r.Extension(ctx, name, append([]Option{WithProperties(props)}, opts...)...)
}

// Adaptive creates the adaptive extension.
func (r *Registry) Adaptive(ctx context.Context, opts ...Option) (any, error) {
	t := r.table()
	if t.adaptiveErr != nil {
		return nil, t.adaptiveErr
	}
	if t.adaptive == nil {
		return nil, fmt.Errorf("%w for extension point %s", ErrNoAdaptiveExtension, r.point.id)
	}
	return r.request(ctx, descriptor.AdaptivePrefix, newOptions(opts), func(res *resolution) (any, error) {
		return r.resolve(res, descriptor.AdaptivePrefix, t.adaptive)
	})
}

func (r *Registry) request(ctx context.Context, name string, o *options, base func(*resolution) (any, error)) (inst any, err error) {
	ctx, span := observability.StartSpan(ctx, "extension.Create",
		observability.AttrPoint.String(r.point.id),
		observability.AttrName.String(name),
		observability.AttrWrappers.StringSlice(o.wrappers),
	)
	start := time.Now()
	defer func() {
		r.manager.metrics().RecordCreation(r.point.id, r.metricName(name), time.Since(start), err)
		observability.EndSpan(span, err)
	}()

	res := &resolution{ctx: ctx, props: o.props}
	inst, err = base(res)
	if err != nil {
		return nil, err
	}
	return r.wrap(res, inst, o.wrappers)
}

// unknownNameLabel stands in for unregistered names in metric labels. It is
// not a valid extension name.
const unknownNameLabel = "<unknown>"

// metricName bounds the name label to registered names.
func (r *Registry) metricName(name string) string {
	if name == descriptor.AdaptivePrefix {
		return name
	}
	if _, ok := r.table().classes[name]; ok {
		return name
	}
	return unknownNameLabel
}

func (r *Registry) instance(res *resolution, name string) (any, error) {
	t := r.table()
	class, ok := t.classes[name]
	if !ok {
		return nil, r.noSuchExtension(t, name)
	}
	return r.resolve(res, name, class)
}

func (r *Registry) resolve(res *resolution, name string, class *Class) (any, error) {
	res, err := res.enter(r.point.id + "#" + name)
	if err != nil {
		return nil, err
	}
	if r.cache == nil {
		return r.build(res, name, class)
	}
	return r.singleton(res, name, class)
}

// singleton returns the cached base instance for name, building it on a
// miss. Concurrent misses may build more than once; the first stored
// instance wins.
func (r *Registry) singleton(res *resolution, name string, class *Class) (any, error) {
	metrics := r.manager.metrics()
	if inst, ok := r.cache.Get(name); ok {
		metrics.RecordCacheHit(r.point.id)
		return inst, nil
	}
	metrics.RecordCacheMiss(r.point.id)

	inst, err := r.build(res, name, class)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if existing, ok := r.cache.Get(name); ok {
		return existing, nil
	}
	r.cache.Add(name, inst)
	return inst, nil
}

func (r *Registry) build(res *resolution, name string, class *Class) (any, error) {
	inst, err := r.call(class, func() (any, error) {
		return class.newFn()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: extension instance (name: %s, class: %s) couldn't be instantiated: %w",
			ErrExtensionCreationFailed, name, class.id, err)
	}
	if err := r.inject(res, inst, class); err != nil {
		return nil, fmt.Errorf("%w: extension instance (name: %s, class: %s): %w",
			ErrExtensionCreationFailed, name, class.id, err)
	}
	return inst, nil
}

// call runs a constructor, converting panics and nil results into errors.
func (r *Registry) call(class *Class, ctor func() (any, error)) (any, error) {
	var inst any
	err := r.protect("constructor of "+class.id, func() error {
		var err error
		inst, err = ctor()
		return err
	})
	if err == nil && isNil(inst) {
		err = errors.New("constructor returned nil")
	}
	return inst, err
}

// protect runs fn, converting a panic into a *observability.PanicError.
func (r *Registry) protect(where string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = observability.RecoveredError(p)
			observability.LogPanic(r.log(), where, err.(*observability.PanicError))
		}
	}()
	return fn()
}

func (r *Registry) inject(res *resolution, inst any, class *Class) error {
	for _, s := range class.setters {
		dep, ok := LookupPoint(s.dep)
		if !ok {
			continue
		}
		if s.dep == r.point.typ {
			r.log().Warnf("Ignore self set(%s) for class(%s) when inject", dep.id, class.id)
			continue
		}

		err := r.injectOne(res, inst, class, s, dep)
		r.manager.metrics().RecordInjection(r.point.id, dep.id, err)
		if err != nil {
			return fmt.Errorf("%w %s into class %s: %w", ErrInjectionFailed, dep.id, class.id, err)
		}
	}
	return nil
}

func (r *Registry) injectOne(res *resolution, inst any, class *Class, s setter, dep *Point) (err error) {
	ctx, span := observability.StartSpan(res.ctx, "extension.Inject",
		observability.AttrPoint.String(r.point.id),
		observability.AttrDependency.String(dep.id),
	)
	defer func() { observability.EndSpan(span, err) }()

	depReg, err := r.manager.Get(s.dep)
	if err != nil {
		return err
	}
	name := res.props[dep.id]
	if name == "" {
		name = depReg.defaultName
	}
	if name == "" {
		return fmt.Errorf("%w for extension point %s and no property selects one", ErrNoDefaultExtension, dep.id)
	}

	nested := &resolution{ctx: ctx, props: res.props, path: res.path}
	v, err := depReg.instance(nested, name)
	if err != nil {
		return err
	}
	return r.protect("setter of "+class.id+" for "+dep.id, func() error {
		return s.set(inst, v)
	})
}

func (r *Registry) wrap(res *resolution, inst any, wrappers []string) (any, error) {
	if len(wrappers) == 0 {
		return inst, nil
	}

	t := r.table()
	metrics := r.manager.metrics()
	for _, w := range wrappers {
		class, ok := t.wrappers[w]
		if !ok {
			return nil, fmt.Errorf("%w: %q for extension point %s", ErrNoSuchWrapper, w, r.point.id)
		}

		inner := inst
		next, err := r.call(class, func() (any, error) {
			return class.copyFn(inner)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: wrapper (name: %s, class: %s) for extension point %s: %w",
				ErrExtensionCreationFailed, w, class.id, r.point.id, err)
		}
		if err := r.inject(res, next, class); err != nil {
			return nil, fmt.Errorf("%w: wrapper (name: %s, class: %s) for extension point %s: %w",
				ErrExtensionCreationFailed, w, class.id, r.point.id, err)
		}
		metrics.RecordWrapper(r.point.id, w)
		inst = next
	}
	return inst, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
