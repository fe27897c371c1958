package extension

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Class is a registered implementation type. Descriptors refer to classes
// by id; the id is resolved against this table when a point loads.
type Class struct {
	id        string
	typ       reflect.Type
	newFn     func() (any, error)
	copyParam reflect.Type
	copyFn    func(inner any) (any, error)
	setters   []setter
}

type setter struct {
	target reflect.Type
	dep    reflect.Type
	set    func(inst, dep any) error
}

// ClassOption contributes a constructor or setter to a Class.
type ClassOption func(*Class) error

// ID returns the identifier descriptors use for the class.
func (c *Class) ID() string { return c.id }

// Type returns the concrete type produced by the class constructors.
func (c *Class) Type() reflect.Type { return c.typ }

// HasConstructor reports whether the class can be created with no arguments.
func (c *Class) HasConstructor() bool { return c.newFn != nil }

// WrapsPoint reports whether the class has a copy constructor taking exactly
// the point interface.
func (c *Class) WrapsPoint(point reflect.Type) bool {
	return c.copyFn != nil && c.copyParam == point
}

// Dependencies returns the types the class setters accept.
func (c *Class) Dependencies() []reflect.Type {
	deps := make([]reflect.Type, 0, len(c.setters))
	for _, s := range c.setters {
		deps = append(deps, s.dep)
	}
	return deps
}

func (c *Class) bindType(t reflect.Type) error {
	if c.typ != nil && c.typ != t {
		return fmt.Errorf("%w: class %s constructors disagree on type (%s and %s)", ErrInvalidClass, c.id, c.typ, t)
	}
	c.typ = t
	return nil
}

// Constructor registers the no-argument constructor.
func Constructor[T any](ctor func() T) ClassOption {
	return func(c *Class) error {
		if ctor == nil {
			return fmt.Errorf("%w: class %s has a nil constructor", ErrInvalidClass, c.id)
		}
		if err := c.bindType(reflect.TypeFor[T]()); err != nil {
			return err
		}
		c.newFn = func() (any, error) {
			return ctor(), nil
		}
		return nil
	}
}

// FallibleConstructor registers a no-argument constructor that may fail.
func FallibleConstructor[T any](ctor func() (T, error)) ClassOption {
	return func(c *Class) error {
		if ctor == nil {
			return fmt.Errorf("%w: class %s has a nil constructor", ErrInvalidClass, c.id)
		}
		if err := c.bindType(reflect.TypeFor[T]()); err != nil {
			return err
		}
		c.newFn = func() (any, error) {
			return ctor()
		}
		return nil
	}
}

// CopyConstructor registers the constructor that makes the class a wrapper.
// P must be the extension point interface for the class to wrap that point.
func CopyConstructor[P, T any](ctor func(P) T) ClassOption {
	return func(c *Class) error {
		if ctor == nil {
			return fmt.Errorf("%w: class %s has a nil copy constructor", ErrInvalidClass, c.id)
		}
		if err := c.bindType(reflect.TypeFor[T]()); err != nil {
			return err
		}
		c.copyParam = reflect.TypeFor[P]()
		c.copyFn = func(inner any) (any, error) {
			p, ok := inner.(P)
			if !ok {
				return nil, fmt.Errorf("%T cannot be passed as %s", inner, c.copyParam)
			}
			return ctor(p), nil
		}
		return nil
	}
}

// Setter registers an injection point. When D is a declared extension point
// the container resolves an instance of D and passes it to set after
// construction. Setters for other types are ignored.
func Setter[T, D any](set func(T, D)) ClassOption {
	return func(c *Class) error {
		if set == nil {
			return fmt.Errorf("%w: class %s has a nil setter", ErrInvalidClass, c.id)
		}
		c.setters = append(c.setters, setter{
			target: reflect.TypeFor[T](),
			dep:    reflect.TypeFor[D](),
			set: func(inst, dep any) error {
				ti, ok := inst.(T)
				if !ok {
					return fmt.Errorf("setter expects %s, got %T", reflect.TypeFor[T](), inst)
				}
				di, ok := dep.(D)
				if !ok {
					return fmt.Errorf("setter expects %s, got %T", reflect.TypeFor[D](), dep)
				}
				set(ti, di)
				return nil
			},
		})
		return nil
	}
}

var (
	classesMu sync.RWMutex
	classes   = make(map[string]*Class)
)

// RegisterClass adds an implementation to the class table under id. The
// class must have at least one constructor and every setter must target the
// constructed type.
func RegisterClass(id string, opts ...ClassOption) error {
	if id == "" {
		return fmt.Errorf("%w: class id is empty", ErrInvalidClass)
	}

	c := &Class{id: id}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	if c.typ == nil {
		return fmt.Errorf("%w: class %s has no constructor", ErrInvalidClass, id)
	}
	for _, s := range c.setters {
		if s.target != c.typ {
			return fmt.Errorf("%w: class %s setter targets %s, expected %s", ErrInvalidClass, id, s.target, c.typ)
		}
	}

	classesMu.Lock()
	defer classesMu.Unlock()

	if _, exists := classes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateClass, id)
	}
	classes[id] = c
	return nil
}

// MustRegisterClass is like RegisterClass but panics on error.
func MustRegisterClass(id string, opts ...ClassOption) {
	if err := RegisterClass(id, opts...); err != nil {
		panic(err)
	}
}

// LookupClass returns the class registered under id.
func LookupClass(id string) (*Class, bool) {
	classesMu.RLock()
	defer classesMu.RUnlock()
	c, ok := classes[id]
	return c, ok
}

// ListClasses returns all registered class ids, sorted.
func ListClasses() []string {
	classesMu.RLock()
	defer classesMu.RUnlock()

	ids := make([]string, 0, len(classes))
	for id := range classes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
