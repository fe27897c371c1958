package extension

import (
	"fmt"
	"time"

	"github.com/platinummonkey/extpoint/pkg/descriptor"
	"github.com/sirupsen/logrus"
)

// load reads every descriptor resource of the point into a fresh table.
// Callers hold r.mu.
func (r *Registry) load() *table {
	r.loads.Add(1)
	start := time.Now()
	s := r.manager.snapshot()
	log := s.logger.WithField("extension_point", r.point.id)
	name := DescriptorPath(r.point)

	var resources []Resource
	for _, src := range s.sources {
		found, err := src.Resources(name)
		if err != nil {
			log.WithError(err).Errorf("Exception when loading extension point (interface: %s, descriptor: %s)", r.point.typ, name)
			t := newTable()
			t.loadErr = fmt.Errorf("%w for extension point %s: %w", ErrLoadFailed, r.point.id, err)
			s.metrics.RecordLoad(r.point.id, time.Since(start), 0, 0, t.loadErr)
			return t
		}
		resources = append(resources, found...)
	}

	t := newTable()
	for _, res := range resources {
		r.readResource(t, res, log)
	}

	log.WithFields(logrus.Fields{
		"resources":  len(resources),
		"extensions": len(t.classes),
		"wrappers":   len(t.wrappers),
		"rejected":   t.diagnostics.Len(),
		"duration":   time.Since(start),
	}).Debug("Loaded extension point")

	s.metrics.RecordLoad(r.point.id, time.Since(start), len(t.classes), t.diagnostics.Len(), nil)
	return t
}

func (r *Registry) readResource(t *table, res Resource, log *logrus.Entry) {
	log = log.WithField("resource", res.Location)

	rc, err := res.Open()
	if err != nil {
		log.WithError(err).Error("Exception when opening extension descriptor")
		return
	}
	defer rc.Close()

	result, err := descriptor.Parse(rc)
	if err != nil {
		log.WithError(err).Error("Exception when reading extension descriptor")
	}

	// Apply entries and record rejected lines in file order.
	entries, lineErrs := result.Entries, result.Errors
	for len(entries) > 0 || len(lineErrs) > 0 {
		if len(lineErrs) > 0 && (len(entries) == 0 || lineErrs[0].Line < entries[0].Line) {
			le := lineErrs[0]
			lineErrs = lineErrs[1:]
			r.reject(t, res, le.Line, le.Raw, le.Err, log)
			continue
		}
		e := entries[0]
		entries = entries[1:]
		if err := r.apply(t, e); err != nil {
			r.reject(t, res, e.Line, e.Raw, err, log)
		}
	}
}

func (r *Registry) reject(t *table, res Resource, line int, raw string, err error, log *logrus.Entry) {
	le := &LoadError{
		Point:    r.point.id,
		Resource: res.Location,
		Line:     line,
		Raw:      raw,
		Err:      err,
	}
	log.WithField("line", line).Warn(le.Error())
	t.diagnostics.Set(raw, le)
}

// apply registers one descriptor entry.
func (r *Registry) apply(t *table, e descriptor.Entry) error {
	class, ok := LookupClass(e.Class)
	if !ok {
		return fmt.Errorf("%w: %s", ErrClassNotFound, e.Class)
	}
	if !class.typ.Implements(r.point.typ) {
		return fmt.Errorf("%w: class %s (%s) is not subtype of interface %s", ErrNotASubtype, class.id, class.typ, r.point.typ)
	}

	switch e.Kind {
	case descriptor.KindAdaptive:
		return r.applyAdaptive(t, class)
	case descriptor.KindWrapper:
		return r.applyWrapper(t, e, class)
	default:
		return r.applyNormal(t, e, class)
	}
}

func (r *Registry) applyAdaptive(t *table, class *Class) error {
	if !class.HasConstructor() {
		return fmt.Errorf("%w: adaptive class %s", ErrMissingDefaultConstructor, class.id)
	}
	if t.adaptive == nil {
		t.adaptive = class
		return nil
	}
	if t.adaptive == class {
		return nil
	}
	err := fmt.Errorf("%w for extension point %s: %s, %s", ErrDuplicateAdaptive, r.point.id, t.adaptive.id, class.id)
	if t.adaptiveErr == nil {
		t.adaptiveErr = err
	}
	t.conflicts = append(t.conflicts, err)
	return err
}

func (r *Registry) applyWrapper(t *table, e descriptor.Entry, class *Class) error {
	for _, n := range e.Names {
		if err := descriptor.ValidateName(n); err != nil {
			return err
		}
	}
	if !class.WrapsPoint(r.point.typ) {
		return fmt.Errorf("%w: class %s has no constructor taking %s", ErrMissingCopyConstructor, class.id, r.point.typ)
	}

	for _, n := range e.Names {
		existing, ok := t.wrappers[n]
		if ok && existing != class {
			err := fmt.Errorf("%w: wrapper %s on %s and %s", ErrDuplicateName, n, existing.id, class.id)
			t.conflicts = append(t.conflicts, err)
			return err
		}
		t.wrappers[n] = class
	}
	return nil
}

func (r *Registry) applyNormal(t *table, e descriptor.Entry, class *Class) error {
	for _, n := range e.Names {
		if err := descriptor.ValidateName(n); err != nil {
			return err
		}
	}
	if !class.HasConstructor() {
		return fmt.Errorf("%w: class %s", ErrMissingDefaultConstructor, class.id)
	}

	for _, n := range e.Names {
		existing, ok := t.classes[n]
		if ok && existing != class {
			err := fmt.Errorf("%w: %s on %s and %s", ErrDuplicateName, n, existing.id, class.id)
			t.conflicts = append(t.conflicts, err)
			return err
		}
		t.classes[n] = class
		t.attributes[n] = e.Attributes.Clone()
	}
	return nil
}
