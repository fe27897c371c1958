package extension

import (
	"errors"
	"fmt"

	"github.com/platinummonkey/extpoint/pkg/descriptor"
)

// Declaration errors.
var (
	ErrInvalidExtensionType = errors.New("invalid extension type")
	ErrPointConflict        = errors.New("extension point already declared with different options")
	ErrMultipleDefaults     = errors.New("more than 1 default extension name")
	ErrInvalidClass         = errors.New("invalid extension class")
	ErrDuplicateClass       = errors.New("extension class already registered")
)

// Descriptor line errors. These are captured per line while loading and
// never returned from a lookup directly.
var (
	ErrMissingName               = descriptor.ErrMissingName
	ErrInvalidName               = descriptor.ErrInvalidName
	ErrClassNotFound             = errors.New("extension class not found")
	ErrNotASubtype               = errors.New("extension class does not implement extension point")
	ErrMissingDefaultConstructor = errors.New("extension class has no default constructor")
	ErrMissingCopyConstructor    = errors.New("wrapper class has no copy constructor")
	ErrDuplicateAdaptive         = errors.New("more than 1 adaptive class found")
	ErrDuplicateName             = errors.New("duplicate extension name")
)

// Load, lookup and construction errors.
var (
	ErrLoadFailed              = errors.New("failed to load extension descriptors")
	ErrEmptyName               = errors.New("extension name is empty")
	ErrNoSuchExtension         = errors.New("no such extension")
	ErrNoSuchWrapper           = errors.New("no such wrapper")
	ErrNoDefaultExtension      = errors.New("no default extension")
	ErrNoAdaptiveExtension     = errors.New("no adaptive extension")
	ErrExtensionCreationFailed = errors.New("failed to create extension")
	ErrInjectionFailed         = errors.New("failed to inject extension")
	ErrCircularDependency      = errors.New("circular extension dependency")
)

// LoadError is a descriptor line that could not be registered.
type LoadError struct {
	Point    string // extension point identifier
	Resource string // location of the descriptor resource
	Line     int    // 1-based, 0 when unknown
	Raw      string // line as read
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load config line %d (%s) of %s for extension point %s, cause: %v",
		e.Line, e.Raw, e.Resource, e.Point, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
