package descriptor

import "errors"

var (
	// ErrMissingName is returned for a line without a name before '='.
	ErrMissingName = errors.New("missing extension name")
	// ErrMissingParenthesis is returned when an attribute list is not closed.
	ErrMissingParenthesis = errors.New("missing ')' of extension attribute")
	// ErrMissingClass is returned for a line without an implementation identifier.
	ErrMissingClass = errors.New("missing implementation identifier")
	// ErrInvalidName is returned for names not matching [A-Za-z0-9_]+.
	ErrInvalidName = errors.New("invalid extension name")
)

// Lint findings.
var (
	ErrConflictingName     = errors.New("name bound to more than one implementation")
	ErrConflictingAdaptive = errors.New("more than one adaptive implementation")
	ErrRedeclared          = errors.New("name declared more than once")
)
