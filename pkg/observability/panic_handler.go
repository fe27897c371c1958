package observability

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// PanicError is a recovered panic converted to an error.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// RecoveredError converts the result of recover() into an error, nil when
// no panic occurred.
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        err = observability.RecoveredError(r)
//	    }
//	}()
func RecoveredError(r any) error {
	if r == nil {
		return nil
	}
	return &PanicError{Value: r, Stack: debug.Stack()}
}

// LogPanic logs a recovered panic at error level with its stack.
func LogPanic(log logrus.FieldLogger, where string, err *PanicError) {
	log.WithFields(logrus.Fields{
		"panic":   err.Value,
		"stack":   string(err.Stack),
		"context": where,
	}).Error("PANIC recovered")
}
