package observability

import (
	"errors"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recoverFrom(f func()) (err error) {
	defer func() {
		err = RecoveredError(recover())
	}()
	f()
	return nil
}

func TestRecoveredError(t *testing.T) {
	assert.NoError(t, recoverFrom(func() {}))

	err := recoverFrom(func() { panic("bad constructor") })
	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "bad constructor", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Equal(t, "panic: bad constructor", err.Error())
	assert.Nil(t, panicErr.Unwrap())

	cause := errors.New("cause")
	err = recoverFrom(func() { panic(cause) })
	assert.ErrorIs(t, err, cause)
}

func TestLogPanic(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	LogPanic(logger, "constructor", &PanicError{Value: "x", Stack: []byte("stack")})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "PANIC recovered", entry.Message)
	assert.Equal(t, "constructor", entry.Data["context"])
	assert.Equal(t, "x", entry.Data["panic"])
}
