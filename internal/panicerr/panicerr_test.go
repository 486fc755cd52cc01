package panicerr

import (
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	errBoom := errors.New("boom")

	assert.NoError(t, Recover("nil", func() error { return nil }))
	assert.Equal(t, errBoom, Recover("plain", func() error { return errBoom }))

	err := Recover("worker", func() error { panic(errBoom) })
	assert.True(t, IsPanic(err))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, "worker panicked: boom", err.Error())
	assert.Contains(t, fmt.Sprintf("%+v", err), "Panic stack:")
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.NotEmpty(t, pe.Stack)

	err = Recover("value", func() error { panic(42) })
	assert.True(t, IsPanic(err))
	assert.Nil(t, errors.Unwrap(err))

	err = Recover("quitter", func() error {
		runtime.Goexit()
		return nil
	})
	assert.True(t, IsExit(err))
	assert.False(t, IsPanic(err))
	assert.Equal(t, "quitter called runtime.Goexit", err.Error())
}
