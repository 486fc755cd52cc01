package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/goconcat/internal/fileinput"
)

func TestError(t *testing.T) {
	inner := Typef(fileinput.Location{Name: "a", Line: 3, Col: 2}, "cannot assign %v to %v", "bool", "int")
	assert.Equal(t, "a:3:2: type error: cannot assign bool to int", inner.Error())

	call := fileinput.Location{Name: "a", Line: 9, Col: 1}
	outer := Wrap(inner, call, "while checking %v", "id")
	assert.Equal(t, "a:9:1: type error: while checking id", outer.Error())
	assert.Equal(t, "a:9:1: type error: while checking id\na:3:2: type error: cannot assign bool to int", fmt.Sprintf("%+v", outer))

	var de *Error
	require.True(t, errors.As(outer, &de))
	assert.Equal(t, TypeError, de.Kind)
	assert.Same(t, inner, Root(outer))

	assert.Same(t, inner, Wrap(inner, inner.Pos, ""))
	assert.Nil(t, Wrap(nil, call, "x"))
}

func TestWrapForeign(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(base, fileinput.Location{Name: "b", Line: 1, Col: 1}, "")
	assert.Equal(t, "b:1:1: syntax error: boom", err.Error())
	assert.ErrorIs(t, err, base)
}
