package natives

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/types"
)

type bufEnv struct{ bytes.Buffer }

func (env *bufEnv) Output() io.Writer { return &env.Buffer }

// find returns the native named name whose inputs are exactly in.
func find(t *testing.T, name string, in ...*types.Type) *ir.Native {
	for _, nat := range All() {
		if nat.Label != name || len(nat.Type.In()) != len(in) {
			continue
		}
		match := true
		for i, it := range nat.Type.In() {
			if !types.Equal(it, in[i]) {
				match = false
			}
		}
		if match {
			return nat
		}
	}
	require.FailNow(t, "no such native", "%v %v", name, in)
	return nil
}

func TestArithmetic(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   []*types.Type
		args []ir.Value
		want ir.Value
	}{
		{"+", []*types.Type{types.Int, types.Int}, []ir.Value{ir.Int(3), ir.Int(4)}, ir.Int(7)},
		{"-", []*types.Type{types.Int, types.Int}, []ir.Value{ir.Int(3), ir.Int(4)}, ir.Int(-1)},
		{"%", []*types.Type{types.Int, types.Int}, []ir.Value{ir.Int(7), ir.Int(3)}, ir.Int(1)},
		{"<<", []*types.Type{types.Int, types.Int}, []ir.Value{ir.Int(1), ir.Int(4)}, ir.Int(16)},
		{"*", []*types.Type{types.Uint, types.Uint}, []ir.Value{ir.Uint(6), ir.Uint(7)}, ir.Uint(42)},
		{"/", []*types.Type{types.Float, types.Float}, []ir.Value{ir.Float(1), ir.Float(4)}, ir.Float(0.25)},
		{"-_", []*types.Type{types.Int}, []ir.Value{ir.Int(5)}, ir.Int(-5)},
		{"<", []*types.Type{types.Int, types.Int}, []ir.Value{ir.Int(1), ir.Int(2)}, ir.Bool(true)},
		{">=", []*types.Type{types.Float, types.Float}, []ir.Value{ir.Float(1), ir.Float(2)}, ir.Bool(false)},
		{"&", []*types.Type{types.Bool, types.Bool}, []ir.Value{ir.Bool(true), ir.Bool(false)}, ir.Bool(false)},
		{"+", []*types.Type{types.String, types.String}, []ir.Value{ir.String("ab"), ir.String("cd")}, ir.String("abcd")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			nat := find(t, tc.name, tc.in...)
			assert.True(t, nat.Pure)
			out, err := nat.Fn(nil, tc.args)
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.True(t, ir.Equal(tc.want, out[0]), "got %v, want %v", out[0], tc.want)
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	nat := find(t, "/", types.Int, types.Int)
	_, err := nat.Fn(nil, []ir.Value{ir.Int(1), ir.Int(0)})
	assert.ErrorIs(t, err, ErrDivisionByZero)

	nat = find(t, "%", types.Uint, types.Uint)
	_, err = nat.Fn(nil, []ir.Value{ir.Uint(1), ir.Uint(0)})
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestEquality(t *testing.T) {
	var eq *ir.Native
	for _, nat := range All() {
		if nat.Label == "==" {
			eq = nat
		}
	}
	require.NotNil(t, eq)
	out, err := eq.Fn(nil, []ir.Value{ir.String("x"), ir.String("x")})
	require.NoError(t, err)
	assert.True(t, out[0].AsBool())
	out, err = eq.Fn(nil, []ir.Value{ir.Int(1), ir.Int(2)})
	require.NoError(t, err)
	assert.False(t, out[0].AsBool())
}

func TestContainers(t *testing.T) {
	var get, set, length *ir.Native
	for _, nat := range containers() {
		if nat.Type.In()[0].Kind() != types.KindArray {
			continue
		}
		switch nat.Label {
		case "[]":
			get = nat
		case "[]=":
			set = nat
		case "length":
			length = nat
		}
	}
	require.NotNil(t, get)
	require.NotNil(t, set)
	require.NotNil(t, length)

	arr := ir.NewArray(types.ArrayOf(types.Int).WithMutability(types.Mutable), []ir.Value{ir.Int(1), ir.Int(2)})

	out, err := get.Fn(nil, []ir.Value{arr, ir.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out[0].AsInt())

	_, err = get.Fn(nil, []ir.Value{arr, ir.Int(2)})
	assert.ErrorIs(t, err, ErrIndexRange)

	_, err = set.Fn(nil, []ir.Value{arr, ir.Int(0), ir.Int(9)})
	require.NoError(t, err)
	assert.Equal(t, int64(9), arr.Array().Elems[0].AsInt())

	out, err = length.Fn(nil, []ir.Value{arr})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out[0].AsInt())
}

func TestPrint(t *testing.T) {
	var env bufEnv
	_, err := find(t, "print", types.String).Fn(&env, []ir.Value{ir.String("hi ")})
	require.NoError(t, err)
	_, err = find(t, "println", types.Any).Fn(&env, []ir.Value{ir.Int(42)})
	require.NoError(t, err)
	_, err = find(t, "println", types.Codepoint).Fn(&env, []ir.Value{ir.Codepoint('x')})
	require.NoError(t, err)
	assert.Equal(t, "hi 42\nx\n", env.String())

	_, err = find(t, "print", types.String).Fn(nil, []ir.Value{ir.String("lost")})
	assert.Error(t, err)
	assert.False(t, find(t, "print", types.String).Pure)
}
