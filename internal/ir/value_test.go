package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/types"
)

func TestValueString(t *testing.T) {
	color := types.NewEnum("Color", []string{"red", "green"}, fileinput.Location{})
	for _, tc := range []struct {
		v    Value
		want string
	}{
		{Int(-3), "-3"},
		{Uint(3), "3u"},
		{Float(1), "1.0"},
		{Float(math.NaN()), "NaN"},
		{Float(math.Inf(-1)), "-Infinity"},
		{Bool(true), "true"},
		{Codepoint('x'), "'x'"},
		{String("hi"), `"hi"`},
		{TypeValue(types.ArrayOf(types.Int)), "int array"},
		{Entry(color, 1), "Color.green"},
		{Some(types.OptionalOf(types.Int), Int(2)), "2 optional"},
		{Empty(types.OptionalOf(types.Int)), "int empty"},
		{NewArray(types.ArrayOf(types.Int), []Value{Int(1), Int(2)}), "{ 1 2 }"},
		{NewTuple(types.Tuple(types.Int, types.Bool), []Value{Int(1), Bool(false)}), "( 1 false )"},
	} {
		assert.Equal(t, tc.want, tc.v.String())
	}
}

func TestCastTo(t *testing.T) {
	v, err := Int(-1).CastTo(types.Float)
	require.NoError(t, err)
	assert.Equal(t, -1.0, v.AsFloat())

	v, err = Float(2.75).CastTo(types.Int)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.AsInt())

	v, err = Int(65).CastTo(types.Codepoint)
	require.NoError(t, err)
	assert.Equal(t, 'A', v.AsCodepoint())

	v, err = Int(1).CastTo(types.OptionalOf(types.Float))
	require.NoError(t, err)
	c, ok := v.Content()
	require.True(t, ok)
	assert.Equal(t, 1.0, c.AsFloat())

	_, err = Bool(true).CastTo(types.Int)
	assert.ErrorIs(t, err, ErrInvalidCast)
}

func TestClone(t *testing.T) {
	str := String("abc")
	assert.True(t, str.DeeplyImmutable())
	assert.Same(t, str.Array(), str.Clone().Array())

	mt := types.MemoryOf(types.Int).WithMutability(types.Mutable)
	mem := NewArray(mt, []Value{Int(1)})
	assert.False(t, mem.DeeplyImmutable())
	cp := mem.Clone()
	cp.Array().Elems[0] = Int(9)
	assert.Equal(t, int64(1), mem.Array().Elems[0].AsInt())
	assert.True(t, Equal(mem, NewArray(mt, []Value{Int(1)})))
}

func TestSwitchKey(t *testing.T) {
	k1, ok := Codepoint('a').SwitchKey()
	require.True(t, ok)
	k2, _ := Codepoint('a').SwitchKey()
	assert.Equal(t, k1, k2)
	_, ok = Float(1).SwitchKey()
	assert.False(t, ok)
}

func TestZero(t *testing.T) {
	pt := types.Tuple(types.Int, types.OptionalOf(types.Bool))
	z, ok := Zero(pt)
	require.True(t, ok)
	assert.Equal(t, "( 0 bool empty )", z.String())
	_, ok = Zero(types.Proc(nil, nil))
	assert.False(t, ok)
}
