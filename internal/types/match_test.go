package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/goconcat/internal/fileinput"
)

func TestCanAssign(t *testing.T) {
	point := NewStruct("Point", fileinput.Location{})
	point.SetStructFields(nil, []Field{{Name: "x", Type: Int}})
	point3 := NewStruct("Point3", fileinput.Location{})
	point3.SetStructFields(point, []Field{{Name: "z", Type: Int}})
	color := NewEnum("Color", []string{"red", "green"}, fileinput.Location{})

	for _, tc := range []struct {
		name     string
		src, dst *Type
		want     bool
	}{
		{"same primitive", Int, Int, true},
		{"different primitive", Int, Uint, false},
		{"anything to var", ArrayOf(Float), Any, true},
		{"array covariance", ArrayOf(point3), ArrayOf(point), true},
		{"mutable array invariance", ArrayOf(point3).WithMutability(Mutable), ArrayOf(point).WithMutability(Mutable), false},
		{"immutable to mutable array", ArrayOf(Int), ArrayOf(Int).WithMutability(Mutable), false},
		{"mutable to immutable array", ArrayOf(Int).WithMutability(Mutable), ArrayOf(Int), true},
		{"optional content", OptionalOf(point3), OptionalOf(point), true},
		{"value is not optional", Int, OptionalOf(Int), false},
		{"proc inputs contravariant", Proc([]*Type{point}, nil), Proc([]*Type{point3}, nil), true},
		{"proc inputs not covariant", Proc([]*Type{point3}, nil), Proc([]*Type{point}, nil), false},
		{"proc outputs covariant", Proc(nil, []*Type{point3}), Proc(nil, []*Type{point}), true},
		{"proc arity", Proc([]*Type{Int}, nil), Proc([]*Type{Int, Int}, nil), false},
		{"tuple elementwise", Tuple(Int, point3), Tuple(Int, point), true},
		{"tuple length", Tuple(Int), Tuple(Int, Int), false},
		{"struct to parent", point3, point, true},
		{"parent to struct", point, point3, false},
		{"enum identity", color, color.WithMutability(Mutable), true},
		{"member into union", Int, Union(Int, Bool), true},
		{"union into var", Union(Int, Bool), Any, true},
		{"union into member", Union(Int, Bool), Int, false},
		{"sub union", Union(Int, Bool), Union(Bool, Float, Int), true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanAssign(tc.src, tc.dst, nil), "%v -> %v", tc.src, tc.dst)
		})
	}
}

func TestBounds(t *testing.T) {
	T := NewGeneric("T", true, fileinput.Location{})

	t.Run("lower bounds widen", func(t *testing.T) {
		point := NewStruct("Point", fileinput.Location{})
		point.SetStructFields(nil, nil)
		point3 := NewStruct("Point3", fileinput.Location{})
		point3.SetStructFields(point, nil)

		b := NewBounds()
		require.True(t, CanAssign(point3, T, b))
		require.True(t, CanAssign(point, T, b))
		bounds := b.Target([]*Type{T})
		require.Len(t, bounds, 1)
		assert.Equal(t, point, bounds[0].Min)

		bs := make(Bindings)
		require.True(t, Resolve(bounds, bs))
		got, ok := bs.Lookup(T)
		require.True(t, ok)
		assert.Equal(t, point, got)
	})

	t.Run("conflicting lower bound", func(t *testing.T) {
		b := NewBounds()
		require.True(t, CanAssign(Int, T, b))
		assert.False(t, CanAssign(Bool, T, b))
	})

	t.Run("contravariant input records upper bound", func(t *testing.T) {
		b := NewBounds()
		proc := Proc([]*Type{Int}, []*Type{Int})
		generic := Proc([]*Type{T}, []*Type{T})
		require.True(t, CanAssign(proc, generic, b))
		bounds := b.Target([]*Type{T})
		require.Len(t, bounds, 1)
		assert.Equal(t, Int, bounds[0].Min)
		assert.Equal(t, Int, bounds[0].Max)
	})

	t.Run("lower bound must fit upper bound", func(t *testing.T) {
		b := NewBounds()
		proc := Proc([]*Type{Int}, []*Type{Float})
		generic := Proc([]*Type{T}, []*Type{T})
		assert.False(t, CanAssign(proc, generic, b))
	})

	t.Run("without bounds generics only match themselves", func(t *testing.T) {
		assert.False(t, CanAssign(Int, T, nil))
		assert.True(t, CanAssign(T, T.WithMutability(Default), nil))
	})
}

func TestCanCast(t *testing.T) {
	shape := NewTrait("Shape", fileinput.Location{})
	square := NewStruct("Square", fileinput.Location{})
	square.SetStructFields(nil, nil)
	shape.AddImplementor(square)

	for _, tc := range []struct {
		name     string
		src, dst *Type
		want     CastKind
	}{
		{"assign", Int, Int, Assign},
		{"numeric", Int, Float, Cast},
		{"codepoint", Codepoint, Int, Cast},
		{"wrap optional", Int, OptionalOf(Int), Convert},
		{"implementor to trait", square, shape, Convert},
		{"var narrows", Any, Int, Restrict},
		{"union narrows", Union(Int, Bool), Int, Restrict},
		{"bool is not numeric", Bool, Int, None},
		{"unrelated", ArrayOf(Int), Int, None},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanCast(tc.src, tc.dst, nil))
		})
	}
}

func TestCommonSuper(t *testing.T) {
	point := NewStruct("Point", fileinput.Location{})
	point.SetStructFields(nil, nil)
	left := NewStruct("Left", fileinput.Location{})
	left.SetStructFields(point, nil)
	right := NewStruct("Right", fileinput.Location{})
	right.SetStructFields(point, nil)

	sup, ok := CommonSuper(left, right)
	require.True(t, ok)
	assert.True(t, SameNominal(sup, point))

	sup, ok = CommonSuper(nil, Int)
	require.True(t, ok)
	assert.Equal(t, Int, sup)

	sup, ok = CommonSuper(ArrayOf(left), ArrayOf(right))
	require.True(t, ok)
	assert.Equal(t, "Point array", sup.String())

	_, ok = CommonSuper(Int, Bool)
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	T := NewGeneric("T", true, fileinput.Location{})
	sig := Proc([]*Type{ArrayOf(T), Int}, []*Type{T})
	assert.True(t, sig.IsGeneric())
	assert.Equal(t, []*Type{T}, sig.ImplicitGenerics())

	bs := make(Bindings)
	bs.Bind(T, Bool)
	got, err := Replace(sig, bs)
	require.NoError(t, err)
	assert.False(t, got.IsGeneric())
	assert.Equal(t, "( bool array int => bool )", got.String())
	assert.Equal(t, 2, got.Depth())
}

func TestMutability(t *testing.T) {
	assert.True(t, Default.IsEqual(Immutable))
	assert.True(t, Mutable.IsDifferent(Default))
	assert.Equal(t, "int array mut", ArrayOf(Int).WithMutability(Mutable).String())
}
