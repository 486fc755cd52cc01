package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/types"
)

var here fileinput.Location

func TestDeclareVariable(t *testing.T) {
	a := NewArena()
	file := a.Open(File, a.Root())
	g, err := a.DeclareVariable(file, "g", types.Int, types.Undecided, types.Public, here)
	require.NoError(t, err)
	assert.Equal(t, ir.Global, g.Kind)
	assert.Equal(t, 1, a.Globals())

	_, err = a.DeclareVariable(file, "g", types.Int, types.Undecided, types.Public, here)
	assert.ErrorIs(t, err, ErrRedeclared)

	proc := a.Open(Procedure, file)
	blk := a.Open(Block, proc)
	x, err := a.DeclareVariable(blk, "x", types.Bool, types.Undecided, types.Public, here)
	require.NoError(t, err)
	assert.Equal(t, ir.Local, x.Kind)
	assert.Equal(t, 1, x.Level)
	assert.Equal(t, 0, x.Index)

	d, ok := a.Lookup(a.Open(Block, blk), "x")
	require.True(t, ok)
	assert.Same(t, x, d.(*VarDecl).Var)
}

func TestOverloads(t *testing.T) {
	a := NewArena()
	file := a.Open(File, a.Root())
	sig := types.Proc([]*types.Type{types.Int}, []*types.Type{types.Int})
	require.NoError(t, a.Declare(a.Root(), "f", &NativeDecl{&ir.Native{Label: "f", Type: sig}}))
	require.NoError(t, a.Declare(file, "f", &ProcDecl{Source: &ir.ProcSource{Name: "f"}}))
	require.NoError(t, a.Declare(file, "f", &ProcDecl{Source: &ir.ProcSource{Name: "f"}}))

	d, ok := a.Lookup(file, "f")
	require.True(t, ok)
	ov, ok := d.(*Overloads)
	require.True(t, ok)
	assert.Len(t, ov.Callables, 3)

	_, err := a.DeclareVariable(file, "f", types.Int, types.Undecided, types.Public, here)
	assert.ErrorIs(t, err, ErrRedeclared)

	blk := a.Open(Block, file)
	_, err = a.DeclareVariable(blk, "f", types.Int, types.Undecided, types.Public, here)
	require.NoError(t, err)
	d, _ = a.Lookup(blk, "f")
	assert.IsType(t, &VarDecl{}, d)
}

func TestCapture(t *testing.T) {
	a := NewArena()
	file := a.Open(File, a.Root())
	outer := a.Open(Procedure, file)
	x, err := a.DeclareVariable(outer, "x", types.Int, types.Undecided, types.Public, here)
	require.NoError(t, err)
	m, err := a.DeclareVariable(outer, "m", types.Int, types.Mutable, types.Public, here)
	require.NoError(t, err)

	mid := a.Open(Procedure, a.Open(Block, outer))
	inner := a.Open(Procedure, mid)

	cv, err := a.Capture(inner, x)
	require.NoError(t, err)
	assert.Equal(t, ir.Curried, cv.Kind)
	assert.Equal(t, types.Immutable, x.Mut, "capturing freezes the original")

	midVar, err := a.Capture(mid, x)
	require.NoError(t, err)
	assert.Same(t, midVar, cv.Source, "captured through the intermediate procedure")
	assert.Equal(t, []ir.Capture{{Kind: ir.Local, Level: 0, Index: 0}}, a.Captures(mid))
	assert.Equal(t, []ir.Capture{{Kind: ir.Curried, Index: 0}}, a.Captures(inner))

	again, err := a.Capture(inner, x)
	require.NoError(t, err)
	assert.Same(t, cv, again)

	_, err = a.Capture(inner, m)
	assert.ErrorIs(t, err, ErrCurryMutable)

	same, err := a.Capture(outer, x)
	require.NoError(t, err)
	assert.Same(t, x, same)
}
