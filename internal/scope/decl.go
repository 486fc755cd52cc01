package scope

import (
	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/types"
)

// Decl is a named declaration. The set of implementations is closed: every
// declarable kind has one arm below.
type Decl interface {
	DeclName() string
	DeclaredAt() fileinput.Location
	decl()
}

// State tracks lazy checking of a declaration.
type State uint8

// Checking states.
const (
	Unchecked State = iota
	Checking
	Checked
)

// VarDecl declares a variable.
type VarDecl struct {
	Var *ir.Variable
}

// ProcDecl declares a user procedure. Generic procedures keep one instance
// per tuple of type arguments.
type ProcDecl struct {
	Source *ir.ProcSource
	Ctx    int

	// non-generic procedures
	Proc  *ir.Procedure
	State State

	// generic procedures, set once the signature is resolved
	Params    []*types.Type
	Signature *types.Type
	Instances map[string]*Instance
}

// Instance is one instantiation of a generic procedure.
type Instance struct {
	Args  []*types.Type
	Proc  *ir.Procedure
	State State
}

// IsGeneric reports whether the procedure declares generic parameters.
func (d *ProcDecl) IsGeneric() bool { return len(d.Source.Generics) > 0 }

// Instance returns the cached instance for args, creating it with create on
// first use.
func (d *ProcDecl) Instance(args []*types.Type, create func() (*Instance, error)) (*Instance, error) {
	key := types.KeyOf(args)
	if inst, ok := d.Instances[key]; ok {
		return inst, nil
	}
	inst, err := create()
	if err != nil {
		return nil, err
	}
	if d.Instances == nil {
		d.Instances = make(map[string]*Instance)
	}
	d.Instances[key] = inst
	return inst, nil
}

// NativeDecl declares a native procedure.
type NativeDecl struct {
	Native *ir.Native
}

// StructDecl declares a struct; generic structs keep one type per tuple of
// type arguments.
type StructDecl struct {
	Source *ir.StructSource
	Ctx    int
	Type   *types.Type
	State  State

	Params    []*types.Type
	Instances map[string]*types.Type
}

// IsGeneric reports whether the struct declares generic parameters.
func (d *StructDecl) IsGeneric() bool { return len(d.Source.Generics) > 0 }

// EnumDecl declares an enum.
type EnumDecl struct {
	Type *types.Type
}

// TraitDecl declares a trait.
type TraitDecl struct {
	Source *ir.TraitSource
	Ctx    int
	Type   *types.Type
	State  State
}

// TypeDecl binds a name to a type, such as a generic parameter inside the
// procedure or struct declaring it.
type TypeDecl struct {
	Name string
	Type *types.Type
	Pos  fileinput.Location
}

// Overloads collects every callable visible under one name.
type Overloads struct {
	Name      string
	Callables []Decl
}

func (d *VarDecl) DeclName() string    { return d.Var.Name }
func (d *ProcDecl) DeclName() string   { return d.Source.Name }
func (d *NativeDecl) DeclName() string { return d.Native.Label }
func (d *StructDecl) DeclName() string { return d.Source.Name }
func (d *EnumDecl) DeclName() string   { return d.Type.Name() }
func (d *TraitDecl) DeclName() string  { return d.Source.Name }
func (d *TypeDecl) DeclName() string   { return d.Name }
func (d *Overloads) DeclName() string  { return d.Name }

func (d *VarDecl) DeclaredAt() fileinput.Location    { return d.Var.Pos }
func (d *ProcDecl) DeclaredAt() fileinput.Location   { return d.Source.Pos }
func (d *NativeDecl) DeclaredAt() fileinput.Location { return fileinput.Location{} }
func (d *StructDecl) DeclaredAt() fileinput.Location { return d.Source.Pos }
func (d *EnumDecl) DeclaredAt() fileinput.Location   { return d.Type.Pos() }
func (d *TraitDecl) DeclaredAt() fileinput.Location  { return d.Source.Pos }
func (d *TypeDecl) DeclaredAt() fileinput.Location   { return d.Pos }
func (d *Overloads) DeclaredAt() fileinput.Location {
	if len(d.Callables) > 0 {
		return d.Callables[0].DeclaredAt()
	}
	return fileinput.Location{}
}

func (*VarDecl) decl()    {}
func (*ProcDecl) decl()   {}
func (*NativeDecl) decl() {}
func (*StructDecl) decl() {}
func (*EnumDecl) decl()   {}
func (*TraitDecl) decl()  {}
func (*TypeDecl) decl()   {}
func (*Overloads) decl()  {}

// IsCallable reports whether d names procedures that overload each other.
func IsCallable(d Decl) bool {
	switch d.(type) {
	case *ProcDecl, *NativeDecl, *Overloads:
		return true
	}
	return false
}

func appendCallables(cs []Decl, d Decl) []Decl {
	if ov, ok := d.(*Overloads); ok {
		return append(cs, ov.Callables...)
	}
	return append(cs, d)
}
