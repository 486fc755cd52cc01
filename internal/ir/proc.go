package ir

import (
	"fmt"
	"io"

	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/types"
)

// Procedure is a checked user procedure; Body holds its resolved tokens once
// checking completes.
type Procedure struct {
	Label  string
	Type   *types.Type
	Pos    fileinput.Location
	Public bool
	Body   []Token
}

func (proc *Procedure) String() string { return fmt.Sprintf("%v:%v", proc.Label, proc.Type) }

// Env is what natives may use of the running machine.
type Env interface {
	Output() io.Writer
}

// NativeFunc implements a native procedure: it receives its inputs bottom
// first and returns its outputs bottom first.
type NativeFunc func(env Env, args []Value) ([]Value, error)

// Native is a procedure implemented in Go. Pure natives may be evaluated
// by the checker when all of their inputs are constant.
type Native struct {
	Label string
	Type  *types.Type
	Pure  bool
	Fn    NativeFunc
}

func (nat *Native) String() string { return fmt.Sprintf("%v:%v (native)", nat.Label, nat.Type) }

// Call invokes the native, checking its result arity.
func (nat *Native) Call(env Env, args []Value) ([]Value, error) {
	res, err := nat.Fn(env, args)
	if err != nil {
		return nil, err
	}
	if want := len(nat.Type.Out()); len(res) != want {
		return nil, fmt.Errorf("native %v returned %d values, expected %d", nat.Label, len(res), want)
	}
	return res, nil
}

// VarKind says which slot array holds a variable at run time.
type VarKind uint8

// Variable kinds.
const (
	Global VarKind = iota
	Local
	Curried
)

func (k VarKind) String() string {
	switch k {
	case Local:
		return "local"
	case Curried:
		return "curried"
	}
	return "global"
}

// Variable identifies a declared binding. Mut changes during checking: it
// starts undecided and becomes mutable on the first write, or immutable
// once the variable is captured.
type Variable struct {
	Name    string
	Kind    VarKind
	Context int
	Level   int
	Index   int
	Type    *types.Type
	Mut     types.Mutability
	Access  types.Accessibility
	Pos     fileinput.Location

	// Source is the variable a curried variable was captured from.
	Source *Variable
}

func (v *Variable) String() string {
	switch v.Kind {
	case Local:
		return fmt.Sprintf("%v(%v %d:%d)", v.Name, v.Kind, v.Level, v.Index)
	default:
		return fmt.Sprintf("%v(%v %d)", v.Name, v.Kind, v.Index)
	}
}

// Generic declares a generic parameter of a procedure or struct.
type Generic struct {
	Name     string
	Implicit bool
	Pos      fileinput.Location
}

// ProcSource is an unchecked procedure or lambda.
type ProcSource struct {
	Name     string
	Pos      fileinput.Location
	End      fileinput.Location
	Public   bool
	Generics []Generic
	In, Out  []Token
	HasOut   bool
	Body     []Token
}

// FieldSource is an unchecked struct field.
type FieldSource struct {
	Name   string
	Pos    fileinput.Location
	Type   []Token
	Mut    types.Mutability
	Access types.Accessibility
}

// StructSource is an unchecked struct declaration.
type StructSource struct {
	Name     string
	Pos      fileinput.Location
	Parent   []Token
	Generics []Generic
	Fields   []FieldSource
}

// EnumSource is an enum declaration.
type EnumSource struct {
	Name    string
	Pos     fileinput.Location
	Entries []string
}

// TraitField is an unchecked trait field signature.
type TraitField struct {
	Name    string
	Pos     fileinput.Location
	In, Out []Token
}

// TraitSource is an unchecked trait declaration.
type TraitSource struct {
	Name   string
	Pos    fileinput.Location
	Fields []TraitField
}

// ImplSource is an unchecked trait implementation.
type ImplSource struct {
	Pos   fileinput.Location
	Trait []Token
	For   []Token
	Procs []*ProcSource
}
