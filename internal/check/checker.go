// Package check implements the type checker. It abstractly interprets token
// sequences over a stack of type frames, resolving identifiers, overloads,
// generics and control flow into the resolved tokens run by the stack
// machine.
package check

import (
	"fmt"

	"github.com/jcorbin/goconcat/internal/diag"
	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/parse"
	"github.com/jcorbin/goconcat/internal/scope"
	"github.com/jcorbin/goconcat/internal/types"
)

// Checker holds the declarations of one program and checks its code.
type Checker struct {
	arena *scope.Arena
	file  int

	logfn   func(mess string, args ...interface{})
	debugfn func(mess string, args ...interface{})

	// constants maps immutable variables declared with a constant
	// initializer to their value; no storage is emitted for them
	constants map[*ir.Variable]ir.Value
	// curried marks the variables that have been captured by a lambda
	curried map[*ir.Variable]bool
	impls   map[string][]ir.Value

	procs   []*scope.ProcDecl
	structs []*scope.StructDecl
	traits  []*scope.TraitDecl
	pending []*ir.ImplSource
	code    []ir.Token
	end     fileinput.Location

	// err is the first failure applying options, reported by Load
	err error
}

// Result is a fully checked program.
type Result struct {
	Code    []ir.Token
	Stack   []Frame
	Globals int
}

// New creates a checker with an empty file context.
func New(opts ...Option) *Checker {
	nolog := func(string, ...interface{}) {}
	c := &Checker{
		arena:     scope.NewArena(),
		logfn:     nolog,
		debugfn:   nolog,
		constants: make(map[*ir.Variable]ir.Value),
		curried:   make(map[*ir.Variable]bool),
		impls:     make(map[string][]ir.Value),
	}
	c.file = c.arena.Open(scope.File, c.arena.Root())
	for _, opt := range opts {
		opt.apply(c)
	}
	return c
}

// Option customizes a Checker.
type Option interface{ apply(c *Checker) }

// WithNatives registers native procedures in the root context.
func WithNatives(natives ...*ir.Native) Option { return nativesOption(natives) }

// WithLogf sets the sink for check time warnings.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return logfOption(logfn) }

// WithDebugf sets the sink for debugPrint output.
func WithDebugf(logfn func(mess string, args ...interface{})) Option { return debugfOption(logfn) }

type nativesOption []*ir.Native
type logfOption func(mess string, args ...interface{})
type debugfOption func(mess string, args ...interface{})

func (natives nativesOption) apply(c *Checker) {
	for _, nat := range natives {
		err := c.declareNative(nat)
		if err != nil && c.err == nil {
			c.err = err
		}
	}
}

func (c *Checker) declareNative(nat *ir.Native) error {
	if nat.Label == "" || nat.Type == nil || nat.Fn == nil {
		return fmt.Errorf("invalid native %q: needs a name, a procedure type and a function", nat.Label)
	}
	return c.arena.Declare(c.arena.Root(), nat.Label, &scope.NativeDecl{Native: nat})
}

func (logfn logfOption) apply(c *Checker)   { c.logfn = logfn }
func (logfn debugfOption) apply(c *Checker) { c.debugfn = logfn }

// Load declares everything prog declares and queues its global code. Every
// loaded program shares one file context, so a prelude loaded first is
// visible to the programs loaded after it.
func (c *Checker) Load(prog *parse.Program) error {
	if c.err != nil {
		return c.err
	}
	for _, en := range prog.Enums {
		d := &scope.EnumDecl{Type: types.NewEnum(en.Name, en.Entries, en.Pos)}
		if err := c.declare(en.Name, en.Pos, d); err != nil {
			return err
		}
	}
	for _, st := range prog.Structs {
		d := &scope.StructDecl{Source: st, Ctx: c.file}
		if len(st.Generics) == 0 {
			d.Type = types.NewStruct(st.Name, st.Pos)
		}
		if err := c.declare(st.Name, st.Pos, d); err != nil {
			return err
		}
		c.structs = append(c.structs, d)
	}
	for _, tr := range prog.Traits {
		d := &scope.TraitDecl{Source: tr, Ctx: c.file, Type: types.NewTrait(tr.Name, tr.Pos)}
		if err := c.declare(tr.Name, tr.Pos, d); err != nil {
			return err
		}
		c.traits = append(c.traits, d)
	}
	for _, ps := range prog.Procs {
		d := &scope.ProcDecl{Source: ps, Ctx: c.file}
		if len(ps.Generics) == 0 {
			d.Proc = &ir.Procedure{Label: ps.Name, Pos: ps.Pos, Public: ps.Public}
		}
		if err := c.declare(ps.Name, ps.Pos, d); err != nil {
			return err
		}
		c.procs = append(c.procs, d)
	}
	c.pending = append(c.pending, prog.Impls...)
	c.code = append(c.code, prog.Code...)
	c.end = prog.End
	return nil
}

func (c *Checker) declare(name string, pos fileinput.Location, d scope.Decl) error {
	if err := c.arena.Declare(c.file, name, d); err != nil {
		return diag.Syntaxf(pos, "%v", err)
	}
	return nil
}

// Finish checks the trait implementations, the global code and every
// declaration not yet checked on demand.
func (c *Checker) Finish() (*Result, error) {
	pending := c.pending
	c.pending = nil
	for _, impl := range pending {
		if err := c.checkImpl(impl); err != nil {
			return nil, err
		}
	}

	s := c.newSession(c.code, c.file, nil, c.end)
	if err := s.run(); err != nil {
		return nil, err
	}

	for _, d := range c.structs {
		if !d.IsGeneric() {
			if _, err := c.checkStruct(d); err != nil {
				return nil, err
			}
		}
	}
	for _, d := range c.traits {
		if _, err := c.checkTrait(d); err != nil {
			return nil, err
		}
	}
	for _, d := range c.procs {
		if err := c.checkProc(d); err != nil {
			return nil, err
		}
	}

	return &Result{
		Code:    s.out,
		Stack:   s.stack.Elems(),
		Globals: c.arena.Globals(),
	}, nil
}

// TypeCheck checks tokens in the file context starting from the given
// stack. A nil ret infers the outputs from the ending stack; otherwise the
// ending stack and every return must match ret.
func (c *Checker) TypeCheck(tokens []ir.Token, start []Frame, ret []*types.Type, end fileinput.Location) ([]ir.Token, []Frame, error) {
	s := c.newSession(tokens, c.file, start, end)
	if ret != nil {
		s.checkRet, s.ret = true, ret
	}
	if err := s.run(); err != nil {
		return nil, nil, err
	}
	return s.out, s.stack.Elems(), nil
}

// Lookup resolves a name as seen by global code.
func (c *Checker) Lookup(name string) (scope.Decl, bool) {
	return c.arena.Lookup(c.file, name)
}

// typeList evaluates a type expression: tokens that must leave only
// constant type values on an empty stack.
func (c *Checker) typeList(toks []ir.Token, ctx int, what string, pos fileinput.Location) ([]*types.Type, error) {
	if len(toks) == 0 {
		return nil, nil
	}
	s := c.newSession(toks, ctx, nil, pos)
	if err := s.run(); err != nil {
		return nil, err
	}
	frames := s.stack.Elems()
	ts := make([]*types.Type, len(frames))
	for i, f := range frames {
		if f.Value == nil || f.Type.Kind() != types.KindType {
			return nil, diag.Typef(f.Pos, "%v must be a constant type, got %v", what, f.Type)
		}
		ts[i] = f.Value.AsType()
	}
	return ts, nil
}

func (c *Checker) singleType(toks []ir.Token, ctx int, what string, pos fileinput.Location) (*types.Type, error) {
	ts, err := c.typeList(toks, ctx, what, pos)
	if err != nil {
		return nil, err
	}
	if len(ts) != 1 {
		return nil, diag.Typef(pos, "%v must be exactly one type, got %v", what, typesString(ts))
	}
	return ts[0], nil
}
