// Package scope implements the lexical context chain: an append-only arena
// of contexts addressed by index, each naming its parent.
package scope

import (
	"errors"
	"fmt"

	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/types"
)

// Scope errors; callers wrap them with a source position.
var (
	ErrRedeclared   = errors.New("already declared")
	ErrCurryMutable = errors.New("cannot curry mutable variable")
	ErrNoContext    = errors.New("no such context")
)

// Kind is the kind of a context.
type Kind uint8

// Context kinds.
const (
	Root Kind = iota
	File
	Block
	Procedure
	Generic
	Struct
	Trait
	Implement
)

var kindNames = [...]string{"root", "file", "block", "procedure", "generic", "struct", "trait", "implement"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid context"
}

// Context is one node of the arena.
type Context struct {
	ID     int
	Kind   Kind
	Parent int
	Level  int

	decls   map[string]Decl
	vars    []*ir.Variable
	curried []*ir.Variable
}

// Arena owns every context created while checking one program. Contexts are
// never removed.
type Arena struct {
	nodes   []*Context
	globals int
}

// NewArena returns an arena holding only the root context, with id 0.
func NewArena() *Arena {
	a := &Arena{}
	a.nodes = append(a.nodes, &Context{ID: 0, Kind: Root, Parent: -1, decls: make(map[string]Decl)})
	return a
}

// Root is the id of the root context.
func (a *Arena) Root() int { return 0 }

// Open creates a child context of parent.
func (a *Arena) Open(kind Kind, parent int) int {
	level := 0
	if kind == Block {
		level = a.nodes[parent].Level + 1
	}
	id := len(a.nodes)
	a.nodes = append(a.nodes, &Context{
		ID:     id,
		Kind:   kind,
		Parent: parent,
		Level:  level,
		decls:  make(map[string]Decl),
	})
	return id
}

// Get returns the context with the given id.
func (a *Arena) Get(id int) *Context {
	if id < 0 || id >= len(a.nodes) {
		return nil
	}
	return a.nodes[id]
}


// Globals returns the number of global variable slots.
func (a *Arena) Globals() int { return a.globals }

// Declare binds name in context id. Procedures declared under one name merge
// into an overload set; any other redeclaration fails.
func (a *Arena) Declare(id int, name string, d Decl) error {
	ctx := a.Get(id)
	if ctx == nil {
		return ErrNoContext
	}
	prior, exists := ctx.decls[name]
	if !exists {
		ctx.decls[name] = d
		return nil
	}
	if !IsCallable(prior) || !IsCallable(d) {
		return fmt.Errorf("%v %w at %v", name, ErrRedeclared, prior.DeclaredAt())
	}
	var cs []Decl
	cs = appendCallables(cs, prior)
	cs = appendCallables(cs, d)
	ctx.decls[name] = &Overloads{Name: name, Callables: cs}
	return nil
}

// Lookup resolves name from context id outwards. A non-callable declaration
// shadows everything further out; callables merge across the whole chain.
func (a *Arena) Lookup(id int, name string) (Decl, bool) {
	var found []Decl
	for c := id; c >= 0; c = a.nodes[c].Parent {
		d, ok := a.nodes[c].decls[name]
		if !ok {
			continue
		}
		if !IsCallable(d) {
			if len(found) == 0 {
				return d, true
			}
			break
		}
		found = appendCallables(found, d)
	}
	switch len(found) {
	case 0:
		return nil, false
	case 1:
		return found[0], true
	}
	return &Overloads{Name: name, Callables: found}, true
}

// DeclareVariable creates a variable slot in context id. Variables of the
// root and file contexts are globals; all others are locals addressed by
// their block level below the enclosing procedure.
func (a *Arena) DeclareVariable(id int, name string, t *types.Type, mut types.Mutability, access types.Accessibility, pos fileinput.Location) (*ir.Variable, error) {
	ctx := a.Get(id)
	if ctx == nil {
		return nil, ErrNoContext
	}
	v := &ir.Variable{
		Name:    name,
		Context: id,
		Level:   ctx.Level,
		Type:    t,
		Mut:     mut,
		Access:  access,
		Pos:     pos,
	}
	switch ctx.Kind {
	case Root, File:
		v.Kind = ir.Global
		v.Index = a.globals
	default:
		v.Kind = ir.Local
		v.Index = len(ctx.vars)
	}
	if err := a.Declare(id, name, &VarDecl{Var: v}); err != nil {
		return nil, err
	}
	if v.Kind == ir.Global {
		a.globals++
	}
	ctx.vars = append(ctx.vars, v)
	return v, nil
}

// ProcedureOf returns the innermost procedure context enclosing id, or -1.
func (a *Arena) ProcedureOf(id int) int {
	for c := id; c >= 0; c = a.nodes[c].Parent {
		if a.nodes[c].Kind == Procedure {
			return c
		}
	}
	return -1
}

// Contains reports whether inner is outer or one of its descendants.
func (a *Arena) Contains(outer, inner int) bool {
	for c := inner; c >= 0; c = a.nodes[c].Parent {
		if c == outer {
			return true
		}
	}
	return false
}

// Capture makes variable v, found by a lookup from context id, accessible
// from id. Locals of enclosing procedures are curried into every procedure
// boundary between their declaration and id; capturing marks the original
// immutable, and a mutable variable cannot be captured.
func (a *Arena) Capture(id int, v *ir.Variable) (*ir.Variable, error) {
	if v.Kind == ir.Global {
		return v, nil
	}
	proc := a.ProcedureOf(id)
	if proc < 0 || a.Contains(proc, v.Context) {
		return v, nil
	}
	src, err := a.Capture(a.nodes[proc].Parent, v)
	if err != nil {
		return nil, err
	}
	pc := a.nodes[proc]
	for _, cv := range pc.curried {
		if cv.Source == src {
			return cv, nil
		}
	}
	if src.Mut == types.Mutable {
		return nil, fmt.Errorf("%w %v declared at %v", ErrCurryMutable, v.Name, v.Pos)
	}
	src.Mut = types.Immutable
	v.Mut = types.Immutable
	cv := &ir.Variable{
		Name:    v.Name,
		Kind:    ir.Curried,
		Context: proc,
		Index:   len(pc.curried),
		Type:    v.Type,
		Mut:     types.Immutable,
		Access:  types.ReadOnly,
		Pos:     v.Pos,
		Source:  src,
	}
	pc.curried = append(pc.curried, cv)
	return cv, nil
}

// Captures returns where a curried lambda of procedure context id takes each
// of its curried values from, relative to the enclosing procedure.
func (a *Arena) Captures(id int) []ir.Capture {
	curried := a.nodes[id].curried
	caps := make([]ir.Capture, len(curried))
	for i, cv := range curried {
		src := cv.Source
		caps[i] = ir.Capture{Kind: src.Kind, Level: src.Level, Index: src.Index}
	}
	return caps
}
