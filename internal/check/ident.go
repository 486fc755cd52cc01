package check

import (
	"github.com/jcorbin/goconcat/internal/diag"
	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/scope"
	"github.com/jcorbin/goconcat/internal/types"
)

func (s *session) identifier(tok ir.Token) error {
	switch tok.Ident {
	case ir.IdentDeclare, ir.IdentImplicitDecl:
		return s.declare(tok)
	case ir.IdentWrite:
		return s.write(tok)
	case ir.IdentGetField:
		return s.getField(tok)
	case ir.IdentSetField:
		return s.setField(tok)
	case ir.IdentProcPtr:
		return s.procPtr(tok)
	}

	d, ok := s.c.arena.Lookup(s.ctx, tok.Name)
	if !ok {
		return diag.Syntaxf(tok.Pos, "undeclared identifier %v", tok.Name)
	}
	switch d := d.(type) {
	case *scope.VarDecl:
		return s.read(tok, d.Var)
	case *scope.TypeDecl:
		s.pushConst(ir.TypeValue(d.Type), tok.Pos)
		return nil
	case *scope.EnumDecl:
		s.pushConst(ir.TypeValue(d.Type), tok.Pos)
		return nil
	case *scope.StructDecl:
		return s.structIdent(tok, d)
	case *scope.TraitDecl:
		t, err := s.c.checkTrait(d)
		if err != nil {
			return err
		}
		s.pushConst(ir.TypeValue(t), tok.Pos)
		return nil
	}
	return s.call(tok, tok.Name, s.c.callables(d))
}

func (s *session) read(tok ir.Token, v *ir.Variable) error {
	if val, ok := s.c.constants[v]; ok {
		s.pushConst(val, tok.Pos)
		return nil
	}
	cv, err := s.capture(v, tok.Pos)
	if err != nil {
		return err
	}
	s.emit(ir.Token{Kind: ir.KVariable, Pos: tok.Pos, Var: cv, VarOp: ir.Read})
	s.push(cv.Type, tok.Pos)
	return nil
}

// capture returns the variable as accessible from the current context,
// currying it into every lambda it crosses.
func (s *session) capture(v *ir.Variable, pos fileinput.Location) (*ir.Variable, error) {
	cv, err := s.c.arena.Capture(s.ctx, v)
	if err != nil {
		return nil, diag.Typef(pos, "%v", err)
	}
	if cv.Kind == ir.Curried {
		for x := cv; x != nil; x = x.Source {
			s.c.curried[x] = true
		}
	}
	return cv, nil
}

func (s *session) declare(tok ir.Token) error {
	var target *types.Type
	if tok.Ident == ir.IdentDeclare {
		tf, err := s.pop(tok.Pos)
		if err != nil {
			return err
		}
		if target, err = s.constType(tf, tok); err != nil {
			return err
		}
	}
	vf, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	if target == nil {
		if vf.opp != nil {
			return diag.Typef(tok.Pos, "cannot infer the type of %v from overloaded procedure pointer @%v", tok.Name, vf.opp.name)
		}
		target = vf.Type
	} else if vf, err = s.coerce(vf, 1, target, tok.Pos); err != nil {
		return err
	}

	mut := tok.Mut
	if mut == types.Default {
		mut = types.Undecided
	}
	v, err := s.c.arena.DeclareVariable(s.ctx, tok.Name, target, mut, tok.Access, tok.Pos)
	if err != nil {
		return diag.Syntaxf(tok.Pos, "%v", err)
	}
	if mut == types.Immutable && vf.Value != nil && s.trailing(vf) {
		s.c.constants[v] = *vf.Value
		s.erase(vf)
		return nil
	}
	s.emit(ir.Token{Kind: ir.KVariable, Pos: tok.Pos, Var: v, VarOp: ir.Declare})
	return nil
}

func (s *session) write(tok ir.Token) error {
	d, ok := s.c.arena.Lookup(s.ctx, tok.Name)
	if !ok {
		return diag.Syntaxf(tok.Pos, "undeclared variable %v", tok.Name)
	}
	vd, ok := d.(*scope.VarDecl)
	if !ok {
		return diag.Syntaxf(tok.Pos, "%v is not a variable", tok.Name)
	}
	if _, isConst := s.c.constants[vd.Var]; isConst {
		return diag.Typef(tok.Pos, "cannot write to constant %v", tok.Name)
	}
	v, err := s.capture(vd.Var, tok.Pos)
	if err != nil {
		return err
	}
	switch {
	case v.Kind == ir.Curried || s.c.curried[v]:
		return diag.Typef(tok.Pos, "cannot write to curried variable %v", tok.Name)
	case v.Mut == types.Immutable:
		return diag.Typef(tok.Pos, "cannot write to immutable variable %v", tok.Name)
	}
	vf, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	if _, err := s.coerce(vf, 1, v.Type, tok.Pos); err != nil {
		return err
	}
	v.Mut = types.Mutable
	s.emit(ir.Token{Kind: ir.KVariable, Pos: tok.Pos, Var: v, VarOp: ir.Write})
	return nil
}

// fieldOf resolves a named field of a tuple or struct type.
func (s *session) fieldOf(t *types.Type, name string, pos fileinput.Location) (int, types.Field, error) {
	switch t.Kind() {
	case types.KindTuple, types.KindStruct:
	default:
		return 0, types.Field{}, diag.Typef(pos, "%v has no field %v", t, name)
	}
	if !t.Ready() {
		return 0, types.Field{}, diag.Typef(pos, "%v is used before its declaration is complete", t)
	}
	i, ok := t.FieldIndex(name)
	if !ok {
		return 0, types.Field{}, diag.Typef(pos, "%v has no field %v", t, name)
	}
	return i, t.Fields()[i], nil
}

func (s *session) getField(tok ir.Token) error {
	f, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	if f.Value != nil && f.Type.Kind() == types.KindType {
		t := f.Value.AsType()
		if t.Kind() != types.KindEnum {
			return diag.Syntaxf(tok.Pos, "type %v has no field %v", t, tok.Name)
		}
		i, ok := t.EntryIndex(tok.Name)
		if !ok {
			return diag.Syntaxf(tok.Pos, "%v has no entry %v", t, tok.Name)
		}
		s.discard(f)
		s.pushConst(ir.Entry(t, i), tok.Pos)
		return nil
	}
	if f.Type.Kind() == types.KindTrait {
		return s.traitCall(f, tok)
	}

	i, field, err := s.fieldOf(f.Type, tok.Name, tok.Pos)
	if err != nil {
		return err
	}
	if f.Value != nil && s.trailing(f) {
		if tup := f.Value.Tuple(); tup != nil && i < len(tup.Elems) {
			s.erase(f)
			s.pushConst(tup.Elems[i], tok.Pos)
			return nil
		}
	}
	s.emit(ir.Token{Kind: ir.KFieldGet, Pos: tok.Pos, Name: tok.Name, Index: i})
	s.push(field.Type, tok.Pos)
	return nil
}

func (s *session) setField(tok ir.Token) error {
	target, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	value, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	i, field, err := s.fieldOf(target.Type, tok.Name, tok.Pos)
	if err != nil {
		return err
	}
	if field.Mut != types.Mutable {
		return diag.Typef(tok.Pos, "field %v of %v is not mutable", tok.Name, target.Type)
	}
	if _, err := s.coerce(value, 2, field.Type, tok.Pos); err != nil {
		return err
	}
	s.emit(ir.Token{Kind: ir.KFieldSet, Pos: tok.Pos, Name: tok.Name, Index: i})
	return nil
}

// traitCall calls a trait field on the trait value on top, passing the
// value's base below the field's arguments.
func (s *session) traitCall(f Frame, tok ir.Token) error {
	t := f.Type
	i, ok := t.FieldIndex(tok.Name)
	if !ok {
		return diag.Typef(tok.Pos, "%v has no field %v", t, tok.Name)
	}
	sig := t.Fields()[i].Type
	in := sig.In()
	n := len(in)
	args, err := s.popN(n, tok.Pos)
	if err != nil {
		return err
	}
	for k, a := range args {
		if _, err := s.coerce(a, n-k+1, in[k], tok.Pos); err != nil {
			return err
		}
	}
	s.emit(ir.Token{Kind: ir.KTraitCall, Pos: tok.Pos, Name: tok.Name, Index: i, Args: [2]int{n, 0}})
	for _, o := range sig.Out() {
		s.push(o, tok.Pos)
	}
	return nil
}

func (s *session) structIdent(tok ir.Token, d *scope.StructDecl) error {
	if !d.IsGeneric() {
		t, err := s.c.checkStruct(d)
		if err != nil {
			return err
		}
		s.pushConst(ir.TypeValue(t), tok.Pos)
		return nil
	}
	k := len(d.Source.Generics)
	fs, err := s.popN(k, tok.Pos)
	if err != nil {
		return diag.Wrap(err, tok.Pos, "%v needs %d type arguments", tok.Name, k)
	}
	args := make([]*types.Type, k)
	for i, f := range fs {
		if f.Value == nil || f.Type.Kind() != types.KindType {
			return diag.Typef(f.Pos, "type argument of %v has to be a constant type, got %v", tok.Name, f)
		}
		args[i] = f.Value.AsType()
	}
	s.discard(fs...)
	t, err := s.c.structInstance(d, args, tok.Pos)
	if err != nil {
		return err
	}
	s.pushConst(ir.TypeValue(t), tok.Pos)
	return nil
}

func (s *session) procPtr(tok ir.Token) error {
	d, ok := s.c.arena.Lookup(s.ctx, tok.Name)
	if !ok || !scope.IsCallable(d) {
		return diag.Syntaxf(tok.Pos, "%v is not a procedure", tok.Name)
	}
	cands := s.c.callables(d)
	if len(cands) == 1 && !cands[0].generic() {
		v, err := s.c.procValue(cands[0], nil, tok.Pos)
		if err != nil {
			return err
		}
		s.pushConst(v, tok.Pos)
		return nil
	}
	idx := s.emit(ir.Token{Kind: ir.KOverloadedPtr, Pos: tok.Pos, Name: tok.Name})
	p := &placeholder{name: tok.Name, idx: idx, pos: tok.Pos, cands: cands}
	s.stack.Push(Frame{Type: types.OverloadedPtr(tok.Name), Pos: tok.Pos, tok: -1, opp: p})
	return nil
}

func (s *session) explicitCast(tok ir.Token) error {
	tf, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	target, err := s.constType(tf, tok)
	if err != nil {
		return err
	}
	f, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	if target.Mutability() == types.Default {
		target = target.WithMutability(f.Type.Mutability())
	}
	g, err := s.coerce(f, 1, target, tok.Pos)
	if err != nil {
		return err
	}
	s.stack.Push(g)
	return nil
}

// coerce converts the frame at the given depth below the top to t, folding
// the conversion into the constant when it is the last value pushed. The
// frame must already be popped off the abstract stack.
func (s *session) coerce(f Frame, depth int, t *types.Type, pos fileinput.Location) (Frame, error) {
	if f.opp != nil {
		if t.Kind() != types.KindProc {
			return f, diag.Typef(pos, "cannot convert overloaded procedure pointer @%v to %v", f.opp.name, t)
		}
		v, err := s.resolveByType(f.opp, t, pos)
		if err != nil {
			return f, err
		}
		return Frame{Type: v.Type, Value: &v, Pos: f.Pos, tok: f.opp.idx}, nil
	}

	kind := types.CanCast(f.Type, t, nil)
	switch kind {
	case types.Assign:
		f.Type = t
		return f, nil
	case types.None:
		return f, diag.Typef(pos, "cannot convert %v to %v", f, t)
	}

	var impl []ir.Value
	if t.Kind() == types.KindTrait {
		var err error
		if impl, err = s.c.implFor(t, f.Type, pos); err != nil {
			return f, err
		}
	}

	if depth == 1 && f.Value != nil && s.trailing(f) {
		v, err := convertValue(*f.Value, t, impl)
		if err != nil {
			return f, diag.Typef(pos, "cannot convert %v to %v: %v", *f.Value, t, err)
		}
		s.out[f.tok].Value = v
		f.Type, f.Value = t, &v
		return f, nil
	}

	conv := ir.Token{Kind: ir.KConvert, Pos: pos, Type: t, Impl: impl}
	if depth > 1 {
		conv.Kind, conv.Index = ir.KArgConvert, depth
	}
	s.emit(conv)
	return FrameOf(t, pos), nil
}

func convertValue(v ir.Value, t *types.Type, impl []ir.Value) (ir.Value, error) {
	if t.Kind() == types.KindTrait {
		return ir.NewTraitValue(t, v, impl), nil
	}
	return v.CastTo(t)
}

func (s *session) newValue(tok ir.Token) error {
	tf, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	t, err := s.constType(tf, tok)
	if err != nil {
		return err
	}
	switch t.Kind() {
	case types.KindTuple, types.KindStruct:
		return s.newTuple(t, tok)
	case types.KindArray, types.KindMemory:
		cf, err := s.pop(tok.Pos)
		if err != nil {
			return err
		}
		if k := cf.Type.Kind(); k != types.KindInt && k != types.KindUint {
			return diag.Typef(tok.Pos, "length of new %v has to be an integer, got %v", t, cf)
		}
		if _, ok := ir.Zero(t.Content()); !ok {
			return diag.Typef(tok.Pos, "%v has no zero value", t.Content())
		}
		rt := t.WithMutability(types.Mutable)
		s.emit(ir.Token{Kind: ir.KNewArray, Pos: tok.Pos, Type: rt})
		s.push(rt, tok.Pos)
		return nil
	}
	return diag.Typef(tok.Pos, "cannot create a new %v", t)
}

func (s *session) newTuple(t *types.Type, tok ir.Token) error {
	if !t.Ready() {
		return diag.Typef(tok.Pos, "%v is used before its declaration is complete", t)
	}
	fields := t.Fields()
	n := len(fields)
	args, err := s.popN(n, tok.Pos)
	if err != nil {
		return err
	}
	vals := make([]ir.Value, n)
	allConst, mutable := true, false
	for i, a := range args {
		g, err := s.coerce(a, n-i, fields[i].Type, tok.Pos)
		if err != nil {
			return diag.Wrap(err, tok.Pos, "field %v of new %v", i, t)
		}
		args[i] = g
		if g.Value == nil {
			allConst = false
		} else {
			vals[i] = *g.Value
		}
		if fields[i].Mut == types.Mutable {
			mutable = true
		}
	}
	rt := t
	if mutable {
		rt = t.WithMutability(types.Mutable)
	}
	if allConst && s.trailing(args...) {
		s.erase(args...)
		s.pushConst(ir.NewTuple(rt, vals), tok.Pos)
		return nil
	}
	s.emit(ir.Token{Kind: ir.KNewTuple, Pos: tok.Pos, Type: rt, Index: n})
	s.push(rt, tok.Pos)
	return nil
}
