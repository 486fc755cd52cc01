package check

import (
	"fmt"
	"strings"

	"github.com/jcorbin/goconcat/internal/diag"
	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/scope"
	"github.com/jcorbin/goconcat/internal/types"
)

func (c *Checker) signature(src *ir.ProcSource, ctx int) (in, out []*types.Type, err error) {
	if in, err = c.typeList(src.In, ctx, "parameter of "+src.Name, src.Pos); err != nil {
		return nil, nil, err
	}
	if out, err = c.typeList(src.Out, ctx, "result of "+src.Name, src.Pos); err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

// declareGenerics binds generic parameter names to types in a new generic
// context.
func (c *Checker) declareGenerics(parent int, generics []ir.Generic, args []*types.Type) (int, error) {
	ctx := c.arena.Open(scope.Generic, parent)
	for i, g := range generics {
		if err := c.arena.Declare(ctx, g.Name, &scope.TypeDecl{Name: g.Name, Type: args[i], Pos: g.Pos}); err != nil {
			return ctx, diag.Syntaxf(g.Pos, "%v", err)
		}
	}
	return ctx, nil
}

// procSignature resolves the declared type of a procedure. Generic
// procedures get a signature over fresh generic parameters.
func (c *Checker) procSignature(d *scope.ProcDecl) (*types.Type, error) {
	if !d.IsGeneric() {
		if d.Proc.Type == nil {
			in, out, err := c.signature(d.Source, d.Ctx)
			if err != nil {
				return nil, err
			}
			d.Proc.Type = types.Proc(in, out)
		}
		return d.Proc.Type, nil
	}
	if d.Signature != nil {
		return d.Signature, nil
	}
	params := make([]*types.Type, len(d.Source.Generics))
	var explicit []*types.Type
	for i, g := range d.Source.Generics {
		params[i] = types.NewGeneric(g.Name, g.Implicit, g.Pos)
		if !g.Implicit {
			explicit = append(explicit, params[i])
		}
	}
	ctx, err := c.declareGenerics(d.Ctx, d.Source.Generics, params)
	if err != nil {
		return nil, err
	}
	in, out, err := c.signature(d.Source, ctx)
	if err != nil {
		return nil, err
	}
	d.Params = params
	d.Signature = types.GenericProc(explicit, in, out)
	return d.Signature, nil
}

// checkBody checks a procedure body in ctx against its signature.
func (c *Checker) checkBody(src *ir.ProcSource, ctx int, sig *types.Type) ([]ir.Token, error) {
	s := c.newSession(src.Body, ctx, framesOf(sig.In(), src.Pos), src.End)
	s.checkRet, s.ret = true, sig.Out()
	if err := s.run(); err != nil {
		return nil, err
	}
	return s.out, nil
}

// checkProc checks a non-generic procedure once. Recursive calls see it in
// the checking state and use its signature only.
func (c *Checker) checkProc(d *scope.ProcDecl) error {
	if d.IsGeneric() || d.State != scope.Unchecked {
		return nil
	}
	sig, err := c.procSignature(d)
	if err != nil {
		return err
	}
	d.State = scope.Checking
	body, err := c.checkBody(d.Source, c.arena.Open(scope.Procedure, d.Ctx), sig)
	if err != nil {
		return err
	}
	d.Proc.Body = body
	d.State = scope.Checked
	return nil
}

func instanceLabel(name string, args []*types.Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%v<%v>", name, strings.Join(parts, " "))
}

// instance returns the checked instance of a generic procedure for args.
// Errors inside the instance are reported at the position that caused the
// instantiation.
func (c *Checker) instance(d *scope.ProcDecl, args []*types.Type, pos fileinput.Location) (*scope.Instance, error) {
	if _, err := c.procSignature(d); err != nil {
		return nil, err
	}
	var ctx int
	inst, err := d.Instance(args, func() (*scope.Instance, error) {
		var err error
		if ctx, err = c.declareGenerics(d.Ctx, d.Source.Generics, args); err != nil {
			return nil, err
		}
		in, out, err := c.signature(d.Source, ctx)
		if err != nil {
			return nil, err
		}
		return &scope.Instance{
			Args: args,
			Proc: &ir.Procedure{
				Label:  instanceLabel(d.Source.Name, args),
				Type:   types.Proc(in, out),
				Pos:    d.Source.Pos,
				Public: d.Source.Public,
			},
		}, nil
	})
	if err != nil {
		return nil, diag.Wrap(err, pos, "cannot instantiate %v", d.Source.Name)
	}
	if inst.State == scope.Unchecked {
		inst.State = scope.Checking
		body, err := c.checkBody(d.Source, c.arena.Open(scope.Procedure, ctx), inst.Proc.Type)
		if err != nil {
			return nil, diag.Wrap(err, pos, "in %v", inst.Proc.Label)
		}
		inst.Proc.Body = body
		inst.State = scope.Checked
	}
	return inst, nil
}

// procValue returns the procedure value for a candidate, instantiating
// generic procedures with bs.
func (c *Checker) procValue(cand candidate, bs types.Bindings, pos fileinput.Location) (ir.Value, error) {
	if nat := cand.native; nat != nil {
		t, err := types.Replace(nat.Type, bs)
		if err != nil {
			return ir.Value{}, diag.Wrap(err, pos, "%v", nat.Label)
		}
		return ir.ProcValue(t, &ir.Callee{Native: nat}), nil
	}
	d := cand.proc
	if d.IsGeneric() {
		if _, err := c.procSignature(d); err != nil {
			return ir.Value{}, err
		}
		inst, err := c.instance(d, bs.Args(d.Params), pos)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.ProcValue(inst.Proc.Type, &ir.Callee{Proc: inst.Proc}), nil
	}
	if _, err := c.procSignature(d); err != nil {
		return ir.Value{}, err
	}
	if err := c.checkProc(d); err != nil {
		return ir.Value{}, err
	}
	return ir.ProcValue(d.Proc.Type, &ir.Callee{Proc: d.Proc}), nil
}

func (c *Checker) checkStruct(d *scope.StructDecl) (*types.Type, error) {
	if d.State == scope.Unchecked {
		d.State = scope.Checking
		if err := c.structFields(d.Type, d.Source, d.Ctx); err != nil {
			return nil, err
		}
		d.State = scope.Checked
	}
	return d.Type, nil
}

func (c *Checker) structFields(t *types.Type, src *ir.StructSource, ctx int) error {
	var parent *types.Type
	seen := make(map[string]bool)
	if len(src.Parent) > 0 {
		p, err := c.singleType(src.Parent, ctx, "parent of "+src.Name, src.Pos)
		if err != nil {
			return err
		}
		if p.Kind() != types.KindStruct {
			return diag.Typef(src.Pos, "%v can only extend a struct, got %v", src.Name, p)
		}
		if !p.Ready() {
			return diag.Typef(src.Pos, "%v cannot extend %v before its declaration is complete", src.Name, p)
		}
		parent = p
		for _, f := range p.Fields() {
			seen[f.Name] = true
		}
	}
	own := make([]types.Field, 0, len(src.Fields))
	for _, fs := range src.Fields {
		if seen[fs.Name] {
			return diag.Syntaxf(fs.Pos, "duplicate field %v in %v", fs.Name, src.Name)
		}
		seen[fs.Name] = true
		ft, err := c.singleType(fs.Type, ctx, "field "+fs.Name, fs.Pos)
		if err != nil {
			return err
		}
		own = append(own, types.Field{Name: fs.Name, Type: ft, Mut: fs.Mut, Access: fs.Access, Pos: fs.Pos})
	}
	t.SetStructFields(parent, own)
	return nil
}

// structInstance returns the instance of a generic struct for args. The
// instance is cached before its fields are resolved so that fields may
// refer to it.
func (c *Checker) structInstance(d *scope.StructDecl, args []*types.Type, pos fileinput.Location) (*types.Type, error) {
	if len(args) != len(d.Source.Generics) {
		return nil, diag.Typef(pos, "%v needs %d type arguments, got %d", d.Source.Name, len(d.Source.Generics), len(args))
	}
	key := types.KeyOf(args)
	if t, ok := d.Instances[key]; ok {
		return t, nil
	}
	t := types.NewStructInstance(d.Source.Name, d.Source.Pos, d, args, func(as []*types.Type) (*types.Type, error) {
		return c.structInstance(d, as, pos)
	})
	if d.Instances == nil {
		d.Instances = make(map[string]*types.Type)
	}
	d.Instances[key] = t
	ctx, err := c.declareGenerics(d.Ctx, d.Source.Generics, args)
	if err != nil {
		return nil, err
	}
	if err := c.structFields(t, d.Source, ctx); err != nil {
		return nil, diag.Wrap(err, pos, "cannot instantiate %v", t)
	}
	return t, nil
}

func (c *Checker) checkTrait(d *scope.TraitDecl) (*types.Type, error) {
	if d.State != scope.Unchecked {
		return d.Type, nil
	}
	d.State = scope.Checking
	fields := make([]types.Field, 0, len(d.Source.Fields))
	seen := make(map[string]bool)
	for _, tf := range d.Source.Fields {
		if seen[tf.Name] {
			return nil, diag.Syntaxf(tf.Pos, "duplicate field %v in %v", tf.Name, d.Source.Name)
		}
		seen[tf.Name] = true
		in, err := c.typeList(tf.In, d.Ctx, "parameter of "+tf.Name, tf.Pos)
		if err != nil {
			return nil, err
		}
		out, err := c.typeList(tf.Out, d.Ctx, "result of "+tf.Name, tf.Pos)
		if err != nil {
			return nil, err
		}
		fields = append(fields, types.Field{Name: tf.Name, Type: types.Proc(in, out), Access: types.Public, Pos: tf.Pos})
	}
	d.Type.SetTraitFields(fields)
	d.State = scope.Checked
	return d.Type, nil
}

func implKey(trait, src *types.Type) string {
	return trait.Key() + " for " + src.WithMutability(types.Default).Key()
}

func sameTypes(as, bs []*types.Type) bool {
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !types.Equal(as[i], bs[i]) {
			return false
		}
	}
	return true
}

// checkImpl registers an implementation of a trait. Every trait field needs
// a procedure taking the implementing type first, followed by the field's
// parameters.
func (c *Checker) checkImpl(impl *ir.ImplSource) error {
	trait, err := c.singleType(impl.Trait, c.file, "implemented trait", impl.Pos)
	if err != nil {
		return err
	}
	if trait.Kind() != types.KindTrait {
		return diag.Typef(impl.Pos, "%v is not a trait", trait)
	}
	self, err := c.singleType(impl.For, c.file, "implementing type", impl.Pos)
	if err != nil {
		return err
	}
	fields := trait.Fields()
	vals := make([]ir.Value, len(fields))
	decls := make([]*scope.ProcDecl, len(fields))
	for _, src := range impl.Procs {
		i, ok := trait.FieldIndex(src.Name)
		if !ok {
			return diag.Syntaxf(src.Pos, "%v is not a field of %v", src.Name, trait)
		}
		if decls[i] != nil {
			return diag.Syntaxf(src.Pos, "duplicate implementation of %v for %v", src.Name, self)
		}
		if len(src.Generics) > 0 {
			return diag.Syntaxf(src.Pos, "implementation of %v cannot be generic", src.Name)
		}
		d := &scope.ProcDecl{Source: src, Ctx: c.file, Proc: &ir.Procedure{
			Label:  fmt.Sprintf("%v.%v", self, src.Name),
			Pos:    src.Pos,
			Public: src.Public,
		}}
		sig, err := c.procSignature(d)
		if err != nil {
			return err
		}
		want := fields[i].Type
		in := sig.In()
		if len(in) != len(want.In())+1 || !types.CanAssign(self, in[0], nil) ||
			!sameTypes(in[1:], want.In()) || !sameTypes(sig.Out(), want.Out()) {
			return diag.Typef(src.Pos, "implementation of %v for %v has type %v, expected %v before %v",
				src.Name, self, sig, self, want)
		}
		decls[i] = d
		vals[i] = ir.ProcValue(sig, &ir.Callee{Proc: d.Proc})
	}
	for i, d := range decls {
		if d == nil {
			return diag.Typef(impl.Pos, "missing implementation of %v for %v", fields[i].Name, self)
		}
	}
	c.impls[implKey(trait, self)] = vals
	trait.AddImplementor(self)
	for _, d := range decls {
		if err := c.checkProc(d); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) implFor(trait, src *types.Type, pos fileinput.Location) ([]ir.Value, error) {
	impl := trait.Implementor(src)
	if impl == nil {
		return nil, diag.Typef(pos, "%v does not implement %v", src, trait)
	}
	vals, ok := c.impls[implKey(trait, impl)]
	if !ok {
		return nil, diag.Typef(pos, "%v does not implement %v", src, trait)
	}
	return vals, nil
}

// lambda checks an inline procedure. Lambdas that capture nothing are
// constants; the others curry their captures when created.
func (s *session) lambda(tok ir.Token) error {
	src := tok.Source
	in, err := s.c.typeList(src.In, s.ctx, "lambda parameter", src.Pos)
	if err != nil {
		return err
	}
	ctx := s.c.arena.Open(scope.Procedure, s.ctx)
	sub := s.c.newSession(src.Body, ctx, framesOf(in, src.Pos), src.End)
	if src.HasOut {
		out, err := s.c.typeList(src.Out, s.ctx, "lambda result", src.Pos)
		if err != nil {
			return err
		}
		sub.checkRet, sub.ret = true, out
	}
	if err := sub.run(); err != nil {
		return err
	}
	out := sub.ret
	if !src.HasOut {
		out = frameTypes(sub.stack.Elems())
	}
	proc := &ir.Procedure{
		Label: "lambda@" + src.Pos.String(),
		Type:  types.Proc(in, out),
		Pos:   src.Pos,
		Body:  sub.out,
	}
	caps := s.c.arena.Captures(ctx)
	if len(caps) == 0 {
		s.pushConst(ir.ProcValue(proc.Type, &ir.Callee{Proc: proc}), tok.Pos)
		return nil
	}
	s.emit(ir.Token{Kind: ir.KCurriedLambda, Pos: tok.Pos, Proc: proc, Captures: caps})
	s.push(proc.Type, tok.Pos)
	return nil
}
