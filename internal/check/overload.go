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

// candidate is one procedure of an overload set.
type candidate struct {
	name   string
	proc   *scope.ProcDecl
	native *ir.Native
}

func (cand candidate) generic() bool {
	if cand.native != nil {
		return cand.native.Type.IsGeneric()
	}
	return cand.proc.IsGeneric()
}

func (cand candidate) describe(sig *types.Type) string {
	if cand.native != nil {
		return fmt.Sprintf("%v:%v (native)", cand.name, sig)
	}
	return fmt.Sprintf("%v:%v at %v", cand.name, sig, cand.proc.Source.Pos)
}

func (c *Checker) callables(d scope.Decl) []candidate {
	var cands []candidate
	var add func(d scope.Decl)
	add = func(d scope.Decl) {
		switch d := d.(type) {
		case *scope.ProcDecl:
			cands = append(cands, candidate{name: d.Source.Name, proc: d})
		case *scope.NativeDecl:
			cands = append(cands, candidate{name: d.Native.Label, native: d.Native})
		case *scope.Overloads:
			for _, cd := range d.Callables {
				add(cd)
			}
		}
	}
	add(d)
	return cands
}

func (c *Checker) candidateType(cand candidate) (*types.Type, error) {
	if cand.native != nil {
		return cand.native.Type, nil
	}
	return c.procSignature(cand.proc)
}

func (c *Checker) describeAll(cands []candidate) string {
	var sb strings.Builder
	for _, cand := range cands {
		sig, err := c.candidateType(cand)
		if err != nil {
			continue
		}
		sb.WriteString("\n\t")
		sb.WriteString(cand.describe(sig))
	}
	return sb.String()
}

// placeholder stands for an overloaded procedure pointer whose target is
// decided by the first use that constrains it.
type placeholder struct {
	name     string
	idx      int
	pos      fileinput.Location
	cands    []candidate
	resolved bool
}

// resolveOpp replaces the placeholder token with tok. A placeholder that
// pushes nothing, because another branch dropped or called it, may be
// resolved that way again.
func (s *session) resolveOpp(p *placeholder, tok ir.Token) error {
	ok := p.idx < len(s.out)
	if ok {
		prev := s.out[p.idx].Kind
		if p.resolved {
			ok = prev == ir.KNop && tok.Kind == ir.KNop
		} else {
			ok = prev == ir.KOverloadedPtr
		}
	}
	if !ok {
		return diag.Typef(p.pos, "overloaded procedure pointer @%v resolved more than once", p.name)
	}
	p.resolved = true
	s.out[p.idx] = tok
	return nil
}

// dropOpp drops a placeholder, deleting its token if it is still
// unresolved. It reports whether the placeholder was resolved to a value on
// another branch, which then has to be dropped at run time.
func (s *session) dropOpp(p *placeholder, pos fileinput.Location) (bool, error) {
	if p.resolved && p.idx < len(s.out) && s.out[p.idx].Kind == ir.KValue {
		return true, nil
	}
	return false, s.resolveOpp(p, ir.Token{Kind: ir.KNop, Pos: pos})
}

// oppMatch is a candidate chosen for a placeholder.
type oppMatch struct {
	cand     candidate
	sig      *types.Type
	bindings types.Bindings
}

// matchProc matches candidate signature csig against the procedure type
// want, binding the candidate's own generics.
func matchProc(csig, want *types.Type, bounds *types.Bounds) (*types.Type, types.Bindings, bool) {
	if !types.CanAssign(csig, want, bounds) {
		return nil, nil, false
	}
	own := append(append([]*types.Type(nil), csig.ImplicitGenerics()...), csig.ExplicitGenerics()...)
	bs := types.Bindings{}
	if !types.Resolve(bounds.Source(own), bs) || !bounds.Consistent() {
		return nil, nil, false
	}
	for _, g := range own {
		if _, ok := bs.Lookup(g); !ok {
			bs.Bind(g, types.Any)
		}
	}
	rs, err := types.Replace(csig, bs)
	if err != nil {
		return nil, nil, false
	}
	return rs, bs, true
}

// resolveByType resolves a placeholder to the one candidate assignable to
// the procedure type t.
func (s *session) resolveByType(p *placeholder, t *types.Type, pos fileinput.Location) (ir.Value, error) {
	var found []oppMatch
	for _, cand := range p.cands {
		csig, err := s.c.candidateType(cand)
		if err != nil {
			return ir.Value{}, err
		}
		if rs, bs, ok := matchProc(csig, t, types.NewBounds()); ok {
			found = append(found, oppMatch{cand, rs, bs})
		}
	}
	switch len(found) {
	case 0:
		return ir.Value{}, diag.Typef(pos, "no version of @%v matches %v:%v", p.name, t, s.c.describeAll(p.cands))
	case 1:
	default:
		return ir.Value{}, diag.Typef(pos, "more than one version of @%v matches %v:%v", p.name, t, describeMatches(found))
	}
	v, err := s.c.procValue(found[0].cand, found[0].bindings, pos)
	if err != nil {
		return ir.Value{}, err
	}
	if err := s.resolveOpp(p, ir.Token{Kind: ir.KValue, Pos: p.pos, Value: v}); err != nil {
		return ir.Value{}, err
	}
	return v, nil
}

func describeMatches(ms []oppMatch) string {
	var sb strings.Builder
	for _, m := range ms {
		sb.WriteString("\n\t")
		sb.WriteString(m.cand.describe(m.sig))
	}
	return sb.String()
}

// resolveOppParam resolves a placeholder passed for parameter type param,
// returning nil when no candidate fits.
func (s *session) resolveOppParam(param *types.Type, bounds *types.Bounds, p *placeholder, pos fileinput.Location) (*oppMatch, *types.Bounds, error) {
	var (
		found []oppMatch
		after []*types.Bounds
	)
	for _, cand := range p.cands {
		csig, err := s.c.candidateType(cand)
		if err != nil {
			return nil, nil, err
		}
		try := bounds.Copy()
		if rs, bs, ok := matchProc(csig, param, try); ok {
			found = append(found, oppMatch{cand, rs, bs})
			after = append(after, try)
		}
	}
	switch len(found) {
	case 0:
		return nil, nil, nil
	case 1:
		return &found[0], after[0], nil
	}
	return nil, nil, diag.Typef(pos, "more than one version of @%v matches %v:%v", p.name, param, describeMatches(found))
}

// match is a candidate that accepts the current stack.
type match struct {
	cand      candidate
	sig       *types.Type
	bindings  types.Bindings
	nTypeArgs int
	nCast     int
	nRestrict int
	nImplicit int
	depth     int
	opps      map[*placeholder]oppMatch
}

func (s *session) tryCandidate(cand candidate, frames []Frame, pos fileinput.Location) (*match, error) {
	sig, err := s.c.candidateType(cand)
	if err != nil {
		return nil, err
	}
	n := len(frames)
	bs := types.Bindings{}
	explicit := sig.ExplicitGenerics()
	k := len(explicit)
	if k > 0 {
		if n < k {
			return nil, nil
		}
		for i, g := range explicit {
			f := frames[n-k+i]
			if f.Value == nil || f.Type.Kind() != types.KindType {
				return nil, nil
			}
			bs.Bind(g, f.Value.AsType())
		}
		if sig, err = types.Replace(sig, bs); err != nil {
			return nil, diag.Wrap(err, pos, "%v", cand.name)
		}
	}

	in := sig.In()
	if n < k+len(in) {
		return nil, nil
	}
	args := frames[n-k-len(in) : n-k]
	m := &match{cand: cand, nTypeArgs: k}
	bounds := types.NewBounds()
	var deferred []int
	for i, a := range args {
		if a.opp != nil {
			deferred = append(deferred, i)
			continue
		}
		try := bounds.Copy()
		if types.CanAssign(a.Type, in[i], try) {
			bounds = try
			continue
		}
		try = bounds.Copy()
		switch types.CanCast(a.Type, in[i], try) {
		case types.None:
			return nil, nil
		case types.Cast:
			m.nCast++
		case types.Restrict:
			m.nRestrict++
		}
		bounds = try
	}
	for _, i := range deferred {
		om, after, err := s.resolveOppParam(in[i], bounds, args[i].opp, pos)
		if err != nil || om == nil {
			return nil, err
		}
		bounds = after
		if m.opps == nil {
			m.opps = make(map[*placeholder]oppMatch)
		}
		m.opps[args[i].opp] = *om
	}

	params := sig.ImplicitGenerics()
	gb := bounds.Target(params)
	m.nImplicit = len(gb)
	if !types.Resolve(gb, bs) {
		return nil, nil
	}
	for _, p := range params {
		t, ok := bs.Lookup(p)
		if !ok {
			bs.Bind(p, types.Any)
		} else if d := t.Depth(); d > m.depth {
			m.depth = d
		}
	}
	if sig, err = types.Replace(sig, bs); err != nil {
		return nil, diag.Wrap(err, pos, "%v", cand.name)
	}
	for i, a := range args {
		if a.opp == nil && types.CanCast(a.Type, sig.In()[i], nil) == types.None {
			return nil, nil
		}
	}
	m.sig = sig
	m.bindings = bs
	return m, nil
}

// compareMatches orders matches from best to worst: fewer restricting
// conversions, fewer casts, more specific parameters, fewer inferred
// generics, then shallower inferred type arguments.
func compareMatches(a, b *match) int {
	if d := a.nRestrict - b.nRestrict; d != 0 {
		return d
	}
	if d := a.nCast - b.nCast; d != 0 {
		return d
	}
	if d := compareSignatures(a.sig.In(), b.sig.In()); d != 0 {
		return d
	}
	if d := a.nImplicit - b.nImplicit; d != 0 {
		return d
	}
	return a.depth - b.depth
}

// compareSignatures compares parameter lists aligned at the top of the
// stack. One list is more specific when each of its parameters converts to
// the other's and not all of them convert back.
func compareSignatures(a, b []*types.Type) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	res := 0
	for j := 1; j <= n; j++ {
		ta, tb := a[len(a)-j], b[len(b)-j]
		ab, ba := types.CanConvert(ta, tb), types.CanConvert(tb, ta)
		d := 0
		switch {
		case ab && ba:
			continue
		case ab:
			d = -1
		case ba:
			d = 1
		default:
			return 0
		}
		if res != 0 && d != res {
			return 0
		}
		res = d
	}
	return res
}

func (s *session) call(tok ir.Token, name string, cands []candidate) error {
	m, err := s.pick(name, cands, tok.Pos)
	if err != nil {
		return err
	}
	return s.apply(m, tok)
}

// pick chooses the best candidate for the current stack.
func (s *session) pick(name string, cands []candidate, pos fileinput.Location) (*match, error) {
	if len(cands) == 0 {
		return nil, diag.Syntaxf(pos, "%v is not callable", name)
	}
	frames := s.stack.Elems()
	var matches []*match
	maxIn := 0
	for _, cand := range cands {
		if sig, err := s.c.candidateType(cand); err == nil {
			if n := len(sig.In()) + len(sig.ExplicitGenerics()); n > maxIn {
				maxIn = n
			}
		}
		m, err := s.tryCandidate(cand, frames, pos)
		if err != nil {
			return nil, err
		}
		if m != nil {
			matches = append(matches, m)
		}
	}
	if maxIn > len(frames) {
		maxIn = len(frames)
	}
	given := framesString(frames[len(frames)-maxIn:])

	if len(matches) == 0 {
		return nil, diag.Typef(pos, "no version of %v matches the given arguments %v:%v", name, given, s.c.describeAll(cands))
	}
	best, tied := bestMatch(matches)
	if best == nil {
		var sb strings.Builder
		for _, m := range tied {
			sb.WriteString("\n\t")
			sb.WriteString(m.cand.describe(m.sig))
		}
		return nil, diag.Typef(pos, "more than one version of %v matches the given arguments %v:%v", name, given, sb.String())
	}
	return best, nil
}

// bestMatch returns the match that ranks strictly before every other one.
// Ranking is only a partial order, so without such a match it returns the
// matches that nothing ranks before, or all of them when there are none,
// in declaration order.
func bestMatch(matches []*match) (*match, []*match) {
	var minimal []*match
	for i, m := range matches {
		beaten := false
		for j, o := range matches {
			if i != j && compareMatches(o, m) < 0 {
				beaten = true
				break
			}
		}
		if !beaten {
			minimal = append(minimal, m)
		}
	}
	if len(minimal) != 1 {
		if len(minimal) == 0 {
			minimal = matches
		}
		return nil, minimal
	}
	best := minimal[0]
	tied := []*match{best}
	for _, o := range matches {
		if o != best && compareMatches(best, o) >= 0 {
			tied = append(tied, o)
		}
	}
	if len(tied) > 1 {
		return nil, tied
	}
	return best, nil
}

// apply commits to a match: it consumes type arguments, resolves the
// placeholders passed as arguments and calls the chosen procedure.
func (s *session) apply(m *match, tok ir.Token) error {
	if m.nTypeArgs > 0 {
		targs, err := s.popN(m.nTypeArgs, tok.Pos)
		if err != nil {
			return err
		}
		s.discard(targs...)
	}
	n := len(m.sig.In())
	for depth := 1; depth <= n && len(m.opps) > 0; depth++ {
		f, err := s.stack.Get(depth)
		if err != nil || f.opp == nil {
			continue
		}
		om, ok := m.opps[f.opp]
		if !ok {
			continue
		}
		v, err := s.c.procValue(om.cand, om.bindings, tok.Pos)
		if err != nil {
			return err
		}
		if err := s.resolveOpp(f.opp, ir.Token{Kind: ir.KValue, Pos: f.opp.pos, Value: v}); err != nil {
			return err
		}
		_ = s.stack.Set(depth, Frame{Type: v.Type, Value: &v, Pos: f.Pos, tok: f.opp.idx})
	}
	v, err := s.c.procValue(m.cand, m.bindings, tok.Pos)
	if err != nil {
		return err
	}
	return s.invoke(tok.Name, m.sig, v.Callee(), tok.Pos)
}

// invoke calls a known procedure with the arguments on the stack. Pure
// natives are evaluated right away when every argument is a trailing
// constant; a failing evaluation is left for run time.
func (s *session) invoke(name string, sig *types.Type, callee *ir.Callee, pos fileinput.Location) error {
	in := sig.In()
	n := len(in)
	args, err := s.popN(n, pos)
	if err != nil {
		return err
	}
	vals := make([]ir.Value, n)
	allConst := true
	for i, a := range args {
		g, err := s.coerce(a, n-i, in[i], pos)
		if err != nil {
			return diag.Wrap(err, pos, "argument %d of %v", i+1, name)
		}
		args[i] = g
		if g.Value == nil {
			allConst = false
		} else {
			vals[i] = *g.Value
		}
	}

	if nat := callee.Native; nat != nil && nat.Pure && allConst && s.trailing(args...) {
		if res, err := nat.Call(nil, vals); err == nil {
			s.erase(args...)
			for _, r := range res {
				s.pushConst(r, pos)
			}
			return nil
		}
	}

	tok := ir.Token{Pos: pos, Name: name}
	if callee.Native != nil {
		tok.Kind, tok.Native = ir.KCallNative, callee.Native
	} else {
		tok.Kind, tok.Proc = ir.KCallProc, callee.Proc
	}
	s.emit(tok)
	for _, t := range sig.Out() {
		s.push(t, pos)
	}
	return nil
}

func (s *session) callPtr(tok ir.Token) error {
	f, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	if p := f.opp; p != nil {
		return s.callOpp(p, tok)
	}
	if f.Type.Kind() != types.KindProc {
		return diag.Typef(tok.Pos, "cannot call %v", f)
	}
	if f.Value != nil && s.trailing(f) {
		if callee := f.Value.Callee(); callee != nil && len(callee.Curried) == 0 {
			s.erase(f)
			return s.invoke(calleeName(callee), f.Type, callee, tok.Pos)
		}
	}

	in := f.Type.In()
	n := len(in)
	args, err := s.popN(n, tok.Pos)
	if err != nil {
		return err
	}
	for i, a := range args {
		if _, err := s.coerce(a, n-i+1, in[i], tok.Pos); err != nil {
			return err
		}
	}
	s.emit(ir.Token{Kind: ir.KCallPtr, Pos: tok.Pos})
	for _, t := range f.Type.Out() {
		s.push(t, tok.Pos)
	}
	return nil
}

func calleeName(c *ir.Callee) string {
	if c.Native != nil {
		return c.Native.Label
	}
	return c.Proc.Label
}

// callOpp calls an overloaded procedure pointer directly, resolving it
// against the arguments below it.
func (s *session) callOpp(p *placeholder, tok ir.Token) error {
	m, err := s.pick("@"+p.name, p.cands, tok.Pos)
	if err != nil {
		return err
	}
	if err := s.resolveOpp(p, ir.Token{Kind: ir.KNop, Pos: p.pos}); err != nil {
		return err
	}
	return s.apply(m, ir.Token{Kind: ir.KIdentifier, Pos: tok.Pos, Name: p.name})
}
