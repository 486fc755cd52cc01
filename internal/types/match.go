package types

// Bound accumulates the inferred range of a generic parameter: every type
// matched against it from below widens Min, every type it must fit into
// narrows Max.
type Bound struct {
	Min, Max *Type
}

// Bounds is the bound map of a structural match. It holds generic parameters
// on the source side of the match apart from those on the target side. Contravariant
// positions (procedure inputs) swap the two.
type Bounds struct {
	l, r map[*nominal]*boundEntry
}

type boundEntry struct {
	param *Type
	Bound
}

// NewBounds returns an empty bound map.
func NewBounds() *Bounds {
	return &Bounds{
		l: make(map[*nominal]*boundEntry),
		r: make(map[*nominal]*boundEntry),
	}
}

func (b *Bounds) flip() *Bounds {
	if b == nil {
		return nil
	}
	return &Bounds{l: b.r, r: b.l}
}

// Copy returns an independent copy of b.
func (b *Bounds) Copy() *Bounds {
	if b == nil {
		return nil
	}
	cp := NewBounds()
	for k, v := range b.l {
		e := *v
		cp.l[k] = &e
	}
	for k, v := range b.r {
		e := *v
		cp.r[k] = &e
	}
	return cp
}


// Target returns the bounds recorded for target side generic parameters, in
// the order of params; parameters without a bound are omitted.
func (b *Bounds) Target(params []*Type) []GenericBound { return collect(b.r, params) }

// Source is like Target for source side generic parameters.
func (b *Bounds) Source(params []*Type) []GenericBound { return collect(b.l, params) }


// GenericBound pairs a generic parameter with its accumulated bound.
type GenericBound struct {
	Param *Type
	Bound
}

func collect(m map[*nominal]*boundEntry, params []*Type) []GenericBound {
	var out []GenericBound
	if params == nil {
		for _, e := range m {
			out = append(out, GenericBound{e.param, e.Bound})
		}
		return out
	}
	for _, p := range params {
		if e, ok := m[p.nominal]; ok {
			out = append(out, GenericBound{e.param, e.Bound})
		}
	}
	return out
}

func (b *Bounds) lower(m map[*nominal]*boundEntry, g, t *Type) bool {
	e := m[g.nominal]
	if e == nil {
		e = &boundEntry{param: g}
		m[g.nominal] = e
	}
	if e.Min == nil {
		e.Min = t
	} else if sup, ok := CommonSuper(e.Min, t); ok {
		e.Min = sup
	} else {
		return false
	}
	return e.Max == nil || CanAssign(e.Min, e.Max, nil)
}

func (b *Bounds) upper(m map[*nominal]*boundEntry, g, t *Type) bool {
	e := m[g.nominal]
	if e == nil {
		e = &boundEntry{param: g}
		m[g.nominal] = e
	}
	switch {
	case e.Max == nil:
		e.Max = t
	case CanAssign(t, e.Max, nil):
		e.Max = t
	case CanAssign(e.Max, t, nil):
	default:
		return false
	}
	return e.Min == nil || CanAssign(e.Min, e.Max, nil)
}

// Resolve picks a concrete type for every bound: the lower bound if it fits
// the upper bound, otherwise the upper bound. It fails if a lower bound does
// not fit its upper bound.
func Resolve(bounds []GenericBound, into Bindings) bool {
	for _, gb := range bounds {
		switch {
		case gb.Min != nil:
			if gb.Max != nil && !CanAssign(gb.Min, gb.Max, nil) {
				return false
			}
			into[gb.Param.nominal] = gb.Min
		case gb.Max != nil:
			into[gb.Param.nominal] = gb.Max
		}
	}
	return true
}

// Consistent reports whether every recorded lower bound fits its upper bound.
func (b *Bounds) Consistent() bool {
	if b == nil {
		return true
	}
	for _, m := range []map[*nominal]*boundEntry{b.l, b.r} {
		for _, e := range m {
			if e.Min != nil && e.Max != nil && !CanAssign(e.Min, e.Max, nil) {
				return false
			}
		}
	}
	return true
}

// CanAssign reports whether a value of type src may be used where dst is
// expected without conversion. Generic parameters on either side record
// bounds into b instead of failing; with a nil b they only match themselves.
func CanAssign(src, dst *Type, b *Bounds) bool {
	if src == dst {
		return true
	}
	if dst.kind == KindGeneric {
		if src.kind == KindGeneric && src.nominal == dst.nominal {
			return true
		}
		if b == nil {
			return false
		}
		return b.lower(b.r, dst, src)
	}
	if src.kind == KindGeneric {
		if b == nil {
			return false
		}
		return b.upper(b.l, src, dst)
	}
	if src.kind == KindOverloaded || dst.kind == KindOverloaded {
		return false
	}
	if dst.kind == KindAny {
		return true
	}
	if src.kind == KindUnion {
		for _, e := range src.elems {
			if !CanAssign(e, dst, b) {
				return false
			}
		}
		return true
	}
	if dst.kind == KindUnion {
		for _, e := range dst.elems {
			try := b.Copy()
			if CanAssign(src, e, try) {
				b.set(try)
				return true
			}
		}
		return false
	}
	if dst.kind.IsPrimitive() {
		return src.kind == dst.kind
	}
	if src.kind != dst.kind {
		return false
	}
	switch dst.kind {
	case KindArray, KindMemory:
		return canAssignContent(src, dst, src.content, dst.content, b)
	case KindOptional:
		return CanAssign(src.content, dst.content, b)
	case KindProc:
		if len(src.in) != len(dst.in) || len(src.out) != len(dst.out) {
			return false
		}
		for i := range src.in {
			if !CanAssign(dst.in[i], src.in[i], b.flip()) {
				return false
			}
		}
		for i := range src.out {
			if !CanAssign(src.out[i], dst.out[i], b) {
				return false
			}
		}
		return true
	case KindTuple:
		if len(src.fields) != len(dst.fields) {
			return false
		}
		for i := range src.fields {
			if !canAssignContent(src, dst, src.fields[i].Type, dst.fields[i].Type, b) {
				return false
			}
		}
		return true
	case KindStruct:
		if dst.mut == Mutable && src.mut != Mutable {
			return false
		}
		for s := src; s != nil; s = s.Parent() {
			if s.nominal == dst.nominal {
				return true
			}
			if s.nominal.origin != nil && s.nominal.origin == dst.nominal.origin &&
				len(s.nominal.args) == len(dst.nominal.args) {
				ok := true
				for i, a := range s.nominal.args {
					if !CanAssign(a, dst.nominal.args[i], b) || !CanAssign(dst.nominal.args[i], a, b.flip()) {
						ok = false
						break
					}
				}
				if ok {
					return true
				}
			}
		}
		return false
	case KindEnum, KindTrait:
		return src.nominal == dst.nominal
	}
	return false
}

// canAssignContent applies the container rule: a mutable target requires a
// mutable source and invariant contents, other targets accept covariant
// contents.
func canAssignContent(src, dst, sc, dc *Type, b *Bounds) bool {
	if dst.mut == Mutable {
		if src.mut != Mutable {
			return false
		}
		return CanAssign(sc, dc, b) && CanAssign(dc, sc, b.flip())
	}
	return CanAssign(sc, dc, b)
}

func (b *Bounds) set(o *Bounds) {
	if b == nil || o == nil {
		return
	}
	for k := range b.l {
		delete(b.l, k)
	}
	for k := range b.r {
		delete(b.r, k)
	}
	for k, v := range o.l {
		b.l[k] = v
	}
	for k, v := range o.r {
		b.r[k] = v
	}
}

// CastKind grades how a value converts to another type.
type CastKind uint8

// Cast kinds, from best to worst.
const (
	// Assign needs no conversion.
	Assign CastKind = iota
	// Convert is an implicit, always succeeding wrapping conversion.
	Convert
	// Cast is an explicit value conversion, allowed implicitly at call sites
	// at a ranking penalty.
	Cast
	// Restrict narrows to a more specific type and may fail at runtime.
	Restrict
	// None means no conversion exists.
	None
)

func (k CastKind) String() string {
	switch k {
	case Assign:
		return "assign"
	case Convert:
		return "convert"
	case Cast:
		return "cast"
	case Restrict:
		return "restrict"
	}
	return "none"
}

// CanCast grades the conversion of src to dst.
func CanCast(src, dst *Type, b *Bounds) CastKind {
	if CanAssign(src, dst, b) {
		return Assign
	}
	if src.kind == KindOverloaded || dst.kind == KindOverloaded {
		return None
	}
	switch {
	case src.kind.IsNumeric() && dst.kind.IsNumeric():
		return Cast
	case dst.kind == KindOptional && CanAssign(src, dst.content, b):
		return Convert
	case dst.kind == KindTrait && dst.Implementor(src) != nil:
		return Convert
	case src.kind == KindAny:
		return Restrict
	case src.kind == KindUnion:
		for _, e := range src.elems {
			if CanAssign(e, dst, nil) || CanAssign(dst, e, nil) {
				return Restrict
			}
		}
	case src.kind == KindStruct && dst.kind == KindStruct:
		for d := dst.Parent(); d != nil; d = d.Parent() {
			if d.nominal == src.nominal {
				return Restrict
			}
		}
	}
	return None
}

// CanConvert reports whether src converts to dst without an explicit cast.
func CanConvert(src, dst *Type) bool {
	k := CanCast(src, dst, nil)
	return k == Assign || k == Convert
}

// Equal compares types structurally; nominal types compare by identity.
// Default and Immutable mutability are considered equal.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.kind != b.kind {
		return false
	}
	if a.kind.IsPrimitive() || a.kind == KindAny {
		return true
	}
	if a.mut.IsDifferent(b.mut) {
		return false
	}
	switch a.kind {
	case KindArray, KindMemory, KindOptional:
		return Equal(a.content, b.content)
	case KindProc:
		return equalAll(a.in, b.in) && equalAll(a.out, b.out)
	case KindTuple:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if !Equal(a.fields[i].Type, b.fields[i].Type) {
				return false
			}
		}
		return true
	case KindUnion:
		if len(a.elems) != len(b.elems) {
			return false
		}
		for _, e := range a.elems {
			found := false
			for _, f := range b.elems {
				if Equal(e, f) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	return a.nominal == b.nominal
}

func equalAll(as, bs []*Type) bool {
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !Equal(as[i], bs[i]) {
			return false
		}
	}
	return true
}

// CommonSuper finds the most specific type both a and b are assignable to.
// A nil a yields b, so that it can fold over a sequence.
func CommonSuper(a, b *Type) (*Type, bool) {
	if a == nil {
		return b, true
	}
	if CanAssign(a, b, nil) {
		return b, true
	}
	if CanAssign(b, a, nil) {
		return a, true
	}
	if a.kind != b.kind {
		return nil, false
	}
	switch a.kind {
	case KindArray, KindMemory, KindOptional:
		c, ok := CommonSuper(a.content, b.content)
		if !ok {
			return nil, false
		}
		return &Type{kind: a.kind, content: c}, true
	case KindTuple:
		if len(a.fields) != len(b.fields) {
			return nil, false
		}
		elems := make([]*Type, len(a.fields))
		for i := range a.fields {
			c, ok := CommonSuper(a.fields[i].Type, b.fields[i].Type)
			if !ok {
				return nil, false
			}
			elems[i] = c
		}
		return Tuple(elems...), true
	case KindStruct:
		for s := a.Parent(); s != nil; s = s.Parent() {
			if CanAssign(b, s.WithMutability(Default), nil) {
				return s.WithMutability(Default), true
			}
		}
	}
	return nil, false
}
