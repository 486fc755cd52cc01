package types

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jcorbin/goconcat/internal/fileinput"
)

// Kind discriminates the variants of Type.
type Kind uint8

// Type kinds.
const (
	KindAny Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindByte
	KindCodepoint
	KindType
	KindGeneric
	KindProc
	KindTuple
	KindStruct
	KindTrait
	KindEnum
	KindUnion
	KindArray
	KindMemory
	KindOptional
	KindOverloaded
)

var kindNames = [...]string{
	KindAny:        "var",
	KindBool:       "bool",
	KindInt:        "int",
	KindUint:       "uint",
	KindFloat:      "float",
	KindByte:       "byte",
	KindCodepoint:  "codepoint",
	KindType:       "type",
	KindGeneric:    "generic",
	KindProc:       "procedure",
	KindTuple:      "tuple",
	KindStruct:     "struct",
	KindTrait:      "trait",
	KindEnum:       "enum",
	KindUnion:      "union",
	KindArray:      "array",
	KindMemory:     "memory",
	KindOptional:   "optional",
	KindOverloaded: "overloaded procedure pointer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid kind"
}

// IsPrimitive returns true for the value kinds that carry no sub-types.
func (k Kind) IsPrimitive() bool { return k >= KindBool && k <= KindType }

// IsNumeric returns true for kinds that convert among each other by cast.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt, KindUint, KindFloat, KindByte, KindCodepoint:
		return true
	}
	return false
}

// Field describes one element of a tuple, struct or trait.
type Field struct {
	Name   string
	Type   *Type
	Mut    Mutability
	Access Accessibility
	Pos    fileinput.Location
}

// Type is an immutable description of a value shape. Nominal types (struct,
// enum, trait, generic parameter) share a *nominal between all of their
// mutability variants; it is their identity.
type Type struct {
	kind     Kind
	mut      Mutability
	content  *Type
	in, out  []*Type
	explicit []*Type
	elems    []*Type
	fields   []Field
	nominal  *nominal
}

type nominal struct {
	id       uint64
	name     string
	pos      fileinput.Location
	implicit bool

	parent  *Type
	fields  []Field
	entries []string
	ready   bool

	// generic struct instances
	origin      interface{}
	args        []*Type
	instantiate func(args []*Type) (*Type, error)

	implementors map[string]bool
}

var nominalIDs uint64

func newNominal(name string, pos fileinput.Location) *nominal {
	return &nominal{
		id:   atomic.AddUint64(&nominalIDs, 1),
		name: name,
		pos:  pos,
	}
}

// Primitive types.
var (
	Any       = &Type{kind: KindAny}
	Bool      = &Type{kind: KindBool}
	Int       = &Type{kind: KindInt}
	Uint      = &Type{kind: KindUint}
	Float     = &Type{kind: KindFloat}
	Byte      = &Type{kind: KindByte}
	Codepoint = &Type{kind: KindCodepoint}
	TypeType  = &Type{kind: KindType}
)

// String is the type of string literals: an immutable byte array.
var String = ArrayOf(Byte)

// ArrayOf returns the array type with the given content.
func ArrayOf(t *Type) *Type { return &Type{kind: KindArray, content: t} }

// MemoryOf returns the memory (growable array) type with the given content.
func MemoryOf(t *Type) *Type { return &Type{kind: KindMemory, content: t} }

// OptionalOf returns the optional type with the given content.
func OptionalOf(t *Type) *Type { return &Type{kind: KindOptional, content: t} }

// Proc returns a procedure type.
func Proc(in, out []*Type) *Type {
	return &Type{kind: KindProc, in: in, out: out}
}

// GenericProc returns a procedure type that declares explicit generic
// parameters, which callers supply as type arguments preceding the call.
func GenericProc(explicit, in, out []*Type) *Type {
	return &Type{kind: KindProc, explicit: explicit, in: in, out: out}
}

// Tuple returns an anonymous tuple type.
func Tuple(elems ...*Type) *Type {
	fields := make([]Field, len(elems))
	for i, t := range elems {
		fields[i] = Field{Type: t, Mut: Default, Access: Public}
	}
	return &Type{kind: KindTuple, fields: fields}
}

// NewGeneric declares a fresh generic parameter.
func NewGeneric(name string, implicit bool, pos fileinput.Location) *Type {
	nom := newNominal(name, pos)
	nom.implicit = implicit
	return &Type{kind: KindGeneric, nominal: nom}
}

// NewStruct declares a new struct type; its fields are set once the
// declaration is checked.
func NewStruct(name string, pos fileinput.Location) *Type {
	return &Type{kind: KindStruct, nominal: newNominal(name, pos)}
}

// NewStructInstance declares the struct created by instantiating a generic
// struct declaration with concrete type arguments. The instantiate callback
// is used to substitute generic parameters inside args.
func NewStructInstance(name string, pos fileinput.Location, origin interface{}, args []*Type, instantiate func([]*Type) (*Type, error)) *Type {
	t := NewStruct(name, pos)
	t.nominal.origin = origin
	t.nominal.args = args
	t.nominal.instantiate = instantiate
	return t
}

// NewEnum declares an enum type.
func NewEnum(name string, entries []string, pos fileinput.Location) *Type {
	nom := newNominal(name, pos)
	nom.entries = entries
	nom.ready = true
	return &Type{kind: KindEnum, nominal: nom}
}

// NewTrait declares a trait type; its fields are set once checked.
func NewTrait(name string, pos fileinput.Location) *Type {
	return &Type{kind: KindTrait, nominal: newNominal(name, pos)}
}

// OverloadedPtr returns the frame type of an unresolved overloaded procedure
// pointer; each call creates a distinct placeholder type.
func OverloadedPtr(name string) *Type {
	return &Type{kind: KindOverloaded, nominal: newNominal(name, fileinput.Location{})}
}

// Union returns the union of the given alternatives, flattening nested
// unions and dropping duplicates. A union of one type is that type.
func Union(elems ...*Type) *Type {
	var flat []*Type
	var add func(t *Type)
	add = func(t *Type) {
		if t.kind == KindUnion {
			for _, e := range t.elems {
				add(e)
			}
			return
		}
		for _, prior := range flat {
			if Equal(prior, t) {
				return
			}
		}
		flat = append(flat, t)
	}
	for _, e := range elems {
		add(e)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Type{kind: KindUnion, elems: flat}
}

// SetStructFields completes a struct declaration. Parent fields come first.
func (t *Type) SetStructFields(parent *Type, own []Field) {
	nom := t.nominal
	nom.parent = parent
	var fields []Field
	if parent != nil {
		fields = append(fields, parent.Fields()...)
	}
	nom.fields = append(fields, own...)
	nom.ready = true
}

// SetTraitFields completes a trait declaration.
func (t *Type) SetTraitFields(fields []Field) {
	t.nominal.fields = fields
	t.nominal.ready = true
}

// AddImplementor records that values of src may be converted to trait t.
func (t *Type) AddImplementor(src *Type) {
	nom := t.nominal
	if nom.implementors == nil {
		nom.implementors = make(map[string]bool)
	}
	nom.implementors[src.WithMutability(Default).Key()] = true
}

// Implementor returns the type, src or one of its struct ancestors, that
// implements trait t, or nil if there is none.
func (t *Type) Implementor(src *Type) *Type {
	if t.kind != KindTrait || t.nominal.implementors == nil {
		return nil
	}
	for s := src; s != nil; s = s.Parent() {
		if t.nominal.implementors[s.WithMutability(Default).Key()] {
			return s
		}
	}
	return nil
}

// Kind returns the variant of t.
func (t *Type) Kind() Kind { return t.kind }

// Mutability returns the mutability tag of t.
func (t *Type) Mutability() Mutability { return t.mut }

// IsMutable reports whether the type is tagged mutable.
func (t *Type) IsMutable() bool { return t.mut == Mutable }

// Content is the element type of array, memory and optional types.
func (t *Type) Content() *Type { return t.content }

// In returns the input types of a procedure type.
func (t *Type) In() []*Type { return t.in }

// Out returns the output types of a procedure type.
func (t *Type) Out() []*Type { return t.out }

// ExplicitGenerics returns the explicit generic parameters of a generic
// procedure type.
func (t *Type) ExplicitGenerics() []*Type { return t.explicit }

// Name returns the declared name of a nominal type.
func (t *Type) Name() string {
	if t.nominal != nil {
		return t.nominal.name
	}
	return ""
}

// Pos returns the declaration site of a nominal type.
func (t *Type) Pos() fileinput.Location {
	if t.nominal != nil {
		return t.nominal.pos
	}
	return fileinput.Location{}
}

// IsImplicit reports whether a generic parameter is inferred by callers.
func (t *Type) IsImplicit() bool { return t.nominal != nil && t.nominal.implicit }

// Ready reports whether a struct or trait has had its fields set.
func (t *Type) Ready() bool {
	return t.nominal == nil || t.nominal.ready
}

// Fields returns the fields of a tuple, struct or trait.
func (t *Type) Fields() []Field {
	if t.nominal != nil {
		return t.nominal.fields
	}
	return t.fields
}

// FieldIndex looks up a named field; tuples also accept decimal indices.
func (t *Type) FieldIndex(name string) (int, bool) {
	for i, f := range t.Fields() {
		if f.Name == name {
			return i, true
		}
	}
	if t.kind == KindTuple {
		n := 0
		for _, r := range name {
			if r < '0' || r > '9' {
				return 0, false
			}
			n = 10*n + int(r-'0')
		}
		if name != "" && n < len(t.fields) {
			return n, true
		}
	}
	return 0, false
}

// Parent returns the extended struct of a struct, or nil.
func (t *Type) Parent() *Type {
	if t.kind == KindStruct {
		return t.nominal.parent
	}
	return nil
}

// Entries returns the entry names of an enum.
func (t *Type) Entries() []string {
	if t.kind == KindEnum {
		return t.nominal.entries
	}
	return nil
}

// EntryIndex returns the ordinal of a named enum entry.
func (t *Type) EntryIndex(name string) (int, bool) {
	for i, e := range t.Entries() {
		if e == name {
			return i, true
		}
	}
	return 0, false
}

// Elems returns the alternatives of a union.
func (t *Type) Elems() []*Type { return t.elems }

// Origin returns the generic declaration a struct instance was created from.
func (t *Type) Origin() interface{} {
	if t.nominal != nil {
		return t.nominal.origin
	}
	return nil
}

// TypeArgs returns the type arguments of a generic struct instance.
func (t *Type) TypeArgs() []*Type {
	if t.nominal != nil {
		return t.nominal.args
	}
	return nil
}

// SameNominal reports whether a and b are variants of the same nominal type.
func SameNominal(a, b *Type) bool {
	return a.nominal != nil && a.nominal == b.nominal
}

// WithMutability returns a copy of t tagged with m.
func (t *Type) WithMutability(m Mutability) *Type {
	if t.mut == m {
		return t
	}
	if t.kind.IsPrimitive() || t.kind == KindAny {
		return t
	}
	cp := *t
	cp.mut = m
	return &cp
}

// Depth measures the nesting of type constructors in t.
func (t *Type) Depth() int {
	max := func(ts []*Type) int {
		d := 0
		for _, s := range ts {
			if sd := s.Depth(); sd > d {
				d = sd
			}
		}
		return d
	}
	switch t.kind {
	case KindArray, KindMemory, KindOptional:
		return 1 + t.content.Depth()
	case KindProc:
		in, out := max(t.in), max(t.out)
		if out > in {
			in = out
		}
		return 1 + in
	case KindTuple:
		var ts []*Type
		for _, f := range t.fields {
			ts = append(ts, f.Type)
		}
		return 1 + max(ts)
	case KindUnion:
		return 1 + max(t.elems)
	case KindStruct:
		if args := t.nominal.args; len(args) > 0 {
			return 1 + max(args)
		}
	}
	return 0
}

// ImplicitGenerics collects the implicit generic parameters that appear in t,
// in order of first appearance.
func (t *Type) ImplicitGenerics() []*Type {
	var found []*Type
	seen := make(map[*nominal]bool)
	t.walk(func(s *Type) {
		if s.kind == KindGeneric && s.nominal.implicit && !seen[s.nominal] {
			seen[s.nominal] = true
			found = append(found, s)
		}
	})
	return found
}

// IsGeneric reports whether t mentions any generic parameter.
func (t *Type) IsGeneric() bool {
	generic := false
	t.walk(func(s *Type) {
		if s.kind == KindGeneric {
			generic = true
		}
	})
	return generic
}

func (t *Type) walk(f func(*Type)) {
	f(t)
	switch t.kind {
	case KindArray, KindMemory, KindOptional:
		t.content.walk(f)
	case KindProc:
		for _, s := range t.in {
			s.walk(f)
		}
		for _, s := range t.out {
			s.walk(f)
		}
	case KindTuple:
		for _, fl := range t.fields {
			fl.Type.walk(f)
		}
	case KindUnion:
		for _, s := range t.elems {
			s.walk(f)
		}
	case KindStruct:
		for _, s := range t.nominal.args {
			s.walk(f)
		}
	}
}

func (t *Type) String() string {
	var sb strings.Builder
	t.write(&sb, false)
	return sb.String()
}

// Key returns a string that identifies t structurally, with nominal types
// distinguished by identity; it keys generic instantiation caches.
func (t *Type) Key() string {
	var sb strings.Builder
	t.write(&sb, true)
	return sb.String()
}

// KeyOf joins the keys of a type vector.
func KeyOf(ts []*Type) string {
	var sb strings.Builder
	for i, t := range ts {
		if i > 0 {
			sb.WriteByte(',')
		}
		t.write(&sb, true)
	}
	return sb.String()
}

func (t *Type) write(sb *strings.Builder, ids bool) {
	writeAll := func(ts []*Type) {
		for _, s := range ts {
			s.write(sb, ids)
			sb.WriteByte(' ')
		}
	}
	switch t.kind {
	case KindArray, KindMemory, KindOptional:
		t.content.write(sb, ids)
		sb.WriteByte(' ')
		sb.WriteString(t.kind.String())
	case KindProc:
		sb.WriteString("( ")
		writeAll(t.in)
		sb.WriteString("=> ")
		writeAll(t.out)
		sb.WriteString(")")
	case KindTuple:
		sb.WriteString("( ")
		for _, f := range t.fields {
			f.Type.write(sb, ids)
			sb.WriteByte(' ')
		}
		sb.WriteString(")")
	case KindUnion:
		sb.WriteString("union( ")
		writeAll(t.elems)
		sb.WriteString(")")
	case KindStruct, KindEnum, KindTrait, KindGeneric, KindOverloaded:
		if args := t.nominal.args; len(args) > 0 {
			writeAll(args)
		}
		sb.WriteString(t.nominal.name)
		if ids {
			sb.WriteByte('#')
			sb.WriteString(strconv.FormatUint(t.nominal.id, 10))
		}
	default:
		sb.WriteString(t.kind.String())
	}
	switch t.mut {
	case Mutable, Undecided, Inherit:
		sb.WriteByte(' ')
		sb.WriteString(t.mut.String())
	}
}
