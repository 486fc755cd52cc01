package ir

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jcorbin/goconcat/internal/types"
)

// ErrInvalidCast is returned by value conversions that cannot succeed.
var ErrInvalidCast = errors.New("invalid cast")

// Value is a runtime value. Scalars live in num (floats as their bit
// pattern, enum entries as their ordinal); everything else hangs off ref.
type Value struct {
	Type *types.Type
	num  uint64
	ref  interface{}
}

// Tuple is the payload of tuple and struct values.
type Tuple struct {
	Elems []Value
}

// Array is the payload of array, memory and string values.
type Array struct {
	Elems []Value
}

// Callee is the payload of procedure values: a user procedure or a native,
// with the values captured when the procedure value was created.
type Callee struct {
	Proc    *Procedure
	Native  *Native
	Curried []Value
}

// TraitValue wraps a value converted to a trait, with the implementation of
// each trait field.
type TraitValue struct {
	Base Value
	Impl []Value
}

// Bool returns a bool value.
func Bool(b bool) Value {
	if b {
		return Value{Type: types.Bool, num: 1}
	}
	return Value{Type: types.Bool}
}

// Int returns an int value.
func Int(i int64) Value { return Value{Type: types.Int, num: uint64(i)} }

// Uint returns a uint value.
func Uint(u uint64) Value { return Value{Type: types.Uint, num: u} }

// Float returns a float value.
func Float(f float64) Value { return Value{Type: types.Float, num: math.Float64bits(f)} }

// Byte returns a byte value.
func Byte(b byte) Value { return Value{Type: types.Byte, num: uint64(b)} }

// Codepoint returns a codepoint value.
func Codepoint(r rune) Value { return Value{Type: types.Codepoint, num: uint64(uint32(r))} }

// TypeValue returns a value denoting the type t.
func TypeValue(t *types.Type) Value { return Value{Type: types.TypeType, ref: t} }

// String returns a string literal value.
func String(s string) Value {
	elems := make([]Value, len(s))
	for i := 0; i < len(s); i++ {
		elems[i] = Byte(s[i])
	}
	return Value{Type: types.String, ref: &Array{elems}}
}

// Entry returns the entry of enum t with the given ordinal.
func Entry(t *types.Type, ordinal int) Value { return Value{Type: t, num: uint64(ordinal)} }

// NewTuple returns a tuple or struct value.
func NewTuple(t *types.Type, elems []Value) Value {
	return Value{Type: t, ref: &Tuple{elems}}
}

// NewArray returns an array or memory value.
func NewArray(t *types.Type, elems []Value) Value {
	return Value{Type: t, ref: &Array{elems}}
}

// Some returns a present optional of type t.
func Some(t *types.Type, v Value) Value { return Value{Type: t, ref: &v} }

// Empty returns an absent optional of type t.
func Empty(t *types.Type) Value { return Value{Type: t} }

// ProcValue returns a procedure value of type t.
func ProcValue(t *types.Type, c *Callee) Value { return Value{Type: t, ref: c} }

// NewTraitValue wraps base as a value of trait t.
func NewTraitValue(t *types.Type, base Value, impl []Value) Value {
	return Value{Type: t, ref: &TraitValue{base, impl}}
}

func (v Value) kind() types.Kind {
	if v.Type == nil {
		return types.KindAny
	}
	return v.Type.Kind()
}

// AsBool returns the truth of a bool value.
func (v Value) AsBool() bool { return v.num != 0 }

// AsInt returns the integer payload, reinterpreting other scalars.
func (v Value) AsInt() int64 {
	if v.kind() == types.KindFloat {
		return int64(v.AsFloat())
	}
	return int64(v.num)
}

// AsUint returns the unsigned payload.
func (v Value) AsUint() uint64 {
	if v.kind() == types.KindFloat {
		return uint64(v.AsFloat())
	}
	return v.num
}

// AsFloat returns the float payload.
func (v Value) AsFloat() float64 {
	switch v.kind() {
	case types.KindFloat:
		return math.Float64frombits(v.num)
	case types.KindInt:
		return float64(int64(v.num))
	}
	return float64(v.num)
}

// AsCodepoint returns the codepoint payload.
func (v Value) AsCodepoint() rune { return rune(int32(uint32(v.num))) }

// AsType returns the type denoted by a type value.
func (v Value) AsType() *types.Type {
	t, _ := v.ref.(*types.Type)
	return t
}

// Ordinal returns the entry index of an enum value.
func (v Value) Ordinal() int { return int(v.num) }

// Tuple returns the payload of a tuple or struct value.
func (v Value) Tuple() *Tuple {
	t, _ := v.ref.(*Tuple)
	return t
}

// Array returns the payload of an array, memory or string value.
func (v Value) Array() *Array {
	a, _ := v.ref.(*Array)
	return a
}

// Callee returns the payload of a procedure value.
func (v Value) Callee() *Callee {
	c, _ := v.ref.(*Callee)
	return c
}

// TraitValue returns the payload of a trait value.
func (v Value) TraitValue() *TraitValue {
	tv, _ := v.ref.(*TraitValue)
	return tv
}

// Content returns the payload of an optional value and whether it is present.
func (v Value) Content() (Value, bool) {
	if p, ok := v.ref.(*Value); ok {
		return *p, true
	}
	return Value{}, false
}

// AsString decodes a string (byte array) value.
func (v Value) AsString() string {
	a := v.Array()
	if a == nil {
		return ""
	}
	var sb strings.Builder
	for _, e := range a.Elems {
		sb.WriteByte(byte(e.num))
	}
	return sb.String()
}

// IsString reports whether v is a byte array.
func (v Value) IsString() bool {
	return v.kind() == types.KindArray && v.Type.Content().Kind() == types.KindByte
}

// SwitchKey returns the key used by switch tables, for the scalar values
// that may appear as case labels.
func (v Value) SwitchKey() (uint64, bool) {
	switch v.kind() {
	case types.KindBool, types.KindInt, types.KindUint, types.KindByte,
		types.KindCodepoint, types.KindEnum:
		return v.num, true
	}
	return 0, false
}

// Equal compares two values; containers compare elementwise.
func Equal(a, b Value) bool {
	switch a.kind() {
	case types.KindFloat:
		return a.AsFloat() == b.AsFloat()
	case types.KindType:
		return types.Equal(a.AsType(), b.AsType())
	case types.KindArray, types.KindMemory:
		ae, be := a.Array(), b.Array()
		if ae == nil || be == nil {
			return ae == be
		}
		return equalAll(ae.Elems, be.Elems)
	case types.KindTuple, types.KindStruct:
		at, bt := a.Tuple(), b.Tuple()
		if at == nil || bt == nil {
			return at == bt
		}
		return equalAll(at.Elems, bt.Elems)
	case types.KindOptional:
		ac, aok := a.Content()
		bc, bok := b.Content()
		return aok == bok && (!aok || Equal(ac, bc))
	case types.KindProc:
		return a.ref == b.ref
	}
	return a.num == b.num && a.ref == b.ref
}

func equalAll(as, bs []Value) bool {
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

// DeeplyImmutable reports whether no part of v can be changed in place, so
// that it may be shared instead of cloned.
func (v Value) DeeplyImmutable() bool {
	return deeplyImmutable(v.Type)
}

func deeplyImmutable(t *types.Type) bool {
	if t == nil {
		return true
	}
	switch t.Kind() {
	case types.KindArray, types.KindMemory:
		return !t.IsMutable() && t.Kind() == types.KindArray && deeplyImmutable(t.Content())
	case types.KindOptional:
		return deeplyImmutable(t.Content())
	case types.KindTuple, types.KindStruct:
		if t.IsMutable() {
			return false
		}
		for _, f := range t.Fields() {
			if f.Mut == types.Mutable || !deeplyImmutable(f.Type) {
				return false
			}
		}
		return true
	case types.KindAny, types.KindUnion, types.KindTrait:
		return false
	}
	return true
}

// Clone copies every mutable container reachable from v.
func (v Value) Clone() Value {
	if v.DeeplyImmutable() {
		return v
	}
	switch p := v.ref.(type) {
	case *Array:
		v.ref = &Array{cloneAll(p.Elems)}
	case *Tuple:
		v.ref = &Tuple{cloneAll(p.Elems)}
	case *Value:
		c := p.Clone()
		v.ref = &c
	case *TraitValue:
		v.ref = &TraitValue{p.Base.Clone(), p.Impl}
	}
	return v
}

func cloneAll(vs []Value) []Value {
	out := make([]Value, len(vs))
	for i, e := range vs {
		out[i] = e.Clone()
	}
	return out
}

// CastTo converts v to type t. Conversions to traits need implementation
// tables and are done by the caller.
func (v Value) CastTo(t *types.Type) (Value, error) {
	if types.CanAssign(v.Type, t, nil) {
		return v, nil
	}
	src, dst := v.kind(), t.Kind()
	if src.IsNumeric() && dst.IsNumeric() {
		switch dst {
		case types.KindInt:
			return Int(v.AsInt()), nil
		case types.KindUint:
			return Uint(v.AsUint()), nil
		case types.KindFloat:
			return Float(v.AsFloat()), nil
		case types.KindByte:
			return Byte(byte(v.AsUint())), nil
		case types.KindCodepoint:
			return Codepoint(rune(v.AsInt())), nil
		}
	}
	if dst == types.KindOptional {
		c, err := v.CastTo(t.Content())
		if err != nil {
			return Value{}, err
		}
		return Some(t, c), nil
	}
	return Value{}, fmt.Errorf("%w: %v to %v", ErrInvalidCast, v.Type, t)
}

func (v Value) String() string {
	switch v.kind() {
	case types.KindBool:
		return strconv.FormatBool(v.AsBool())
	case types.KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case types.KindUint:
		return strconv.FormatUint(v.num, 10) + "u"
	case types.KindFloat:
		f := v.AsFloat()
		switch {
		case math.IsNaN(f):
			return "NaN"
		case math.IsInf(f, 1):
			return "Infinity"
		case math.IsInf(f, -1):
			return "-Infinity"
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case types.KindByte:
		return fmt.Sprintf("0x%02x", byte(v.num))
	case types.KindCodepoint:
		return strconv.QuoteRune(v.AsCodepoint())
	case types.KindType:
		return v.AsType().String()
	case types.KindEnum:
		entries := v.Type.Entries()
		if i := v.Ordinal(); i < len(entries) {
			return v.Type.Name() + "." + entries[i]
		}
	case types.KindOptional:
		if c, ok := v.Content(); ok {
			return c.String() + " optional"
		}
		return v.Type.Content().String() + " empty"
	case types.KindProc:
		if c := v.Callee(); c != nil {
			name := "lambda"
			if c.Proc != nil && c.Proc.Label != "" {
				name = c.Proc.Label
			} else if c.Native != nil {
				name = c.Native.Label
			}
			return "@" + name
		}
	}
	if v.IsString() && !v.Type.IsMutable() {
		return strconv.Quote(v.AsString())
	}
	if a := v.Array(); a != nil {
		return "{ " + joinAll(a.Elems) + "}"
	}
	if tp := v.Tuple(); tp != nil {
		return "( " + joinAll(tp.Elems) + ")"
	}
	if tv := v.TraitValue(); tv != nil {
		return tv.Base.String()
	}
	return fmt.Sprintf("<%v>", v.Type)
}

func joinAll(vs []Value) string {
	var sb strings.Builder
	for _, e := range vs {
		sb.WriteString(e.String())
		sb.WriteByte(' ')
	}
	return sb.String()
}

// Zero returns the zero value of t: false, zero numbers, empty containers and
// optionals. Procedure, trait and var types have no zero value.
func Zero(t *types.Type) (Value, bool) {
	switch t.Kind() {
	case types.KindBool, types.KindInt, types.KindUint, types.KindByte,
		types.KindCodepoint, types.KindEnum:
		return Value{Type: t}, true
	case types.KindFloat:
		return Float(0), true
	case types.KindType:
		return TypeValue(types.Any), true
	case types.KindArray, types.KindMemory:
		return NewArray(t, nil), true
	case types.KindOptional:
		return Empty(t), true
	case types.KindTuple, types.KindStruct:
		fields := t.Fields()
		elems := make([]Value, len(fields))
		for i, f := range fields {
			z, ok := Zero(f.Type)
			if !ok {
				return Value{}, false
			}
			elems[i] = z
		}
		return NewTuple(t, elems), true
	}
	return Value{}, false
}
