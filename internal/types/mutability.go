package types

// Mutability tags a type, a field or a variable.
// Undecided and Inherit are placeholders that are resolved before a type is
// used for a stack frame.
type Mutability uint8

// Mutability values.
const (
	Default Mutability = iota
	Mutable
	Immutable
	Undecided
	Inherit
)

var mutabilityNames = [...]string{
	Default:   "default",
	Mutable:   "mut",
	Immutable: "mut~",
	Undecided: "mut?",
	Inherit:   "mut^",
}

func (m Mutability) String() string {
	if int(m) < len(mutabilityNames) {
		return mutabilityNames[m]
	}
	return "invalid mutability"
}

// IsEqual compares mutabilities, treating Default and Immutable as the same.
func (m Mutability) IsEqual(o Mutability) bool {
	return m.normal() == o.normal()
}

// IsDifferent is the negation of IsEqual.
func (m Mutability) IsDifferent(o Mutability) bool { return !m.IsEqual(o) }

func (m Mutability) normal() Mutability {
	if m == Default {
		return Immutable
	}
	return m
}

// Accessibility of a declaration or field outside of its declaring file.
type Accessibility uint8

// Accessibility values.
const (
	Private Accessibility = iota
	ReadOnly
	Public
)

func (a Accessibility) String() string {
	switch a {
	case Public:
		return "public"
	case ReadOnly:
		return "restricted"
	default:
		return "private"
	}
}
