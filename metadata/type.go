package metadata

import (
	"slices"
	"strings"
)

// TypeKind identifies the category of a type.
type TypeKind uint8

const (
	// KindClass is a reference type.
	KindClass TypeKind = iota
	// KindValue is a value (struct-like) type.
	KindValue
	// KindInterface is an interface; it is neither class nor value type.
	KindInterface
)

func (k TypeKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindValue:
		return "struct"
	case KindInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// TypeFlags holds type attributes beyond the kind.
type TypeFlags uint8

const (
	TypeAbstract TypeFlags = 1 << iota
	TypeSealed
)

// Type describes a declared type. It is immutable once built.
type Type struct {
	fullName string
	kind     TypeKind
	flags    TypeFlags
	members  []*Member
}

// NewType builds a Type and takes ownership of members, which must not be
// shared with another type.
func NewType(fullName string, kind TypeKind, flags TypeFlags, members ...*Member) *Type {
	t := &Type{
		fullName: fullName,
		kind:     kind,
		flags:    flags,
		members:  members,
	}
	for _, m := range members {
		m.declaring = t
	}
	return t
}

// FullName returns the namespace-qualified name; nested types are joined
// with '+'.
func (t *Type) FullName() string { return t.fullName }

// Namespace returns the namespace of the outermost enclosing type.
func (t *Type) Namespace() string {
	outer, _, _ := strings.Cut(t.fullName, "+")
	if i := strings.LastIndexByte(outer, '.'); i >= 0 {
		return outer[:i]
	}
	return ""
}

// Name returns the simple name.
func (t *Type) Name() string {
	name := t.fullName
	if i := strings.LastIndexByte(name, '+'); i >= 0 {
		return name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func (t *Type) Kind() TypeKind    { return t.kind }
func (t *Type) IsValueType() bool { return t.kind == KindValue }
func (t *Type) IsInterface() bool { return t.kind == KindInterface }
func (t *Type) IsClass() bool     { return t.kind == KindClass }
func (t *Type) IsAbstract() bool  { return t.flags&TypeAbstract != 0 }
func (t *Type) IsSealed() bool    { return t.flags&TypeSealed != 0 }

// IsStatic reports whether the type is a static-only class: a class that is
// both abstract and sealed.
func (t *Type) IsStatic() bool {
	return t.IsClass() && t.IsAbstract() && t.IsSealed()
}

// Members returns the declared members in declaration order: fields,
// then constructors and methods, then properties.
func (t *Type) Members() []*Member {
	return slices.Clone(t.members)
}

// MembersOf returns the declared members of one kind in declaration order.
func (t *Type) MembersOf(kind MemberKind) []*Member {
	var out []*Member
	for _, m := range t.members {
		if m.kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Member returns the first declared member named name.
func (t *Type) Member(name string) (*Member, bool) {
	for _, m := range t.members {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

func (t *Type) String() string { return t.fullName }
