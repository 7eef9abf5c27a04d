package metadata

import "slices"

// MemberKind identifies the category of a member.
type MemberKind uint8

const (
	MemberUnknown MemberKind = iota
	MemberField
	MemberProperty
	MemberConstructor
	MemberMethod
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberProperty:
		return "property"
	case MemberConstructor:
		return "constructor"
	case MemberMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the four supported kinds.
func (k MemberKind) Valid() bool {
	return k >= MemberField && k <= MemberMethod
}

// ParseMemberKind maps a lowercase kind name back to a MemberKind.
func ParseMemberKind(s string) (MemberKind, bool) {
	for k := MemberField; k <= MemberMethod; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return MemberUnknown, false
}

// Parameter is a positional (name, type name) pair of a constructor or method.
type Parameter struct {
	Name     string `yaml:"name"`
	TypeName string `yaml:"type"`
}

// Accessor describes one property accessor method.
type Accessor struct {
	Static bool `yaml:"static"`
}

// Member describes a member declared directly on a type.
type Member struct {
	name     string
	kind     MemberKind
	static   bool
	typeName string
	params   []Parameter

	declaring *Type
}

// NewMember builds a member of any kind. For constructors typeName is
// ignored in favour of the declaring type's full name.
func NewMember(kind MemberKind, name, typeName string, static bool, params ...Parameter) *Member {
	return &Member{
		name:     name,
		kind:     kind,
		static:   static,
		typeName: typeName,
		params:   params,
	}
}

// NewField builds a field of the given type.
func NewField(name, typeName string, static bool) *Member {
	return NewMember(MemberField, name, typeName, static)
}

// NewProperty builds a property. Its staticness is the getter's if present,
// otherwise the setter's; a property with no accessor is an instance property.
func NewProperty(name, typeName string, getter, setter *Accessor) *Member {
	static := false
	switch {
	case getter != nil:
		static = getter.Static
	case setter != nil:
		static = setter.Static
	}
	return NewMember(MemberProperty, name, typeName, static)
}

// NewConstructor builds a constructor (".ctor", or ".cctor" when static).
func NewConstructor(static bool, params ...Parameter) *Member {
	name := ".ctor"
	if static {
		name = ".cctor"
	}
	return NewMember(MemberConstructor, name, "", static, params...)
}

// NewMethod builds a method with the given return type name.
func NewMethod(name, returnType string, static bool, params ...Parameter) *Member {
	return NewMember(MemberMethod, name, returnType, static, params...)
}

func (m *Member) Name() string         { return m.name }
func (m *Member) Kind() MemberKind     { return m.kind }
func (m *Member) IsStatic() bool       { return m.static }
func (m *Member) DeclaringType() *Type { return m.declaring }

// TypeName returns the value type of a field or property, the return type of
// a method, or the declaring type of a constructor. An empty string denotes
// a type with no full name, such as an open generic parameter.
func (m *Member) TypeName() string {
	if m.kind == MemberConstructor && m.declaring != nil {
		return m.declaring.fullName
	}
	return m.typeName
}

// Parameters returns the constructor or method parameters in order.
func (m *Member) Parameters() []Parameter {
	return slices.Clone(m.params)
}

func (m *Member) String() string {
	if m.declaring == nil {
		return m.name
	}
	return m.declaring.fullName + ":" + m.name
}
