package tables

// TypeDef flags (ECMA-335 II.23.1.15).
const (
	TypeInterface uint32 = 0x00000020
	TypeAbstract  uint32 = 0x00000080
	TypeSealed    uint32 = 0x00000100
)

// Field flags (ECMA-335 II.23.1.5).
const (
	FieldStatic  uint16 = 0x0010
	FieldLiteral uint16 = 0x0040
)

// MethodDef flags (ECMA-335 II.23.1.10).
const (
	MethodStatic        uint16 = 0x0010
	MethodVirtual       uint16 = 0x0040
	MethodAbstract      uint16 = 0x0400
	MethodSpecialName   uint16 = 0x0800
	MethodRTSpecialName uint16 = 0x1000
)

// MethodSemantics attributes (ECMA-335 II.23.1.12).
const (
	SemanticsSetter   uint16 = 0x0001
	SemanticsGetter   uint16 = 0x0002
	SemanticsOther    uint16 = 0x0004
	SemanticsAddOn    uint16 = 0x0008
	SemanticsRemoveOn uint16 = 0x0010
	SemanticsFire     uint16 = 0x0020
)

// TypeRefRow is a decoded TypeRef row.
type TypeRefRow struct {
	ResolutionScope uint32 // coded ResolutionScope
	Name            uint32 // #Strings
	Namespace       uint32 // #Strings
}

// TypeDefRow is a decoded TypeDef row.
type TypeDefRow struct {
	Flags      uint32
	Name       uint32 // #Strings
	Namespace  uint32 // #Strings
	Extends    uint32 // coded TypeDefOrRef
	FieldList  uint32
	MethodList uint32
}

// FieldRow is a decoded Field row.
type FieldRow struct {
	Flags     uint16
	Name      uint32 // #Strings
	Signature uint32 // #Blob
}

// MethodDefRow is a decoded MethodDef row.
type MethodDefRow struct {
	RVA       uint32
	ImplFlags uint16
	Flags     uint16
	Name      uint32 // #Strings
	Signature uint32 // #Blob
	ParamList uint32
}

// ParamRow is a decoded Param row.
type ParamRow struct {
	Flags    uint16
	Sequence uint16
	Name     uint32 // #Strings
}

// PropertyMapRow is a decoded PropertyMap row.
type PropertyMapRow struct {
	Parent       uint32
	PropertyList uint32
}

// PropertyRow is a decoded Property row.
type PropertyRow struct {
	Flags     uint16
	Name      uint32 // #Strings
	Signature uint32 // #Blob
}

// MethodSemanticsRow is a decoded MethodSemantics row.
type MethodSemanticsRow struct {
	Semantics   uint16
	Method      uint32
	Association uint32 // coded HasSemantics
}

// NestedClassRow is a decoded NestedClass row.
type NestedClassRow struct {
	Nested    uint32
	Enclosing uint32
}

// AssemblyRow is a decoded Assembly row.
type AssemblyRow struct {
	HashAlgID uint32
	Major     uint16
	Minor     uint16
	Build     uint16
	Revision  uint16
	Flags     uint32
	PublicKey uint32 // #Blob
	Name      uint32 // #Strings
	Culture   uint32 // #Strings
}

// TypeRef decodes TypeRef row rid.
func (s *Stream) TypeRef(rid uint32) (TypeRefRow, error) {
	v, err := s.Row(TypeRef, rid)
	if err != nil {
		return TypeRefRow{}, err
	}
	return TypeRefRow{ResolutionScope: v[0], Name: v[1], Namespace: v[2]}, nil
}

// TypeDef decodes TypeDef row rid.
func (s *Stream) TypeDef(rid uint32) (TypeDefRow, error) {
	v, err := s.Row(TypeDef, rid)
	if err != nil {
		return TypeDefRow{}, err
	}
	return TypeDefRow{
		Flags:      v[0],
		Name:       v[1],
		Namespace:  v[2],
		Extends:    v[3],
		FieldList:  v[4],
		MethodList: v[5],
	}, nil
}

// Field decodes Field row rid.
func (s *Stream) Field(rid uint32) (FieldRow, error) {
	v, err := s.Row(Field, rid)
	if err != nil {
		return FieldRow{}, err
	}
	return FieldRow{Flags: uint16(v[0]), Name: v[1], Signature: v[2]}, nil
}

// MethodDef decodes MethodDef row rid.
func (s *Stream) MethodDef(rid uint32) (MethodDefRow, error) {
	v, err := s.Row(MethodDef, rid)
	if err != nil {
		return MethodDefRow{}, err
	}
	return MethodDefRow{
		RVA:       v[0],
		ImplFlags: uint16(v[1]),
		Flags:     uint16(v[2]),
		Name:      v[3],
		Signature: v[4],
		ParamList: v[5],
	}, nil
}

// Param decodes Param row rid.
func (s *Stream) Param(rid uint32) (ParamRow, error) {
	v, err := s.Row(Param, rid)
	if err != nil {
		return ParamRow{}, err
	}
	return ParamRow{Flags: uint16(v[0]), Sequence: uint16(v[1]), Name: v[2]}, nil
}

// PropertyMap decodes PropertyMap row rid.
func (s *Stream) PropertyMap(rid uint32) (PropertyMapRow, error) {
	v, err := s.Row(PropertyMap, rid)
	if err != nil {
		return PropertyMapRow{}, err
	}
	return PropertyMapRow{Parent: v[0], PropertyList: v[1]}, nil
}

// Property decodes Property row rid.
func (s *Stream) Property(rid uint32) (PropertyRow, error) {
	v, err := s.Row(Property, rid)
	if err != nil {
		return PropertyRow{}, err
	}
	return PropertyRow{Flags: uint16(v[0]), Name: v[1], Signature: v[2]}, nil
}

// MethodSemantics decodes MethodSemantics row rid.
func (s *Stream) MethodSemantics(rid uint32) (MethodSemanticsRow, error) {
	v, err := s.Row(MethodSemantics, rid)
	if err != nil {
		return MethodSemanticsRow{}, err
	}
	return MethodSemanticsRow{Semantics: uint16(v[0]), Method: v[1], Association: v[2]}, nil
}

// NestedClass decodes NestedClass row rid.
func (s *Stream) NestedClass(rid uint32) (NestedClassRow, error) {
	v, err := s.Row(NestedClass, rid)
	if err != nil {
		return NestedClassRow{}, err
	}
	return NestedClassRow{Nested: v[0], Enclosing: v[1]}, nil
}

// TypeSpec returns the #Blob index of TypeSpec row rid.
func (s *Stream) TypeSpec(rid uint32) (uint32, error) {
	v, err := s.Row(TypeSpec, rid)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// Assembly decodes Assembly row rid.
func (s *Stream) Assembly(rid uint32) (AssemblyRow, error) {
	v, err := s.Row(Assembly, rid)
	if err != nil {
		return AssemblyRow{}, err
	}
	return AssemblyRow{
		HashAlgID: v[0],
		Major:     uint16(v[1]),
		Minor:     uint16(v[2]),
		Build:     uint16(v[3]),
		Revision:  uint16(v[4]),
		Flags:     v[5],
		PublicKey: v[6],
		Name:      v[7],
		Culture:   v[8],
	}, nil
}

// Columns holding row lists into child tables.
const (
	typeDefFieldList        = 4
	typeDefMethodList       = 5
	methodDefParamList      = 5
	propertyMapPropertyList = 1
)

// FieldRange returns the Field rows [first, end) owned by TypeDef rid.
func (s *Stream) FieldRange(rid uint32) (uint32, uint32, error) {
	return s.RowRange(TypeDef, rid, typeDefFieldList, Field)
}

// MethodRange returns the MethodDef rows [first, end) owned by TypeDef rid.
func (s *Stream) MethodRange(rid uint32) (uint32, uint32, error) {
	return s.RowRange(TypeDef, rid, typeDefMethodList, MethodDef)
}

// ParamRange returns the Param rows [first, end) owned by MethodDef rid.
func (s *Stream) ParamRange(rid uint32) (uint32, uint32, error) {
	return s.RowRange(MethodDef, rid, methodDefParamList, Param)
}

// PropertyRange returns the Property rows [first, end) owned by PropertyMap rid.
func (s *Stream) PropertyRange(rid uint32) (uint32, uint32, error) {
	return s.RowRange(PropertyMap, rid, propertyMapPropertyList, Property)
}
