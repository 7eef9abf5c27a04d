// Package tables provides parsing for the ECMA-335 "#~" metadata table stream.
package tables

// TableID identifies one of the metadata tables (ECMA-335 II.22).
type TableID uint8

const (
	Module                 TableID = 0x00
	TypeRef                TableID = 0x01
	TypeDef                TableID = 0x02
	FieldPtr               TableID = 0x03
	Field                  TableID = 0x04
	MethodPtr              TableID = 0x05
	MethodDef              TableID = 0x06
	ParamPtr               TableID = 0x07
	Param                  TableID = 0x08
	InterfaceImpl          TableID = 0x09
	MemberRef              TableID = 0x0A
	Constant               TableID = 0x0B
	CustomAttribute        TableID = 0x0C
	FieldMarshal           TableID = 0x0D
	DeclSecurity           TableID = 0x0E
	ClassLayout            TableID = 0x0F
	FieldLayout            TableID = 0x10
	StandAloneSig          TableID = 0x11
	EventMap               TableID = 0x12
	EventPtr               TableID = 0x13
	Event                  TableID = 0x14
	PropertyMap            TableID = 0x15
	PropertyPtr            TableID = 0x16
	Property               TableID = 0x17
	MethodSemantics        TableID = 0x18
	MethodImpl             TableID = 0x19
	ModuleRef              TableID = 0x1A
	TypeSpec               TableID = 0x1B
	ImplMap                TableID = 0x1C
	FieldRVA               TableID = 0x1D
	EncLog                 TableID = 0x1E
	EncMap                 TableID = 0x1F
	Assembly               TableID = 0x20
	AssemblyProcessor      TableID = 0x21
	AssemblyOS             TableID = 0x22
	AssemblyRef            TableID = 0x23
	AssemblyRefProcessor   TableID = 0x24
	AssemblyRefOS          TableID = 0x25
	File                   TableID = 0x26
	ExportedType           TableID = 0x27
	ManifestResource       TableID = 0x28
	NestedClass            TableID = 0x29
	GenericParam           TableID = 0x2A
	MethodSpec             TableID = 0x2B
	GenericParamConstraint TableID = 0x2C

	// NumTables is the number of tables defined by ECMA-335.
	NumTables = 0x2D
)

// noTable marks an unused slot in a coded index.
const noTable TableID = 0xFF

func (id TableID) String() string {
	if int(id) < len(tableNames) {
		return tableNames[id]
	}
	return "Unknown"
}

var tableNames = [NumTables]string{
	"Module", "TypeRef", "TypeDef", "FieldPtr", "Field", "MethodPtr", "MethodDef",
	"ParamPtr", "Param", "InterfaceImpl", "MemberRef", "Constant", "CustomAttribute",
	"FieldMarshal", "DeclSecurity", "ClassLayout", "FieldLayout", "StandAloneSig",
	"EventMap", "EventPtr", "Event", "PropertyMap", "PropertyPtr", "Property",
	"MethodSemantics", "MethodImpl", "ModuleRef", "TypeSpec", "ImplMap", "FieldRVA",
	"EncLog", "EncMap", "Assembly", "AssemblyProcessor", "AssemblyOS", "AssemblyRef",
	"AssemblyRefProcessor", "AssemblyRefOS", "File", "ExportedType", "ManifestResource",
	"NestedClass", "GenericParam", "MethodSpec", "GenericParamConstraint",
}

// CodedIndex describes a coded index kind (ECMA-335 II.24.2.6).
type CodedIndex struct {
	Name   string
	Bits   uint
	Tables []TableID
}

// Coded index kinds.
var (
	TypeDefOrRef        = &CodedIndex{"TypeDefOrRef", 2, []TableID{TypeDef, TypeRef, TypeSpec}}
	HasConstant         = &CodedIndex{"HasConstant", 2, []TableID{Field, Param, Property}}
	HasCustomAttribute  = &CodedIndex{"HasCustomAttribute", 5, []TableID{MethodDef, Field, TypeRef, TypeDef, Param, InterfaceImpl, MemberRef, Module, DeclSecurity, Property, Event, StandAloneSig, ModuleRef, TypeSpec, Assembly, AssemblyRef, File, ExportedType, ManifestResource, GenericParam, GenericParamConstraint, MethodSpec}}
	HasFieldMarshal     = &CodedIndex{"HasFieldMarshal", 1, []TableID{Field, Param}}
	HasDeclSecurity     = &CodedIndex{"HasDeclSecurity", 2, []TableID{TypeDef, MethodDef, Assembly}}
	MemberRefParent     = &CodedIndex{"MemberRefParent", 3, []TableID{TypeDef, TypeRef, ModuleRef, MethodDef, TypeSpec}}
	HasSemantics        = &CodedIndex{"HasSemantics", 1, []TableID{Event, Property}}
	MethodDefOrRef      = &CodedIndex{"MethodDefOrRef", 1, []TableID{MethodDef, MemberRef}}
	MemberForwarded     = &CodedIndex{"MemberForwarded", 1, []TableID{Field, MethodDef}}
	Implementation      = &CodedIndex{"Implementation", 2, []TableID{File, AssemblyRef, ExportedType}}
	CustomAttributeType = &CodedIndex{"CustomAttributeType", 3, []TableID{noTable, noTable, MethodDef, MemberRef, noTable}}
	ResolutionScope     = &CodedIndex{"ResolutionScope", 2, []TableID{Module, ModuleRef, AssemblyRef, TypeRef}}
	TypeOrMethodDef     = &CodedIndex{"TypeOrMethodDef", 1, []TableID{TypeDef, MethodDef}}
)

type columnKind uint8

const (
	colFixed  columnKind = iota // fixed-width constant, size in column.size
	colString                   // #Strings heap index
	colGUID                     // #GUID heap index
	colBlob                     // #Blob heap index
	colTable                    // simple index into column.table
	colCoded                    // coded index of column.coded
)

type column struct {
	kind  columnKind
	size  int
	table TableID
	coded *CodedIndex
}

func u16() column                { return column{kind: colFixed, size: 2} }
func u32() column                { return column{kind: colFixed, size: 4} }
func str() column                { return column{kind: colString} }
func guid() column               { return column{kind: colGUID} }
func blob() column               { return column{kind: colBlob} }
func idx(t TableID) column       { return column{kind: colTable, table: t} }
func coded(c *CodedIndex) column { return column{kind: colCoded, coded: c} }

// schema lists the columns of every table in physical order.
var schema = [NumTables][]column{
	Module:                 {u16(), str(), guid(), guid(), guid()},
	TypeRef:                {coded(ResolutionScope), str(), str()},
	TypeDef:                {u32(), str(), str(), coded(TypeDefOrRef), idx(Field), idx(MethodDef)},
	FieldPtr:               {idx(Field)},
	Field:                  {u16(), str(), blob()},
	MethodPtr:              {idx(MethodDef)},
	MethodDef:              {u32(), u16(), u16(), str(), blob(), idx(Param)},
	ParamPtr:               {idx(Param)},
	Param:                  {u16(), u16(), str()},
	InterfaceImpl:          {idx(TypeDef), coded(TypeDefOrRef)},
	MemberRef:              {coded(MemberRefParent), str(), blob()},
	Constant:               {u16(), coded(HasConstant), blob()},
	CustomAttribute:        {coded(HasCustomAttribute), coded(CustomAttributeType), blob()},
	FieldMarshal:           {coded(HasFieldMarshal), blob()},
	DeclSecurity:           {u16(), coded(HasDeclSecurity), blob()},
	ClassLayout:            {u16(), u32(), idx(TypeDef)},
	FieldLayout:            {u32(), idx(Field)},
	StandAloneSig:          {blob()},
	EventMap:               {idx(TypeDef), idx(Event)},
	EventPtr:               {idx(Event)},
	Event:                  {u16(), str(), coded(TypeDefOrRef)},
	PropertyMap:            {idx(TypeDef), idx(Property)},
	PropertyPtr:            {idx(Property)},
	Property:               {u16(), str(), blob()},
	MethodSemantics:        {u16(), idx(MethodDef), coded(HasSemantics)},
	MethodImpl:             {idx(TypeDef), coded(MethodDefOrRef), coded(MethodDefOrRef)},
	ModuleRef:              {str()},
	TypeSpec:               {blob()},
	ImplMap:                {u16(), coded(MemberForwarded), str(), idx(ModuleRef)},
	FieldRVA:               {u32(), idx(Field)},
	EncLog:                 {u32(), u32()},
	EncMap:                 {u32()},
	Assembly:               {u32(), u16(), u16(), u16(), u16(), u32(), blob(), str(), str()},
	AssemblyProcessor:      {u32()},
	AssemblyOS:             {u32(), u32(), u32()},
	AssemblyRef:            {u16(), u16(), u16(), u16(), u32(), blob(), str(), str(), blob()},
	AssemblyRefProcessor:   {u32(), idx(AssemblyRef)},
	AssemblyRefOS:          {u32(), u32(), u32(), idx(AssemblyRef)},
	File:                   {u32(), str(), blob()},
	ExportedType:           {u32(), u32(), str(), str(), coded(Implementation)},
	ManifestResource:       {u32(), u32(), str(), coded(Implementation)},
	NestedClass:            {idx(TypeDef), idx(TypeDef)},
	GenericParam:           {u16(), u16(), coded(TypeOrMethodDef), str()},
	MethodSpec:             {coded(MethodDefOrRef), blob()},
	GenericParamConstraint: {idx(GenericParam), coded(TypeDefOrRef)},
}

// NarrowLayout returns the column widths of table id when every heap and
// table index is 2 bytes wide, which holds for small images.
func NarrowLayout(id TableID) []int {
	if id >= NumTables {
		return nil
	}
	widths := make([]int, len(schema[id]))
	for i, col := range schema[id] {
		if col.kind == colFixed {
			widths[i] = col.size
		} else {
			widths[i] = 2
		}
	}
	return widths
}
