// Package mdtest builds small synthetic metadata images for tests.
package mdtest

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"fmt"

	"github.com/skdltmxn/nettype-go/internal/sig"
	"github.com/skdltmxn/nettype-go/internal/tables"
)

// Builder accumulates metadata rows and heaps. Row and heap indices are kept
// narrow, so a Builder only suits images with fewer than 2048 rows per table.
type Builder struct {
	strings  []byte
	stringAt map[string]uint32
	blobs    []byte
	rows     [tables.NumTables][][]uint32

	curType uint32
}

// New creates a Builder holding the <Module> pseudo type.
func New() *Builder {
	b := &Builder{
		strings:  []byte{0},
		stringAt: map[string]uint32{"": 0},
		blobs:    []byte{0},
	}
	b.AddRow(tables.Module, 0, b.String("test.dll"), 0, 0, 0)
	b.BeginType(0, "", "<Module>", 0)
	return b
}

// String interns s in the #Strings heap.
func (b *Builder) String(s string) uint32 {
	if off, ok := b.stringAt[s]; ok {
		return off
	}
	off := uint32(len(b.strings))
	b.strings = append(b.strings, s...)
	b.strings = append(b.strings, 0)
	b.stringAt[s] = off
	return off
}

// Blob appends data to the #Blob heap.
func (b *Builder) Blob(data []byte) uint32 {
	off := uint32(len(b.blobs))
	b.blobs = append(b.blobs, Compress(uint32(len(data)))...)
	b.blobs = append(b.blobs, data...)
	return off
}

// AddRow appends a raw row and returns its 1-based row index.
func (b *Builder) AddRow(t tables.TableID, values ...uint32) uint32 {
	if len(values) != len(tables.NarrowLayout(t)) {
		panic(fmt.Sprintf("mdtest: %s takes %d columns, got %d", t, len(tables.NarrowLayout(t)), len(values)))
	}
	b.rows[t] = append(b.rows[t], values)
	return uint32(len(b.rows[t]))
}

func (b *Builder) next(t tables.TableID) uint32 {
	return uint32(len(b.rows[t])) + 1
}

// TypeRef adds a TypeRef scoped to AssemblyRef 0 and returns its
// TypeDefOrRef coded index.
func (b *Builder) TypeRef(namespace, name string) uint32 {
	rid := b.AddRow(tables.TypeRef, 0, b.String(name), b.String(namespace))
	return mustCode(tables.TypeDefOrRef, tables.TypeRef, rid)
}

// NestedTypeRef adds a TypeRef nested in another TypeRef.
func (b *Builder) NestedTypeRef(enclosing uint32, name string) uint32 {
	_, rid, _ := tables.DecodeCoded(tables.TypeDefOrRef, enclosing)
	scope := mustCode(tables.ResolutionScope, tables.TypeRef, rid)
	r := b.AddRow(tables.TypeRef, scope, b.String(name), 0)
	return mustCode(tables.TypeDefOrRef, tables.TypeRef, r)
}

// BeginType starts a TypeDef. Fields, methods and properties added afterwards
// belong to it until the next BeginType. extends is a TypeDefOrRef coded index.
func (b *Builder) BeginType(flags uint32, namespace, name string, extends uint32) uint32 {
	b.curType = b.AddRow(tables.TypeDef, flags, b.String(name), b.String(namespace), extends,
		b.next(tables.Field), b.next(tables.MethodDef))
	return b.curType
}

// TypeDefToken returns the TypeDefOrRef coded index of a TypeDef row.
func (b *Builder) TypeDefToken(rid uint32) uint32 {
	return mustCode(tables.TypeDefOrRef, tables.TypeDef, rid)
}

// Nest records nested as enclosed by enclosing.
func (b *Builder) Nest(nested, enclosing uint32) {
	b.AddRow(tables.NestedClass, nested, enclosing)
}

// AddField adds a field to the current type.
func (b *Builder) AddField(flags uint16, name string, signature []byte) uint32 {
	return b.AddRow(tables.Field, uint32(flags), b.String(name), b.Blob(signature))
}

// AddMethod adds a method to the current type with named parameters in order.
func (b *Builder) AddMethod(flags uint16, name string, signature []byte, params ...string) uint32 {
	list := b.next(tables.Param)
	for i, p := range params {
		b.AddRow(tables.Param, 0, uint32(i+1), b.String(p))
	}
	return b.AddRow(tables.MethodDef, 0, 0, uint32(flags), b.String(name), b.Blob(signature), list)
}

// AddProperty adds a property to the current type. getter and setter are
// MethodDef rows, 0 when absent.
func (b *Builder) AddProperty(name string, signature []byte, getter, setter uint32) uint32 {
	maps := b.rows[tables.PropertyMap]
	if len(maps) == 0 || maps[len(maps)-1][0] != b.curType {
		b.AddRow(tables.PropertyMap, b.curType, b.next(tables.Property))
	}
	rid := b.AddRow(tables.Property, 0, b.String(name), b.Blob(signature))
	assoc := mustCode(tables.HasSemantics, tables.Property, rid)
	if getter != 0 {
		b.AddRow(tables.MethodSemantics, uint32(tables.SemanticsGetter), getter, assoc)
	}
	if setter != 0 {
		b.AddRow(tables.MethodSemantics, uint32(tables.SemanticsSetter), setter, assoc)
	}
	return rid
}

// AddTypeSpec adds a TypeSpec and returns its TypeDefOrRef coded index.
func (b *Builder) AddTypeSpec(signature []byte) uint32 {
	rid := b.AddRow(tables.TypeSpec, b.Blob(signature))
	return mustCode(tables.TypeDefOrRef, tables.TypeSpec, rid)
}

// TablesStream serialises the "#~" stream.
func (b *Builder) TablesStream() []byte {
	var buf bytes.Buffer
	var valid uint64
	for id := range b.rows {
		if len(b.rows[id]) > 0 {
			valid |= 1 << id
		}
	}

	le := binary.LittleEndian
	_ = binary.Write(&buf, le, uint32(0))
	buf.Write([]byte{2, 0, 0, 1})
	_ = binary.Write(&buf, le, valid)
	_ = binary.Write(&buf, le, uint64(0))
	for id := range b.rows {
		if n := len(b.rows[id]); n > 0 {
			_ = binary.Write(&buf, le, uint32(n))
		}
	}

	for id := range b.rows {
		layout := tables.NarrowLayout(tables.TableID(id))
		for _, row := range b.rows[id] {
			for i, v := range row {
				if layout[i] == 4 {
					_ = binary.Write(&buf, le, v)
				} else {
					_ = binary.Write(&buf, le, uint16(v))
				}
			}
		}
	}
	return pad4(buf.Bytes())
}

// Metadata serialises a complete metadata blob starting with the metadata root.
func (b *Builder) Metadata() []byte {
	streams := []struct {
		name string
		data []byte
	}{
		{"#~", b.TablesStream()},
		{"#Strings", pad4(b.strings)},
		{"#Blob", pad4(b.blobs)},
		{"#GUID", make([]byte, 16)},
	}

	version := pad4(append([]byte("v4.0.30319"), 0))
	headerSize := 16 + len(version) + 4
	for _, s := range streams {
		headerSize += 8 + len(pad4(append([]byte(s.name), 0)))
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&buf, le, uint32(0x424A5342))
	_ = binary.Write(&buf, le, uint16(1))
	_ = binary.Write(&buf, le, uint16(1))
	_ = binary.Write(&buf, le, uint32(0))
	_ = binary.Write(&buf, le, uint32(len(version)))
	buf.Write(version)
	_ = binary.Write(&buf, le, uint16(0))
	_ = binary.Write(&buf, le, uint16(len(streams)))

	offset := headerSize
	for _, s := range streams {
		_ = binary.Write(&buf, le, uint32(offset))
		_ = binary.Write(&buf, le, uint32(len(s.data)))
		buf.Write(pad4(append([]byte(s.name), 0)))
		offset += len(s.data)
	}
	for _, s := range streams {
		buf.Write(s.data)
	}
	return buf.Bytes()
}

// PE wraps the metadata in a minimal 32-bit PE image with a single .text
// section holding the CLI header followed by the metadata.
func (b *Builder) PE() []byte {
	const (
		fileAlign  = 0x200
		sectionRVA = 0x2000
		peOffset   = 0x80
	)
	md := b.Metadata()

	var text bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&text, le, uint32(72))
	_ = binary.Write(&text, le, uint16(2))
	_ = binary.Write(&text, le, uint16(5))
	_ = binary.Write(&text, le, uint32(sectionRVA+72))
	_ = binary.Write(&text, le, uint32(len(md)))
	_ = binary.Write(&text, le, uint32(1))
	text.Write(make([]byte, 72-text.Len()))
	text.Write(md)
	raw := text.Bytes()
	rawSize := (len(raw) + fileAlign - 1) / fileAlign * fileAlign
	raw = append(raw, make([]byte, rawSize-len(raw))...)

	var img bytes.Buffer
	dos := make([]byte, peOffset)
	dos[0], dos[1] = 'M', 'Z'
	le.PutUint32(dos[0x3c:], peOffset)
	img.Write(dos)
	img.Write([]byte{'P', 'E', 0, 0})

	_ = binary.Write(&img, le, pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(pe.OptionalHeader32{})),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_DLL,
	})

	oh := pe.OptionalHeader32{
		Magic:               0x10b,
		SizeOfCode:          uint32(rawSize),
		BaseOfCode:          sectionRVA,
		ImageBase:           0x10000000,
		SectionAlignment:    0x2000,
		FileAlignment:       fileAlign,
		SizeOfImage:         sectionRVA + 0x2000*uint32((rawSize+0x1fff)/0x2000),
		SizeOfHeaders:       fileAlign,
		Subsystem:           3,
		NumberOfRvaAndSizes: 16,
	}
	oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR] = pe.DataDirectory{
		VirtualAddress: sectionRVA,
		Size:           72,
	}
	_ = binary.Write(&img, le, oh)

	sh := pe.SectionHeader32{
		VirtualSize:      uint32(len(text.Bytes())),
		VirtualAddress:   sectionRVA,
		SizeOfRawData:    uint32(rawSize),
		PointerToRawData: fileAlign,
		Characteristics:  pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_EXECUTE,
	}
	copy(sh.Name[:], ".text")
	_ = binary.Write(&img, le, sh)

	img.Write(make([]byte, fileAlign-img.Len()))
	img.Write(raw)
	return img.Bytes()
}

// Compress encodes v as an ECMA-335 compressed unsigned integer.
func Compress(v uint32) []byte {
	switch {
	case v < 0x80:
		return []byte{byte(v)}
	case v < 0x4000:
		return []byte{byte(v>>8) | 0x80, byte(v)}
	default:
		return []byte{byte(v>>24) | 0xC0, byte(v >> 16), byte(v >> 8), byte(v)}
	}
}

// FieldSig builds a FieldSig from an encoded type.
func FieldSig(typ []byte) []byte {
	return append([]byte{sig.CallConvField}, typ...)
}

// MethodSig builds a MethodDefSig.
func MethodSig(hasThis bool, ret []byte, params ...[]byte) []byte {
	cc := byte(0)
	if hasThis {
		cc |= sig.CallConvHasThis
	}
	out := []byte{cc}
	out = append(out, Compress(uint32(len(params)))...)
	out = append(out, ret...)
	for _, p := range params {
		out = append(out, p...)
	}
	return out
}

// PropertySig builds a PropertySig without index parameters.
func PropertySig(hasThis bool, typ []byte) []byte {
	cc := byte(sig.CallConvProp)
	if hasThis {
		cc |= sig.CallConvHasThis
	}
	return append([]byte{cc, 0}, typ...)
}

// Elem encodes a primitive element type.
func Elem(e byte) []byte {
	return []byte{e}
}

// Class encodes a CLASS type referring to a TypeDefOrRef coded index.
func Class(token uint32) []byte {
	return append([]byte{sig.ElemClass}, Compress(token)...)
}

// ValueType encodes a VALUETYPE type referring to a TypeDefOrRef coded index.
func ValueType(token uint32) []byte {
	return append([]byte{sig.ElemValueType}, Compress(token)...)
}

func mustCode(c *tables.CodedIndex, t tables.TableID, rid uint32) uint32 {
	v, err := tables.EncodeCoded(c, t, rid)
	if err != nil {
		panic(err)
	}
	return v
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}
