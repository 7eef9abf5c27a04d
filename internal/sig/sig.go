// Package sig decodes ECMA-335 signature blobs (II.23.2) into type names.
package sig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skdltmxn/nettype-go/internal/stream"
	"github.com/skdltmxn/nettype-go/internal/tables"
)

// Element types (ECMA-335 II.23.1.16).
const (
	ElemEnd         = 0x00
	ElemVoid        = 0x01
	ElemBoolean     = 0x02
	ElemChar        = 0x03
	ElemI1          = 0x04
	ElemU1          = 0x05
	ElemI2          = 0x06
	ElemU2          = 0x07
	ElemI4          = 0x08
	ElemU4          = 0x09
	ElemI8          = 0x0A
	ElemU8          = 0x0B
	ElemR4          = 0x0C
	ElemR8          = 0x0D
	ElemString      = 0x0E
	ElemPtr         = 0x0F
	ElemByRef       = 0x10
	ElemValueType   = 0x11
	ElemClass       = 0x12
	ElemVar         = 0x13
	ElemArray       = 0x14
	ElemGenericInst = 0x15
	ElemTypedByRef  = 0x16
	ElemI           = 0x18
	ElemU           = 0x19
	ElemFnPtr       = 0x1B
	ElemObject      = 0x1C
	ElemSZArray     = 0x1D
	ElemMVar        = 0x1E
	ElemCModReqd    = 0x1F
	ElemCModOpt     = 0x20
	ElemSentinel    = 0x41
	ElemPinned      = 0x45
)

// Calling convention bits of the first signature byte.
const (
	CallConvMask         = 0x0F
	CallConvField        = 0x06
	CallConvLocal        = 0x07
	CallConvProp         = 0x08
	CallConvGeneric      = 0x10
	CallConvHasThis      = 0x20
	CallConvExplicitThis = 0x40
)

// maxDepth bounds nested type signatures so a TypeSpec cycle cannot recurse forever.
const maxDepth = 64

// Errors
var (
	ErrBadSignature  = errors.New("sig: malformed signature")
	ErrUnexpectedSig = errors.New("sig: unexpected signature kind")
	ErrTooDeep       = errors.New("sig: signature nesting too deep")
)

var primitives = map[byte]string{
	ElemVoid:       "System.Void",
	ElemBoolean:    "System.Boolean",
	ElemChar:       "System.Char",
	ElemI1:         "System.SByte",
	ElemU1:         "System.Byte",
	ElemI2:         "System.Int16",
	ElemU2:         "System.UInt16",
	ElemI4:         "System.Int32",
	ElemU4:         "System.UInt32",
	ElemI8:         "System.Int64",
	ElemU8:         "System.UInt64",
	ElemR4:         "System.Single",
	ElemR8:         "System.Double",
	ElemString:     "System.String",
	ElemTypedByRef: "System.TypedReference",
	ElemI:          "System.IntPtr",
	ElemU:          "System.UIntPtr",
	ElemObject:     "System.Object",
}

// Resolver supplies names for types referenced from signatures.
type Resolver interface {
	// TypeName returns the full name of a TypeDef or TypeRef row.
	TypeName(table tables.TableID, rid uint32) (string, error)
	// TypeSpec returns the signature blob of a TypeSpec row.
	TypeSpec(rid uint32) ([]byte, error)
}

// TypeName is a decoded type signature rendered as a runtime-style full name.
type TypeName struct {
	Name string
	// Open is set when the type is or contains an unbound generic parameter.
	Open bool
	// Definition is set when the type is a generic type definition, which
	// the runtime still names although it is open.
	Definition bool
}

// FullName returns the name the runtime would report. Open generic types
// other than a bare generic type definition have no full name.
func (t TypeName) FullName() string {
	if t.Open && !t.Definition {
		return ""
	}
	return t.Name
}

// MethodSig is a decoded MethodDefSig.
type MethodSig struct {
	HasThis       bool
	GenericParams uint32
	Return        TypeName
	Params        []TypeName
}

// PropertySig is a decoded PropertySig.
type PropertySig struct {
	HasThis bool
	Type    TypeName
	Params  []TypeName
}

// Decoder decodes signature blobs using a Resolver.
type Decoder struct {
	res   Resolver
	owner uint32 // TypeDef row whose members are being decoded, or 0
}

// NewDecoder creates a Decoder.
func NewDecoder(res Resolver) *Decoder {
	return &Decoder{res: res}
}

// Within returns a Decoder for signatures of members declared by the given
// TypeDef row. Inside a generic type, an instantiation of that type over its
// own parameters in order is the generic type definition itself.
func (d *Decoder) Within(typeDef uint32) *Decoder {
	return &Decoder{res: d.res, owner: typeDef}
}

// Field decodes a FieldSig.
func (d *Decoder) Field(blob []byte) (TypeName, error) {
	r := stream.NewReader(blob)
	cc, err := r.ReadU8()
	if err != nil {
		return TypeName{}, ErrBadSignature
	}
	if cc&CallConvMask != CallConvField {
		return TypeName{}, fmt.Errorf("%w: field signature starts with 0x%02x", ErrUnexpectedSig, cc)
	}
	return d.readType(r, 0)
}

// Method decodes a MethodDefSig or MethodRefSig.
func (d *Decoder) Method(blob []byte) (MethodSig, error) {
	r := stream.NewReader(blob)
	return d.readMethod(r, 0)
}

// Property decodes a PropertySig.
func (d *Decoder) Property(blob []byte) (PropertySig, error) {
	r := stream.NewReader(blob)
	cc, err := r.ReadU8()
	if err != nil {
		return PropertySig{}, ErrBadSignature
	}
	if cc&CallConvMask != CallConvProp {
		return PropertySig{}, fmt.Errorf("%w: property signature starts with 0x%02x", ErrUnexpectedSig, cc)
	}

	count, err := r.ReadCompressedU32()
	if err != nil {
		return PropertySig{}, ErrBadSignature
	}

	ps := PropertySig{HasThis: cc&CallConvHasThis != 0}
	if ps.Type, err = d.readType(r, 0); err != nil {
		return PropertySig{}, err
	}
	if ps.Params, err = d.readParams(r, count, 0); err != nil {
		return PropertySig{}, err
	}
	return ps, nil
}

func (d *Decoder) readMethod(r *stream.Reader, depth int) (MethodSig, error) {
	cc, err := r.ReadU8()
	if err != nil {
		return MethodSig{}, ErrBadSignature
	}
	switch cc & CallConvMask {
	case CallConvField, CallConvProp, CallConvLocal:
		return MethodSig{}, fmt.Errorf("%w: method signature starts with 0x%02x", ErrUnexpectedSig, cc)
	}

	ms := MethodSig{HasThis: cc&CallConvHasThis != 0}
	if cc&CallConvGeneric != 0 {
		if ms.GenericParams, err = r.ReadCompressedU32(); err != nil {
			return MethodSig{}, ErrBadSignature
		}
	}

	count, err := r.ReadCompressedU32()
	if err != nil {
		return MethodSig{}, ErrBadSignature
	}
	if ms.Return, err = d.readType(r, depth); err != nil {
		return MethodSig{}, err
	}
	if ms.Params, err = d.readParams(r, count, depth); err != nil {
		return MethodSig{}, err
	}
	return ms, nil
}

func (d *Decoder) readParams(r *stream.Reader, count uint32, depth int) ([]TypeName, error) {
	if int(count) > r.Remaining() {
		return nil, fmt.Errorf("%w: %d parameters in %d bytes", ErrBadSignature, count, r.Remaining())
	}
	params := make([]TypeName, 0, count)
	for len(params) < int(count) {
		if b, err := r.PeekU8(); err == nil && b == ElemSentinel {
			_ = r.Skip(1)
			continue
		}
		p, err := d.readType(r, depth)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

func (d *Decoder) readType(r *stream.Reader, depth int) (TypeName, error) {
	if depth > maxDepth {
		return TypeName{}, ErrTooDeep
	}

	if err := skipModifiers(r); err != nil {
		return TypeName{}, err
	}

	elem, err := r.ReadU8()
	if err != nil {
		return TypeName{}, ErrBadSignature
	}

	if name, ok := primitives[elem]; ok {
		return TypeName{Name: name}, nil
	}

	switch elem {
	case ElemByRef:
		return d.suffixed(r, depth, "&")
	case ElemPtr:
		return d.suffixed(r, depth, "*")
	case ElemSZArray:
		return d.suffixed(r, depth, "[]")
	case ElemPinned:
		return d.readType(r, depth+1)
	case ElemClass, ElemValueType:
		return d.readTypeDefOrRef(r, depth)
	case ElemVar, ElemMVar:
		n, err := r.ReadCompressedU32()
		if err != nil {
			return TypeName{}, ErrBadSignature
		}
		prefix := "!"
		if elem == ElemMVar {
			prefix = "!!"
		}
		return TypeName{Name: fmt.Sprintf("%s%d", prefix, n), Open: true}, nil
	case ElemArray:
		return d.readArray(r, depth)
	case ElemGenericInst:
		return d.readGenericInst(r, depth)
	case ElemFnPtr:
		if _, err := d.readMethod(r, depth+1); err != nil {
			return TypeName{}, err
		}
		return TypeName{Name: "System.IntPtr"}, nil
	}

	return TypeName{}, fmt.Errorf("%w: element type 0x%02x", ErrBadSignature, elem)
}

func skipModifiers(r *stream.Reader) error {
	for {
		b, err := r.PeekU8()
		if err != nil {
			return ErrBadSignature
		}
		if b != ElemCModReqd && b != ElemCModOpt {
			return nil
		}
		_ = r.Skip(1)
		if _, err := r.ReadCompressedU32(); err != nil {
			return ErrBadSignature
		}
	}
}

func (d *Decoder) suffixed(r *stream.Reader, depth int, suffix string) (TypeName, error) {
	inner, err := d.readType(r, depth+1)
	if err != nil {
		return TypeName{}, err
	}
	return TypeName{Name: inner.Name + suffix, Open: inner.Open}, nil
}

func (d *Decoder) readTypeDefOrRef(r *stream.Reader, depth int) (TypeName, error) {
	table, rid, err := readToken(r)
	if err != nil {
		return TypeName{}, err
	}
	return d.resolve(table, rid, depth)
}

func readToken(r *stream.Reader) (tables.TableID, uint32, error) {
	token, err := r.ReadCompressedU32()
	if err != nil {
		return 0, 0, ErrBadSignature
	}
	table, rid, err := tables.DecodeCoded(tables.TypeDefOrRef, token)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return table, rid, nil
}

func (d *Decoder) resolve(table tables.TableID, rid uint32, depth int) (TypeName, error) {
	if table == tables.TypeSpec {
		blob, err := d.res.TypeSpec(rid)
		if err != nil {
			return TypeName{}, err
		}
		return d.readType(stream.NewReader(blob), depth+1)
	}

	name, err := d.res.TypeName(table, rid)
	if err != nil {
		return TypeName{}, err
	}
	return TypeName{Name: name}, nil
}

func (d *Decoder) readArray(r *stream.Reader, depth int) (TypeName, error) {
	elem, err := d.readType(r, depth+1)
	if err != nil {
		return TypeName{}, err
	}

	rank, err := r.ReadCompressedU32()
	if err != nil {
		return TypeName{}, ErrBadSignature
	}
	// sizes then lower bounds; only the rank shows up in the name
	for range 2 {
		n, err := r.ReadCompressedU32()
		if err != nil || int(n) > r.Remaining() {
			return TypeName{}, ErrBadSignature
		}
		for range n {
			if _, err := r.ReadCompressedU32(); err != nil {
				return TypeName{}, ErrBadSignature
			}
		}
	}

	name := elem.Name + "[*]"
	if rank > 1 {
		name = elem.Name + "[" + strings.Repeat(",", int(rank-1)) + "]"
	}
	return TypeName{Name: name, Open: elem.Open}, nil
}

func (d *Decoder) readGenericInst(r *stream.Reader, depth int) (TypeName, error) {
	kind, err := r.ReadU8()
	if err != nil || (kind != ElemClass && kind != ElemValueType) {
		return TypeName{}, fmt.Errorf("%w: generic instantiation of 0x%02x", ErrBadSignature, kind)
	}
	table, rid, err := readToken(r)
	if err != nil {
		return TypeName{}, err
	}
	base, err := d.resolve(table, rid, depth+1)
	if err != nil {
		return TypeName{}, err
	}

	count, err := r.ReadCompressedU32()
	if err != nil || count == 0 || int(count) > r.Remaining() {
		return TypeName{}, ErrBadSignature
	}

	args := make([]string, 0, count)
	open := base.Open
	self := d.owner != 0 && table == tables.TypeDef && rid == d.owner
	for i := range count {
		arg, err := d.readType(r, depth+1)
		if err != nil {
			return TypeName{}, err
		}
		open = open || arg.Open
		self = self && arg.Name == fmt.Sprintf("!%d", i)
		args = append(args, arg.Name)
	}

	if self {
		return TypeName{Name: base.Name, Open: true, Definition: true}, nil
	}
	return TypeName{
		Name: base.Name + "[[" + strings.Join(args, "],[") + "]]",
		Open: open,
	}, nil
}
