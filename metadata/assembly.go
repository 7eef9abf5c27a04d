package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/skdltmxn/nettype-go/clr"
	"github.com/skdltmxn/nettype-go/internal/log"
	"github.com/skdltmxn/nettype-go/internal/sig"
	"github.com/skdltmxn/nettype-go/internal/tables"
)

// maxNesting bounds enclosing-type chains so a NestedClass cycle cannot
// recurse forever.
const maxNesting = 64

// Assembly is a Provider backed by the CLI metadata of a managed image.
// It is safe for concurrent read access after opening.
type Assembly struct {
	file   *clr.File
	closed bool
	mu     sync.RWMutex

	tables  *tables.Stream
	strings tables.StringHeap
	blobs   tables.BlobHeap

	name    string
	version string

	// Lazy-loaded types
	types     []*Type
	typesOnce sync.Once
	typesErr  error

	index     map[string]*Type
	indexOnce sync.Once
}

// Open opens the managed image at path. A missing file yields an error
// matching ErrAssemblyNotFound, anything else ErrAssemblyLoad.
func Open(path string) (*Assembly, error) {
	f, err := clr.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrAssemblyNotFound, path, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrAssemblyLoad, path, err)
	}

	a, err := NewAssembly(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrAssemblyLoad, path, err)
	}
	return a, nil
}

// NewAssembly reads the metadata streams of f. The Assembly takes ownership
// of f and closes it on Close.
func NewAssembly(f *clr.File) (*Assembly, error) {
	if f.HasStream(clr.StreamTablesUncomp) {
		return nil, tables.ErrUnsupportedStream
	}

	raw, err := f.ReadStream(clr.StreamTables)
	if err != nil {
		return nil, err
	}
	ts, err := tables.ParseStream(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse table stream: %w", err)
	}

	strs, err := f.ReadStream(clr.StreamStrings)
	if err != nil {
		return nil, err
	}

	a := &Assembly{
		file:    f,
		tables:  ts,
		strings: tables.StringHeap(strs),
	}

	// a metadata image without signatures has no #Blob heap
	if f.HasStream(clr.StreamBlob) {
		blobs, err := f.ReadStream(clr.StreamBlob)
		if err != nil {
			return nil, err
		}
		a.blobs = tables.BlobHeap(blobs)
	}

	if ts.RowCount(tables.Assembly) > 0 {
		row, err := ts.Assembly(1)
		if err != nil {
			return nil, err
		}
		if a.name, err = a.strings.At(row.Name); err != nil {
			return nil, err
		}
		a.version = fmt.Sprintf("%d.%d.%d.%d", row.Major, row.Minor, row.Build, row.Revision)
	}

	log.WithFields(log.Fields{
		"assembly": a.name,
		"metadata": humanize.Bytes(uint64(f.MetadataSize())),
		"runtime":  f.Root().Version,
		"tables":   ts.PresentTables(),
		"typedefs": humanize.Comma(int64(ts.RowCount(tables.TypeDef))),
	}).Debug("opened assembly")

	return a, nil
}

// Close releases the underlying image.
func (a *Assembly) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	a.closed = true
	return a.file.Close()
}

// Name returns the assembly name, empty for a bare module.
func (a *Assembly) Name() string { return a.name }

// Version returns the assembly version as "major.minor.build.revision".
func (a *Assembly) Version() string { return a.version }

// Types implements Provider. Types are read from the tables on first use;
// the <Module> pseudo type is not reported.
func (a *Assembly) Types() ([]*Type, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, ErrClosed
	}

	a.typesOnce.Do(func() {
		a.types, a.typesErr = a.loadTypes()
	})

	if a.typesErr != nil {
		return nil, a.typesErr
	}
	return slices.Clone(a.types), nil
}

// LookupType implements Provider.
func (a *Assembly) LookupType(fullName string) (*Type, error) {
	types, err := a.Types()
	if err != nil {
		return nil, err
	}

	a.indexOnce.Do(func() {
		a.index = buildIndex(types)
	})

	if t, ok := a.index[fullName]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, fullName)
}

func (a *Assembly) loadTypes() ([]*Type, error) {
	r, err := newReader(a.tables, a.strings, a.blobs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssemblyLoad, err)
	}

	types, err := r.readTypes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssemblyLoad, err)
	}

	log.WithFields(log.Fields{
		"assembly": a.name,
		"types":    len(types),
	}).Debug("read declared types")
	return types, nil
}

// accessors holds the getter and setter MethodDef rows of a property.
type accessors struct {
	getter uint32
	setter uint32
}

// reader turns table rows into Types. It resolves type names for the
// signature decoder and is used by a single goroutine.
type reader struct {
	ts      *tables.Stream
	strings tables.StringHeap
	blobs   tables.BlobHeap
	dec     *sig.Decoder

	enclosing  map[uint32]uint32
	properties map[uint32][2]uint32 // TypeDef row -> Property rows [first, end)
	semantics  map[uint32]accessors // Property row -> accessors

	defNames map[uint32]string
	refNames map[uint32]string
}

func newReader(ts *tables.Stream, strs tables.StringHeap, blobs tables.BlobHeap) (*reader, error) {
	r := &reader{
		ts:         ts,
		strings:    strs,
		blobs:      blobs,
		enclosing:  make(map[uint32]uint32),
		properties: make(map[uint32][2]uint32),
		semantics:  make(map[uint32]accessors),
		defNames:   make(map[uint32]string),
		refNames:   make(map[uint32]string),
	}
	r.dec = sig.NewDecoder(r)

	for rid := uint32(1); rid <= ts.RowCount(tables.NestedClass); rid++ {
		row, err := ts.NestedClass(rid)
		if err != nil {
			return nil, err
		}
		r.enclosing[row.Nested] = row.Enclosing
	}

	for rid := uint32(1); rid <= ts.RowCount(tables.PropertyMap); rid++ {
		row, err := ts.PropertyMap(rid)
		if err != nil {
			return nil, err
		}
		first, end, err := ts.PropertyRange(rid)
		if err != nil {
			return nil, err
		}
		r.properties[row.Parent] = [2]uint32{first, end}
	}

	for rid := uint32(1); rid <= ts.RowCount(tables.MethodSemantics); rid++ {
		row, err := ts.MethodSemantics(rid)
		if err != nil {
			return nil, err
		}
		table, prop, err := tables.DecodeCoded(tables.HasSemantics, row.Association)
		if err != nil {
			return nil, &tables.ParseError{Table: tables.MethodSemantics, Row: rid, Err: err}
		}
		if table != tables.Property {
			continue
		}
		acc := r.semantics[prop]
		switch {
		case row.Semantics&tables.SemanticsGetter != 0 && acc.getter == 0:
			acc.getter = row.Method
		case row.Semantics&tables.SemanticsSetter != 0 && acc.setter == 0:
			acc.setter = row.Method
		}
		r.semantics[prop] = acc
	}

	return r, nil
}

// TypeName implements sig.Resolver.
func (r *reader) TypeName(table tables.TableID, rid uint32) (string, error) {
	switch table {
	case tables.TypeDef:
		return r.typeDefName(rid, 0)
	case tables.TypeRef:
		return r.typeRefName(rid, 0)
	default:
		return "", fmt.Errorf("unexpected %s in type reference", table)
	}
}

// TypeSpec implements sig.Resolver.
func (r *reader) TypeSpec(rid uint32) ([]byte, error) {
	off, err := r.ts.TypeSpec(rid)
	if err != nil {
		return nil, err
	}
	return r.blobs.At(off)
}

func (r *reader) typeDefName(rid uint32, depth int) (string, error) {
	if name, ok := r.defNames[rid]; ok {
		return name, nil
	}
	if depth > maxNesting {
		return "", &tables.ParseError{Table: tables.NestedClass, Row: rid, Err: errors.New("enclosing type chain too deep")}
	}

	row, err := r.ts.TypeDef(rid)
	if err != nil {
		return "", err
	}
	name, err := r.strings.At(row.Name)
	if err != nil {
		return "", err
	}

	var full string
	if enc, ok := r.enclosing[rid]; ok {
		outer, err := r.typeDefName(enc, depth+1)
		if err != nil {
			return "", err
		}
		full = outer + "+" + name
	} else {
		ns, err := r.strings.At(row.Namespace)
		if err != nil {
			return "", err
		}
		full = qualify(ns, name)
	}

	r.defNames[rid] = full
	return full, nil
}

func (r *reader) typeRefName(rid uint32, depth int) (string, error) {
	if name, ok := r.refNames[rid]; ok {
		return name, nil
	}
	if depth > maxNesting {
		return "", &tables.ParseError{Table: tables.TypeRef, Row: rid, Err: errors.New("resolution scope chain too deep")}
	}

	row, err := r.ts.TypeRef(rid)
	if err != nil {
		return "", err
	}
	name, err := r.strings.At(row.Name)
	if err != nil {
		return "", err
	}

	var full string
	scope, scopeRid, err := tables.DecodeCoded(tables.ResolutionScope, row.ResolutionScope)
	if err == nil && scope == tables.TypeRef && scopeRid != 0 {
		outer, err := r.typeRefName(scopeRid, depth+1)
		if err != nil {
			return "", err
		}
		full = outer + "+" + name
	} else {
		ns, err := r.strings.At(row.Namespace)
		if err != nil {
			return "", err
		}
		full = qualify(ns, name)
	}

	r.refNames[rid] = full
	return full, nil
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func (r *reader) readTypes() ([]*Type, error) {
	count := r.ts.RowCount(tables.TypeDef)
	if count == 0 {
		return nil, nil
	}

	// row 1 is the <Module> pseudo type holding global members
	types := make([]*Type, 0, count-1)
	for rid := uint32(2); rid <= count; rid++ {
		t, err := r.readType(rid)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func (r *reader) readType(rid uint32) (*Type, error) {
	row, err := r.ts.TypeDef(rid)
	if err != nil {
		return nil, err
	}
	fullName, err := r.typeDefName(rid, 0)
	if err != nil {
		return nil, err
	}

	kind := KindClass
	if row.Flags&tables.TypeInterface != 0 {
		kind = KindInterface
	} else {
		value, err := r.isValueType(row, fullName)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", fullName, err)
		}
		if value {
			kind = KindValue
		}
	}

	var flags TypeFlags
	if row.Flags&tables.TypeAbstract != 0 {
		flags |= TypeAbstract
	}
	if row.Flags&tables.TypeSealed != 0 {
		flags |= TypeSealed
	}

	members, err := r.readMembers(rid)
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", fullName, err)
	}
	return NewType(fullName, kind, flags, members...), nil
}

// isValueType reports whether the type derives directly from System.ValueType
// or System.Enum. System.Enum itself is a reference type.
func (r *reader) isValueType(row tables.TypeDefRow, fullName string) (bool, error) {
	if row.Extends == 0 || fullName == "System.Enum" {
		return false, nil
	}
	table, rid, err := tables.DecodeCoded(tables.TypeDefOrRef, row.Extends)
	if err != nil {
		return false, err
	}
	if rid == 0 || table == tables.TypeSpec {
		return false, nil
	}
	base, err := r.TypeName(table, rid)
	if err != nil {
		return false, err
	}
	return base == "System.ValueType" || base == "System.Enum", nil
}

// readMembers returns fields, then constructors and methods, then
// properties, each in table order.
func (r *reader) readMembers(rid uint32) ([]*Member, error) {
	var members []*Member
	r.dec = r.dec.Within(rid)

	first, end, err := r.ts.FieldRange(rid)
	if err != nil {
		return nil, err
	}
	for f := first; f < end; f++ {
		m, err := r.readField(f)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	first, end, err = r.ts.MethodRange(rid)
	if err != nil {
		return nil, err
	}
	for md := first; md < end; md++ {
		m, err := r.readMethod(md)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	if span, ok := r.properties[rid]; ok {
		for p := span[0]; p < span[1]; p++ {
			m, err := r.readProperty(p)
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
	}

	return members, nil
}

func (r *reader) readField(rid uint32) (*Member, error) {
	row, err := r.ts.Field(rid)
	if err != nil {
		return nil, err
	}
	name, err := r.strings.At(row.Name)
	if err != nil {
		return nil, err
	}
	blob, err := r.blobs.At(row.Signature)
	if err != nil {
		return nil, err
	}
	typ, err := r.dec.Field(blob)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	return NewField(name, typ.FullName(), row.Flags&tables.FieldStatic != 0), nil
}

func (r *reader) readMethod(rid uint32) (*Member, error) {
	row, err := r.ts.MethodDef(rid)
	if err != nil {
		return nil, err
	}
	name, err := r.strings.At(row.Name)
	if err != nil {
		return nil, err
	}
	blob, err := r.blobs.At(row.Signature)
	if err != nil {
		return nil, err
	}
	ms, err := r.dec.Method(blob)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", name, err)
	}

	names, err := r.paramNames(rid, len(ms.Params))
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", name, err)
	}
	params := make([]Parameter, len(ms.Params))
	for i, p := range ms.Params {
		params[i] = Parameter{Name: names[i], TypeName: p.FullName()}
	}

	static := row.Flags&tables.MethodStatic != 0
	if row.Flags&tables.MethodRTSpecialName != 0 && (name == ".ctor" || name == ".cctor") {
		return NewMember(MemberConstructor, name, "", static, params...), nil
	}
	return NewMethod(name, ms.Return.FullName(), static, params...), nil
}

// paramNames maps Param rows to signature positions by sequence number.
// Sequence 0 names the return value and is ignored.
func (r *reader) paramNames(rid uint32, count int) ([]string, error) {
	names := make([]string, count)
	first, end, err := r.ts.ParamRange(rid)
	if err != nil {
		return nil, err
	}
	for p := first; p < end; p++ {
		row, err := r.ts.Param(p)
		if err != nil {
			return nil, err
		}
		if row.Sequence == 0 || int(row.Sequence) > count {
			continue
		}
		if names[row.Sequence-1], err = r.strings.At(row.Name); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func (r *reader) readProperty(rid uint32) (*Member, error) {
	row, err := r.ts.Property(rid)
	if err != nil {
		return nil, err
	}
	name, err := r.strings.At(row.Name)
	if err != nil {
		return nil, err
	}
	blob, err := r.blobs.At(row.Signature)
	if err != nil {
		return nil, err
	}
	ps, err := r.dec.Property(blob)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}

	acc := r.semantics[rid]
	getter, err := r.accessor(acc.getter)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	setter, err := r.accessor(acc.setter)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	return NewProperty(name, ps.Type.FullName(), getter, setter), nil
}

func (r *reader) accessor(method uint32) (*Accessor, error) {
	if method == 0 {
		return nil, nil
	}
	row, err := r.ts.MethodDef(method)
	if err != nil {
		return nil, err
	}
	return &Accessor{Static: row.Flags&tables.MethodStatic != 0}, nil
}
