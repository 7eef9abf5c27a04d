package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/nettype-go/filter"
	"github.com/skdltmxn/nettype-go/internal/mdtest"
	"github.com/skdltmxn/nettype-go/internal/sig"
	"github.com/skdltmxn/nettype-go/internal/tables"
	"github.com/skdltmxn/nettype-go/metadata"
)

func fooProvider() *metadata.Static {
	return metadata.NewStatic("Sample",
		metadata.NewType("Ns.Foo", metadata.KindClass, 0,
			metadata.NewField("Count", "System.Int32", false),
			metadata.NewMethod("Make", "Ns.Foo", true),
		),
	)
}

const fooReport = `Ns.Foo:Count:is=field
Ns.Foo:Count:return=System.Int32
Ns.Foo:Make:is=method
Ns.Foo:Make:return=Ns.Foo
Ns.Foo:Make:arguments=
`

func TestScenario(t *testing.T) {
	m, err := Build(fooProvider(), "@class", "@all", Options{})
	require.NoError(t, err)

	got, err := Render(m)
	require.NoError(t, err)
	assert.Equal(t, fooReport, got)
}

func TestScenarioFromImage(t *testing.T) {
	b := mdtest.New()
	object := b.TypeRef("System", "Object")
	foo := b.BeginType(0, "Ns", "Foo", object)
	b.AddField(0, "Count", mdtest.FieldSig(mdtest.Elem(sig.ElemI4)))
	b.AddMethod(tables.MethodStatic, "Make", mdtest.MethodSig(false, mdtest.Class(b.TypeDefToken(foo))))

	path := filepath.Join(t.TempDir(), "Sample.dll")
	require.NoError(t, os.WriteFile(path, b.PE(), 0o644))

	u, err := metadata.Load(path)
	require.NoError(t, err)
	defer u.Close()

	m, err := Build(u, "@class", "@all", Options{Workers: 2})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))
	assert.Equal(t, fooReport, buf.String())
}

func TestNoStaticClasses(t *testing.T) {
	m, err := Build(fooProvider(), "@@class", "@all", Options{})
	require.NoError(t, err)
	assert.Zero(t, m.Len())

	got, err := Render(m)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMissingLiteralType(t *testing.T) {
	m, err := Build(fooProvider(), "Ns.Missing|Ns.Foo", "Count", Options{})
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, "Ns.Foo", m.Entries()[0].Type.FullName())
}

func TestTypesWithoutMembersAreDropped(t *testing.T) {
	p := metadata.NewStatic("Sample",
		metadata.NewType("Ns.A", metadata.KindClass, 0, metadata.NewField("X", "System.Int32", false)),
		metadata.NewType("Ns.B", metadata.KindClass, 0, metadata.NewMethod("Run", "System.Void", false)),
		metadata.NewType("Ns.C", metadata.KindClass, 0, metadata.NewField("Y", "System.Int32", false)),
	)

	m, err := Build(p, "@all", "@field", Options{Workers: 1})
	require.NoError(t, err)

	var names []string
	for _, e := range m.Entries() {
		names = append(names, e.Type.FullName())
	}
	assert.Equal(t, []string{"Ns.A", "Ns.C"}, names)

	m, err = Build(p, "@all", "", Options{})
	require.NoError(t, err)
	assert.Zero(t, m.Len())
}

func TestRenderKinds(t *testing.T) {
	typ := metadata.NewType("Ns.Shape", metadata.KindClass, 0,
		metadata.NewProperty("Area", "System.Double", &metadata.Accessor{}, nil),
		metadata.NewConstructor(false,
			metadata.Parameter{Name: "w", TypeName: "System.Double"},
			metadata.Parameter{Name: "h", TypeName: "System.Double"},
		),
		metadata.NewMethod("Map", "", false, metadata.Parameter{Name: "f", TypeName: ""}),
	)

	got, err := Render(NewMapping(Entry{Type: typ, Members: typ.Members()}))
	require.NoError(t, err)
	assert.Equal(t, `Ns.Shape:Area:is=property
Ns.Shape:Area:return=System.Double
Ns.Shape:.ctor:is=constructor
Ns.Shape:.ctor:return=Ns.Shape
Ns.Shape:.ctor:arguments=w,System.Double;h,System.Double
Ns.Shape:Map:is=method
Ns.Shape:Map:return=
Ns.Shape:Map:arguments=f,
`, got)
}

func TestRenderUnsupportedKind(t *testing.T) {
	typ := metadata.NewType("Ns.Foo", metadata.KindClass, 0,
		metadata.NewField("Count", "System.Int32", false),
		metadata.NewMember(metadata.MemberKind(7), "Changed", "System.EventHandler", false),
	)

	var buf bytes.Buffer
	err := Write(&buf, NewMapping(Entry{Type: typ, Members: typ.Members()}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	assert.Empty(t, buf.String(), "nothing is written on failure")

	var kerr *UnsupportedKindError
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, "Ns.Foo", kerr.Type)
	assert.Equal(t, "Changed", kerr.Member)
}

func TestInvalidArguments(t *testing.T) {
	_, err := Render(nil)
	assert.ErrorIs(t, err, filter.ErrInvalidArgument)

	_, err = Build(nil, "@all", "@all", Options{})
	assert.ErrorIs(t, err, filter.ErrInvalidArgument)

	_, err = Render(NewMapping(Entry{}))
	assert.ErrorIs(t, err, filter.ErrInvalidArgument)
}

func TestBuildMatchesSequentialSelection(t *testing.T) {
	var types []*metadata.Type
	for _, name := range []string{"Ns.A", "Ns.B", "Ns.C", "Ns.D", "Ns.E", "Ns.F"} {
		types = append(types, metadata.NewType(name, metadata.KindClass, 0,
			metadata.NewField("X", "System.Int32", name != "Ns.C"),
			metadata.NewMethod("Run", "System.Void", true),
		))
	}
	p := metadata.NewStatic("many", types...)

	serial, err := Build(p, "@all", "@@field", Options{Workers: 1})
	require.NoError(t, err)
	parallel, err := Build(p, "@all", "@@field", Options{Workers: 8})
	require.NoError(t, err)

	want, err := Render(serial)
	require.NoError(t, err)
	got, err := Render(parallel)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 5, parallel.Len())
}
