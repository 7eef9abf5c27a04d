package filter

import (
	"bytes"
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/skdltmxn/nettype-go/metadata"
)

//go:embed testdata/*.yaml
var testDataFS embed.FS

// testSelectCase represents a single test case for TestTypeSelector and
// TestMemberSelector.
type testSelectCase struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Expr      string   `yaml:"expr"`
	Delimiter string   `yaml:"delimiter"`
	Want      []string `yaml:"want"`
	Static    []bool   `yaml:"static"`
}

// loadTestData loads test data from embedded YAML files.
func loadTestData(filename string, v interface{}) error {
	data, err := testDataFS.ReadFile("testdata/" + filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

func loadFixture(t *testing.T) *metadata.Static {
	t.Helper()

	data, err := testDataFS.ReadFile("testdata/fixture.yaml")
	require.NoError(t, err)
	p, err := metadata.LoadManifest(bytes.NewReader(data))
	require.NoError(t, err)
	return p
}

func lookup(t *testing.T, p metadata.Provider, name string) *metadata.Type {
	t.Helper()

	typ, err := p.LookupType(name)
	require.NoError(t, err)
	return typ
}

func typeNames(types []*metadata.Type) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.FullName())
	}
	return names
}

func memberNames(members []*metadata.Member) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name())
	}
	return names
}

func assertNames(t *testing.T, want, got []string) {
	t.Helper()

	if len(want) == 0 {
		assert.Empty(t, got)
		return
	}
	assert.Equal(t, want, got)
}

func TestTypeSelector(t *testing.T) {
	var tests []testSelectCase
	require.NoError(t, loadTestData("select_types.yaml", &tests))
	p := loadFixture(t)

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			got, err := TypeSelector{Delimiter: tt.Delimiter}.Select(p, tt.Expr)
			require.NoError(t, err)
			assertNames(t, tt.Want, typeNames(got))
		})
	}
}

func TestMemberSelector(t *testing.T) {
	var tests []testSelectCase
	require.NoError(t, loadTestData("select_members.yaml", &tests))
	p := loadFixture(t)

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			name := tt.Type
			if name == "" {
				name = "Ns.Foo"
			}

			got, err := MemberSelector{Delimiter: tt.Delimiter}.Select(lookup(t, p, name), tt.Expr)
			require.NoError(t, err)
			assertNames(t, tt.Want, memberNames(got))

			if tt.Static != nil {
				require.Len(t, got, len(tt.Static))
				for i, m := range got {
					assert.Equal(t, tt.Static[i], m.IsStatic(), m.Name())
				}
			}
		})
	}
}

func TestSelectorInvalidArguments(t *testing.T) {
	_, err := TypeSelector{}.Select(nil, "@all")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = MemberSelector{}.Select(nil, "@all")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

var memberExpressions = []string{
	"@all", "@field", "@property", "@constructor", "@method",
	"@@all", "@@field", "@@property", "@@constructor", "@@method",
	"Run", "Count|Make", "@field|@property", "",
}

func TestSelectionIsIdempotent(t *testing.T) {
	p := loadFixture(t)
	types, err := p.Types()
	require.NoError(t, err)

	for _, expr := range []string{"@all", "@class", "@value", "@@class", "Ns.Point|@@class"} {
		first, err := TypeSelector{}.Select(p, expr)
		require.NoError(t, err)
		second, err := TypeSelector{}.Select(p, expr)
		require.NoError(t, err)
		assert.Equal(t, first, second, expr)
	}

	for _, typ := range types {
		for _, expr := range memberExpressions {
			first, err := MemberSelector{}.Select(typ, expr)
			require.NoError(t, err)
			second, err := MemberSelector{}.Select(typ, expr)
			require.NoError(t, err)
			assert.Equal(t, first, second, "%s %q", typ, expr)
		}
	}
}

func TestSelectionUnion(t *testing.T) {
	p := loadFixture(t)
	types, err := p.Types()
	require.NoError(t, err)

	pairs := [][2]string{
		{"@field", "@property"},
		{"@constructor", "@method"},
		{"@@field", "Count"},
	}
	for _, typ := range types {
		for _, pair := range pairs {
			a, err := MemberSelector{}.Select(typ, pair[0])
			require.NoError(t, err)
			b, err := MemberSelector{}.Select(typ, pair[1])
			require.NoError(t, err)
			both, err := MemberSelector{}.Select(typ, pair[0]+"|"+pair[1])
			require.NoError(t, err)

			assert.ElementsMatch(t, append(a, b...), both, "%s %v", typ, pair)
		}
	}
}

func TestSelectionStaticSubset(t *testing.T) {
	p := loadFixture(t)
	types, err := p.Types()
	require.NoError(t, err)

	for _, typ := range types {
		for _, kind := range []string{"all", "field", "property", "constructor", "method"} {
			all, err := MemberSelector{}.Select(typ, "@"+kind)
			require.NoError(t, err)
			static, err := MemberSelector{}.Select(typ, "@@"+kind)
			require.NoError(t, err)

			allNames := memberNames(all)
			for _, m := range static {
				assert.True(t, m.IsStatic(), "%s %s", typ, m.Name())
				assert.Contains(t, allNames, m.Name(), "%s @@%s", typ, kind)
			}
		}
	}
}

func TestSelectionDeduplicates(t *testing.T) {
	typ := metadata.NewType("Ns.Foo", metadata.KindClass, 0,
		metadata.NewMethod("Foo", "System.Void", false),
	)

	got, err := MemberSelector{}.Select(typ, "Foo|Foo|Foo")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStaticClassScenario(t *testing.T) {
	p := metadata.NewStatic("plain",
		metadata.NewType("Ns.A", metadata.KindClass, 0),
		metadata.NewType("Ns.B", metadata.KindClass, metadata.TypeSealed),
	)

	got, err := TypeSelector{}.Select(p, "@@class")
	require.NoError(t, err)
	assert.Empty(t, got)
}
