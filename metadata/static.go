package metadata

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/skdltmxn/nettype-go/internal/log"
)

// Static is an in-memory Provider over a fixed list of types.
type Static struct {
	name  string
	types []*Type

	index     map[string]*Type
	indexOnce sync.Once
}

// NewStatic creates a Provider over types, kept in the given order.
func NewStatic(name string, types ...*Type) *Static {
	return &Static{name: name, types: types}
}

// Name returns the name of the binary unit the types describe.
func (s *Static) Name() string { return s.name }

// Close implements io.Closer; a Static provider holds no resources.
func (s *Static) Close() error { return nil }

// Types implements Provider.
func (s *Static) Types() ([]*Type, error) {
	return slices.Clone(s.types), nil
}

// LookupType implements Provider. When full names repeat, the first type wins.
func (s *Static) LookupType(fullName string) (*Type, error) {
	s.indexOnce.Do(func() {
		s.index = buildIndex(s.types)
	})
	if t, ok := s.index[fullName]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, fullName)
}

func buildIndex(types []*Type) map[string]*Type {
	index := make(map[string]*Type, len(types))
	for _, t := range types {
		if _, ok := index[t.fullName]; ok {
			log.Warnf("duplicate type %q, keeping the first", t.fullName)
			continue
		}
		index[t.fullName] = t
	}
	return index
}

// Manifest is the YAML form of a binary unit's declared types.
//
//	assembly: Sample
//	types:
//	  - name: Ns.Foo
//	    kind: class
//	    members:
//	      - {name: Count, kind: field, type: System.Int32}
//	      - {name: Make, kind: method, type: Ns.Foo, static: true}
type Manifest struct {
	Assembly string         `yaml:"assembly"`
	Types    []ManifestType `yaml:"types"`
}

// ManifestType is one type entry of a Manifest.
type ManifestType struct {
	Name     string           `yaml:"name"`
	Kind     string           `yaml:"kind"`
	Abstract bool             `yaml:"abstract"`
	Sealed   bool             `yaml:"sealed"`
	Members  []ManifestMember `yaml:"members"`
}

// ManifestMember is one member entry of a ManifestType. For properties,
// Getter and Setter take precedence over Static.
type ManifestMember struct {
	Name       string      `yaml:"name"`
	Kind       string      `yaml:"kind"`
	Type       string      `yaml:"type"`
	Static     bool        `yaml:"static"`
	Getter     *Accessor   `yaml:"getter"`
	Setter     *Accessor   `yaml:"setter"`
	Parameters []Parameter `yaml:"parameters"`
}

// LoadManifest decodes a YAML manifest into a Static provider.
func LoadManifest(r io.Reader) (*Static, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return m.Provider()
}

// Provider converts the manifest into a Static provider.
func (m *Manifest) Provider() (*Static, error) {
	types := make([]*Type, 0, len(m.Types))
	for i, mt := range m.Types {
		t, err := mt.build()
		if err != nil {
			return nil, fmt.Errorf("type %d (%s): %w", i, mt.Name, err)
		}
		types = append(types, t)
	}
	return NewStatic(m.Assembly, types...), nil
}

func (mt *ManifestType) build() (*Type, error) {
	if mt.Name == "" {
		return nil, fmt.Errorf("missing name")
	}

	var kind TypeKind
	switch mt.Kind {
	case "", "class":
		kind = KindClass
	case "struct", "value":
		kind = KindValue
	case "interface":
		kind = KindInterface
	default:
		return nil, fmt.Errorf("unknown type kind %q", mt.Kind)
	}

	var flags TypeFlags
	if mt.Abstract {
		flags |= TypeAbstract
	}
	if mt.Sealed {
		flags |= TypeSealed
	}

	members := make([]*Member, 0, len(mt.Members))
	for _, mm := range mt.Members {
		m, err := mm.build()
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", mm.Name, err)
		}
		members = append(members, m)
	}
	return NewType(mt.Name, kind, flags, members...), nil
}

func (mm *ManifestMember) build() (*Member, error) {
	kind, ok := ParseMemberKind(mm.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown member kind %q", mm.Kind)
	}

	switch kind {
	case MemberField:
		return NewField(mm.Name, mm.Type, mm.Static), nil
	case MemberProperty:
		getter, setter := mm.Getter, mm.Setter
		if getter == nil && setter == nil {
			getter = &Accessor{Static: mm.Static}
		}
		return NewProperty(mm.Name, mm.Type, getter, setter), nil
	case MemberConstructor:
		c := NewConstructor(mm.Static, mm.Parameters...)
		if mm.Name != "" {
			c.name = mm.Name
		}
		return c, nil
	default:
		return NewMethod(mm.Name, mm.Type, mm.Static, mm.Parameters...), nil
	}
}
