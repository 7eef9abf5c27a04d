package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeNames(t *testing.T) {
	tests := []struct {
		full      string
		namespace string
		name      string
	}{
		{"Foo", "", "Foo"},
		{"Ns.Foo", "Ns", "Foo"},
		{"A.B.Foo", "A.B", "Foo"},
		{"Ns.Outer+Inner", "Ns", "Inner"},
		{"Outer+Mid+Inner", "", "Inner"},
	}
	for _, tt := range tests {
		typ := NewType(tt.full, KindClass, 0)
		assert.Equal(t, tt.namespace, typ.Namespace(), tt.full)
		assert.Equal(t, tt.name, typ.Name(), tt.full)
	}
}

func TestStaticClass(t *testing.T) {
	assert.True(t, NewType("S", KindClass, TypeAbstract|TypeSealed).IsStatic())
	assert.False(t, NewType("A", KindClass, TypeAbstract).IsStatic())
	assert.False(t, NewType("X", KindClass, TypeSealed).IsStatic())
	assert.False(t, NewType("I", KindInterface, TypeAbstract|TypeSealed).IsStatic())
	assert.False(t, NewType("V", KindValue, TypeAbstract|TypeSealed).IsStatic())
}

func TestPropertyStaticness(t *testing.T) {
	static := &Accessor{Static: true}
	instance := &Accessor{}

	assert.True(t, NewProperty("P", "T", static, instance).IsStatic())
	assert.False(t, NewProperty("P", "T", instance, static).IsStatic())
	assert.True(t, NewProperty("P", "T", nil, static).IsStatic())
	assert.False(t, NewProperty("P", "T", nil, instance).IsStatic())
	assert.False(t, NewProperty("P", "T", nil, nil).IsStatic())
}

func TestMembersOfAndLookup(t *testing.T) {
	typ := NewType("Ns.Foo", KindClass, 0,
		NewField("Count", "System.Int32", false),
		NewMethod("Run", "System.Void", false),
		NewMethod("Run", "System.Void", true, Parameter{Name: "n", TypeName: "System.Int32"}),
		NewConstructor(false),
	)

	assert.Len(t, typ.MembersOf(MemberMethod), 2)
	assert.Len(t, typ.MembersOf(MemberConstructor), 1)
	assert.Empty(t, typ.MembersOf(MemberProperty))

	run, ok := typ.Member("Run")
	assert.True(t, ok)
	assert.False(t, run.IsStatic(), "first declared member wins")
	assert.Equal(t, "Ns.Foo:Run", run.String())

	ctor, ok := typ.Member(".ctor")
	assert.True(t, ok)
	assert.Equal(t, "Ns.Foo", ctor.TypeName())

	members := typ.Members()
	members[0] = nil
	assert.NotNil(t, typ.Members()[0], "Members returns a copy")
}

func TestMemberKind(t *testing.T) {
	for _, k := range []MemberKind{MemberField, MemberProperty, MemberConstructor, MemberMethod} {
		assert.True(t, k.Valid())
		got, ok := ParseMemberKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	assert.False(t, MemberUnknown.Valid())
	assert.False(t, MemberKind(9).Valid())
	assert.Equal(t, "unknown", MemberKind(9).String())

	_, ok := ParseMemberKind("event")
	assert.False(t, ok)
}
