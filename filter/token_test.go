package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeToken(t *testing.T) {
	tests := []struct {
		in   string
		want TypeToken
	}{
		{"@all", TypeToken{Kind: TypeAll}},
		{"@class", TypeToken{Kind: TypeReference}},
		{"@reference", TypeToken{Kind: TypeReference}},
		{"@structure", TypeToken{Kind: TypeValue}},
		{"@value", TypeToken{Kind: TypeValue}},
		{"@@class", TypeToken{Kind: TypeStaticReference}},
		{"@@reference", TypeToken{Kind: TypeStaticReference}},
		{"@@all", TypeToken{Kind: TypeLiteral, Name: "@@all"}},
		{"Ns.Foo", TypeToken{Kind: TypeLiteral, Name: "Ns.Foo"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTypeToken(tt.in), tt.in)
	}
}

func TestParseMemberToken(t *testing.T) {
	tests := []struct {
		in   string
		want MemberToken
	}{
		{"@all", MemberToken{Kind: MemberAll}},
		{"@@all", MemberToken{Kind: MemberAll, Static: true}},
		{"@field", MemberToken{Kind: MemberField}},
		{"@@field", MemberToken{Kind: MemberField, Static: true}},
		{"@property", MemberToken{Kind: MemberProperty}},
		{"@@property", MemberToken{Kind: MemberProperty, Static: true}},
		{"@constructor", MemberToken{Kind: MemberConstructor}},
		{"@@constructor", MemberToken{Kind: MemberConstructor, Static: true}},
		{"@method", MemberToken{Kind: MemberMethod}},
		{"@@method", MemberToken{Kind: MemberMethod, Static: true}},
		{"@@@method", MemberToken{Kind: MemberLiteral, Name: "@@@method"}},
		{"@event", MemberToken{Kind: MemberLiteral, Name: "@event"}},
		{"@", MemberToken{Kind: MemberLiteral, Name: "@"}},
		{"ToString", MemberToken{Kind: MemberLiteral, Name: "ToString"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseMemberToken(tt.in), tt.in)
	}
}

func TestParseExpressions(t *testing.T) {
	types, err := ParseTypeExpression("@class||Ns.Foo|", "|")
	require.NoError(t, err)
	assert.Equal(t, []TypeToken{
		{Kind: TypeReference},
		{Kind: TypeLiteral, Name: "Ns.Foo"},
	}, types)

	members, err := ParseMemberExpression("@@method::Run", "::")
	require.NoError(t, err)
	assert.Equal(t, []MemberToken{
		{Kind: MemberMethod, Static: true},
		{Kind: MemberLiteral, Name: "Run"},
	}, members)

	members, err = ParseMemberExpression("", "|")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestParseEmptyDelimiter(t *testing.T) {
	_, err := ParseTypeExpression("@all", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParseMemberExpression("@all", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTokenKindStrings(t *testing.T) {
	assert.Equal(t, "static reference", TypeStaticReference.String())
	assert.Equal(t, "TypeTokenKind(9)", TypeTokenKind(9).String())
	assert.Equal(t, "constructor", MemberConstructor.String())
	assert.Equal(t, "MemberTokenKind(9)", MemberTokenKind(9).String())
}
