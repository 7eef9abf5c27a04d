package filter

import (
	"fmt"
	"strings"
)

// TypeTokenKind is the category a type token selects.
type TypeTokenKind uint8

const (
	// TypeLiteral selects the type whose full name equals the token.
	TypeLiteral TypeTokenKind = iota
	// TypeAll selects every declared type ("@all").
	TypeAll
	// TypeReference selects class types ("@class", "@reference").
	TypeReference
	// TypeValue selects value types ("@structure", "@value").
	TypeValue
	// TypeStaticReference selects static classes ("@@class", "@@reference").
	TypeStaticReference
)

var typeKeywords = map[string]TypeTokenKind{
	"@all":        TypeAll,
	"@class":      TypeReference,
	"@reference":  TypeReference,
	"@structure":  TypeValue,
	"@value":      TypeValue,
	"@@class":     TypeStaticReference,
	"@@reference": TypeStaticReference,
}

func (k TypeTokenKind) String() string {
	switch k {
	case TypeLiteral:
		return "literal"
	case TypeAll:
		return "all"
	case TypeReference:
		return "reference"
	case TypeValue:
		return "value"
	case TypeStaticReference:
		return "static reference"
	default:
		return fmt.Sprintf("TypeTokenKind(%d)", uint8(k))
	}
}

// TypeToken is one parsed token of a type filter expression. Name is set
// for literals only.
type TypeToken struct {
	Kind TypeTokenKind
	Name string
}

// ParseTypeToken classifies a single non-empty token.
func ParseTypeToken(s string) TypeToken {
	if k, ok := typeKeywords[s]; ok {
		return TypeToken{Kind: k}
	}
	return TypeToken{Kind: TypeLiteral, Name: s}
}

// ParseTypeExpression splits expr on delim and classifies each token.
func ParseTypeExpression(expr, delim string) ([]TypeToken, error) {
	parts, err := split(expr, delim)
	if err != nil {
		return nil, err
	}
	tokens := make([]TypeToken, len(parts))
	for i, p := range parts {
		tokens[i] = ParseTypeToken(p)
	}
	return tokens, nil
}

// MemberTokenKind is the category a member token selects.
type MemberTokenKind uint8

const (
	// MemberLiteral selects the first declared member named by the token.
	MemberLiteral MemberTokenKind = iota
	MemberAll
	MemberField
	MemberProperty
	MemberConstructor
	MemberMethod
)

var memberKeywords = map[string]MemberTokenKind{
	"all":         MemberAll,
	"field":       MemberField,
	"property":    MemberProperty,
	"constructor": MemberConstructor,
	"method":      MemberMethod,
}

func (k MemberTokenKind) String() string {
	switch k {
	case MemberLiteral:
		return "literal"
	case MemberAll:
		return "all"
	case MemberField:
		return "field"
	case MemberProperty:
		return "property"
	case MemberConstructor:
		return "constructor"
	case MemberMethod:
		return "method"
	default:
		return fmt.Sprintf("MemberTokenKind(%d)", uint8(k))
	}
}

// MemberToken is one parsed token of a member filter expression. Static
// restricts a category to static members ("@@" prefix); Name is set for
// literals only.
type MemberToken struct {
	Kind   MemberTokenKind
	Static bool
	Name   string
}

// ParseMemberToken classifies a single non-empty token.
func ParseMemberToken(s string) MemberToken {
	static := false
	word, ok := strings.CutPrefix(s, "@@")
	if ok {
		static = true
	} else if word, ok = strings.CutPrefix(s, "@"); !ok {
		return MemberToken{Kind: MemberLiteral, Name: s}
	}

	if k, ok := memberKeywords[word]; ok {
		return MemberToken{Kind: k, Static: static}
	}
	return MemberToken{Kind: MemberLiteral, Name: s}
}

// ParseMemberExpression splits expr on delim and classifies each token.
func ParseMemberExpression(expr, delim string) ([]MemberToken, error) {
	parts, err := split(expr, delim)
	if err != nil {
		return nil, err
	}
	tokens := make([]MemberToken, len(parts))
	for i, p := range parts {
		tokens[i] = ParseMemberToken(p)
	}
	return tokens, nil
}
