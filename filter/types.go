package filter

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/nettype-go/metadata"
)

// TypeSelector resolves type filter expressions against a Provider.
type TypeSelector struct {
	// Delimiter separates tokens. The zero value uses DefaultDelimiter.
	Delimiter string
}

// Select returns the types expr selects, deduplicated by full name, in
// declaration order. A literal naming no declared type selects nothing.
func (s TypeSelector) Select(p metadata.Provider, expr string) ([]*metadata.Type, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrInvalidArgument)
	}

	tokens, err := ParseTypeExpression(expr, delimiterOrDefault(s.Delimiter))
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	types, err := p.Types()
	if err != nil {
		return nil, err
	}

	selected := make([]bool, len(types))
	var position map[*metadata.Type]int

	for _, tok := range tokens {
		if tok.Kind == TypeLiteral {
			t, err := p.LookupType(tok.Name)
			if errors.Is(err, metadata.ErrTypeNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if position == nil {
				position = make(map[*metadata.Type]int, len(types))
				for i, typ := range types {
					position[typ] = i
				}
			}
			if i, ok := position[t]; ok {
				selected[i] = true
			}
			continue
		}

		for i, t := range types {
			if tok.matches(t) {
				selected[i] = true
			}
		}
	}

	var out []*metadata.Type
	seen := make(map[string]struct{})
	for i, t := range types {
		if !selected[i] {
			continue
		}
		if _, dup := seen[t.FullName()]; dup {
			continue
		}
		seen[t.FullName()] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// matches reports whether a category token selects t.
func (tok TypeToken) matches(t *metadata.Type) bool {
	switch tok.Kind {
	case TypeAll:
		return true
	case TypeReference:
		return t.IsClass()
	case TypeValue:
		return t.IsValueType()
	case TypeStaticReference:
		return t.IsStatic()
	default:
		return false
	}
}
