package filter

import (
	"fmt"

	"github.com/skdltmxn/nettype-go/metadata"
)

// MemberSelector resolves member filter expressions against one type.
type MemberSelector struct {
	// Delimiter separates tokens. The zero value uses DefaultDelimiter.
	Delimiter string
}

// Select returns the declared members of t that expr selects, deduplicated
// by name, in declaration order. Overloads sharing a name collapse to the
// first declared one.
func (s MemberSelector) Select(t *metadata.Type, expr string) ([]*metadata.Member, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidArgument)
	}

	tokens, err := ParseMemberExpression(expr, delimiterOrDefault(s.Delimiter))
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	members := t.Members()
	selected := make([]bool, len(members))

	for _, tok := range tokens {
		for i, m := range members {
			if tok.Kind == MemberLiteral {
				if m.Name() == tok.Name {
					selected[i] = true
					break
				}
				continue
			}
			if tok.matches(m) {
				selected[i] = true
			}
		}
	}

	var out []*metadata.Member
	seen := make(map[string]struct{})
	for i, m := range members {
		if !selected[i] {
			continue
		}
		if _, dup := seen[m.Name()]; dup {
			continue
		}
		seen[m.Name()] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

// matches reports whether a category token selects m.
func (tok MemberToken) matches(m *metadata.Member) bool {
	if tok.Static && !m.IsStatic() {
		return false
	}

	switch tok.Kind {
	case MemberAll:
		return true
	case MemberField:
		return m.Kind() == metadata.MemberField
	case MemberProperty:
		return m.Kind() == metadata.MemberProperty
	case MemberConstructor:
		return m.Kind() == metadata.MemberConstructor
	case MemberMethod:
		return m.Kind() == metadata.MemberMethod
	default:
		return false
	}
}
