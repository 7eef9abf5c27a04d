// Package filter resolves delimiter-separated filter expressions against
// declared types and members.
//
// A filter expression is split on a delimiter into tokens; empty tokens are
// dropped. Each token is either a reserved category starting with '@' or a
// literal name. A selection is the union of what every token selects,
// deduplicated by identity (full name for types, name for members) and
// reported in declaration order.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultDelimiter separates tokens in a filter expression.
const DefaultDelimiter = "|"

// ErrInvalidArgument indicates a caller contract violation: an empty
// delimiter or a missing provider, type or mapping.
var ErrInvalidArgument = errors.New("filter: invalid argument")

// split returns the non-empty tokens of expr. Tokens are not trimmed.
func split(expr, delim string) ([]string, error) {
	if delim == "" {
		return nil, fmt.Errorf("%w: empty delimiter", ErrInvalidArgument)
	}

	parts := strings.Split(expr, delim)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens, nil
}

func delimiterOrDefault(delim string) string {
	if delim == "" {
		return DefaultDelimiter
	}
	return delim
}
