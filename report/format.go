package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/skdltmxn/nettype-go/filter"
	"github.com/skdltmxn/nettype-go/metadata"
)

// ErrUnsupportedKind indicates a member whose kind has no report form.
var ErrUnsupportedKind = errors.New("report: unsupported member kind")

// UnsupportedKindError names the member that could not be rendered.
type UnsupportedKindError struct {
	Type   string
	Member string
	Kind   metadata.MemberKind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("report: unsupported member kind %d for %s:%s", uint8(e.Kind), e.Type, e.Member)
}

func (e *UnsupportedKindError) Is(target error) bool { return target == ErrUnsupportedKind }

// Render formats m. Every selected member yields an "is" and a "return"
// line, and constructors and methods an "arguments" line:
//
//	Ns.Foo:Make:is=method
//	Ns.Foo:Make:return=Ns.Foo
//	Ns.Foo:Make:arguments=count,System.Int32;name,System.String
//
// An empty mapping renders as the empty string.
func Render(m *Mapping) (string, error) {
	if m == nil {
		return "", fmt.Errorf("%w: nil mapping", filter.ErrInvalidArgument)
	}

	var b strings.Builder
	for _, e := range m.entries {
		if e.Type == nil {
			return "", fmt.Errorf("%w: nil type in mapping", filter.ErrInvalidArgument)
		}
		for _, member := range e.Members {
			if err := writeMember(&b, e.Type, member); err != nil {
				return "", err
			}
		}
	}
	return b.String(), nil
}

// Write renders m to w. Nothing is written when rendering fails.
func Write(w io.Writer, m *Mapping) error {
	s, err := Render(m)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

func writeMember(b *strings.Builder, t *metadata.Type, m *metadata.Member) error {
	if m == nil {
		return fmt.Errorf("%w: nil member of %s", filter.ErrInvalidArgument, t.FullName())
	}

	kind := m.Kind()
	if !kind.Valid() {
		return &UnsupportedKindError{Type: t.FullName(), Member: m.Name(), Kind: kind}
	}

	prefix := t.FullName() + ":" + m.Name()
	fmt.Fprintf(b, "%s:is=%s\n", prefix, kind)

	// a constructor returns the type it is listed under
	ret := m.TypeName()
	if kind == metadata.MemberConstructor {
		ret = t.FullName()
	}
	fmt.Fprintf(b, "%s:return=%s\n", prefix, ret)

	if kind == metadata.MemberConstructor || kind == metadata.MemberMethod {
		params := m.Parameters()
		args := make([]string, len(params))
		for i, p := range params {
			args[i] = p.Name + "," + p.TypeName
		}
		fmt.Fprintf(b, "%s:arguments=%s\n", prefix, strings.Join(args, ";"))
	}
	return nil
}
