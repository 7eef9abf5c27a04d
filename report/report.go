// Package report builds the mapping from selected types to selected members
// and renders it as text.
package report

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/skdltmxn/nettype-go/filter"
	"github.com/skdltmxn/nettype-go/internal/log"
	"github.com/skdltmxn/nettype-go/metadata"
)

// Entry is one type of a Mapping with its selected members.
type Entry struct {
	Type    *metadata.Type
	Members []*metadata.Member
}

// Mapping is an ordered mapping from type to selected members. Types with
// no selected members are never part of a Mapping built by Build.
type Mapping struct {
	entries []Entry
}

// NewMapping creates a Mapping from entries, kept in the given order.
func NewMapping(entries ...Entry) *Mapping {
	return &Mapping{entries: entries}
}

// Entries returns the entries in order.
func (m *Mapping) Entries() []Entry {
	return m.entries
}

// Len returns the number of types in the mapping.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Options configures Build.
type Options struct {
	// Delimiter separates filter tokens. The zero value uses
	// filter.DefaultDelimiter.
	Delimiter string

	// Workers bounds concurrent member selection. Zero or negative means
	// one worker per CPU.
	Workers int
}

// Build selects types from p with typeExpr, then members of each selected
// type with memberExpr, and keeps the types with a non-empty member
// selection in type selection order.
func Build(p metadata.Provider, typeExpr, memberExpr string, opts Options) (*Mapping, error) {
	types, err := filter.TypeSelector{Delimiter: opts.Delimiter}.Select(p, typeExpr)
	if err != nil {
		return nil, fmt.Errorf("failed to select types: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	selector := filter.MemberSelector{Delimiter: opts.Delimiter}
	selected := make([][]*metadata.Member, len(types))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, t := range types {
		g.Go(func() error {
			members, err := selector.Select(t, memberExpr)
			if err != nil {
				return fmt.Errorf("failed to select members of %s: %w", t.FullName(), err)
			}
			selected[i] = members
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Mapping{}
	total := 0
	for i, t := range types {
		if len(selected[i]) == 0 {
			continue
		}
		m.entries = append(m.entries, Entry{Type: t, Members: selected[i]})
		total += len(selected[i])
	}

	log.WithFields(log.Fields{
		"selected": len(types),
		"reported": len(m.entries),
		"members":  total,
		"workers":  workers,
	}).Debug("built report mapping")

	return m, nil
}
