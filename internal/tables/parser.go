package tables

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/skdltmxn/nettype-go/internal/stream"
)

// Heap size flags from the table stream header.
const (
	HeapStringWide = 0x01
	HeapGUIDWide   = 0x02
	HeapBlobWide   = 0x04
	heapExtraData  = 0x40
)

// HeaderSize is the fixed part of the table stream header, before row counts.
const HeaderSize = 24

// Errors
var (
	ErrInvalidHeader     = errors.New("tables: invalid table stream header")
	ErrUnsupportedStream = errors.New("tables: uncompressed #- table stream is not supported")
	ErrUnknownTable      = errors.New("tables: unknown table present")
	ErrRowOutOfRange     = errors.New("tables: row index out of range")
	ErrTruncated         = errors.New("tables: truncated table data")
)

// ParseError provides detailed information about a row decoding failure.
type ParseError struct {
	Table TableID
	Row   uint32
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tables: failed to decode %s row %d: %v", e.Table, e.Row, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Header represents the "#~" stream header (ECMA-335 II.24.2.6).
type Header struct {
	MajorVersion uint8
	MinorVersion uint8
	HeapSizes    uint8
	Valid        uint64
	Sorted       uint64
}

// Stream represents a parsed "#~" table stream. It only indexes the table
// layout; rows are decoded on demand.
type Stream struct {
	Header Header

	rows    [NumTables]uint32
	rowSize [NumTables]int
	offset  [NumTables]int

	stringWidth int
	guidWidth   int
	blobWidth   int

	data []byte
}

// ParseStream parses the "#~" table stream from raw data.
func ParseStream(data []byte) (*Stream, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeader
	}

	r := stream.NewReader(data)
	s := &Stream{data: data}

	if err := s.parseHeader(r); err != nil {
		return nil, err
	}

	s.computeLayout(r.Offset())

	last := s.offset[NumTables-1] + int(s.rows[NumTables-1])*s.rowSize[NumTables-1]
	if last > len(data) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, last, len(data))
	}

	return s, nil
}

func (s *Stream) parseHeader(r *stream.Reader) error {
	if _, err := r.ReadU32(); err != nil { // reserved
		return err
	}

	var err error
	if s.Header.MajorVersion, err = r.ReadU8(); err != nil {
		return err
	}
	if s.Header.MinorVersion, err = r.ReadU8(); err != nil {
		return err
	}
	if s.Header.HeapSizes, err = r.ReadU8(); err != nil {
		return err
	}
	if _, err = r.ReadU8(); err != nil { // reserved
		return err
	}
	if s.Header.Valid, err = r.ReadU64(); err != nil {
		return err
	}
	if s.Header.Sorted, err = r.ReadU64(); err != nil {
		return err
	}

	if s.Header.Valid>>NumTables != 0 {
		return fmt.Errorf("%w: valid mask 0x%016x", ErrUnknownTable, s.Header.Valid)
	}

	for id := TableID(0); id < NumTables; id++ {
		if s.Header.Valid&(1<<id) == 0 {
			continue
		}
		n, err := r.ReadU32()
		if err != nil {
			return fmt.Errorf("%w: row counts", ErrInvalidHeader)
		}
		s.rows[id] = n
	}

	if s.Header.HeapSizes&heapExtraData != 0 {
		if err := r.Skip(4); err != nil {
			return err
		}
	}

	s.stringWidth = heapWidth(s.Header.HeapSizes, HeapStringWide)
	s.guidWidth = heapWidth(s.Header.HeapSizes, HeapGUIDWide)
	s.blobWidth = heapWidth(s.Header.HeapSizes, HeapBlobWide)

	return nil
}

func heapWidth(flags, bit uint8) int {
	if flags&bit != 0 {
		return 4
	}
	return 2
}

func (s *Stream) computeLayout(start int) {
	pos := start
	for id := TableID(0); id < NumTables; id++ {
		size := 0
		for _, col := range schema[id] {
			size += s.columnWidth(col)
		}
		s.rowSize[id] = size
		s.offset[id] = pos
		pos += size * int(s.rows[id])
	}
}

func (s *Stream) columnWidth(col column) int {
	switch col.kind {
	case colFixed:
		return col.size
	case colString:
		return s.stringWidth
	case colGUID:
		return s.guidWidth
	case colBlob:
		return s.blobWidth
	case colTable:
		if s.rows[col.table] < 1<<16 {
			return 2
		}
		return 4
	case colCoded:
		return s.codedWidth(col.coded)
	}
	return 0
}

func (s *Stream) codedWidth(c *CodedIndex) int {
	var maxRows uint32
	for _, t := range c.Tables {
		if t != noTable && s.rows[t] > maxRows {
			maxRows = s.rows[t]
		}
	}
	if maxRows < 1<<(16-c.Bits) {
		return 2
	}
	return 4
}

// RowCount returns the number of rows in a table.
func (s *Stream) RowCount(id TableID) uint32 {
	if id >= NumTables {
		return 0
	}
	return s.rows[id]
}

// PresentTables returns the number of tables with at least one row.
func (s *Stream) PresentTables() int {
	return bits.OnesCount64(s.Header.Valid)
}

// Row decodes the raw column values of row rid (1-based) in table id.
// Fixed-width columns are returned as their integer value, heap and table
// columns as the raw index and coded columns undecoded.
func (s *Stream) Row(id TableID, rid uint32) ([]uint32, error) {
	if id >= NumTables {
		return nil, ErrUnknownTable
	}
	if rid == 0 || rid > s.rows[id] {
		return nil, &ParseError{Table: id, Row: rid, Err: ErrRowOutOfRange}
	}

	start := s.offset[id] + int(rid-1)*s.rowSize[id]
	r, err := stream.NewReader(s.data).Slice(start, s.rowSize[id])
	if err != nil {
		return nil, &ParseError{Table: id, Row: rid, Err: ErrTruncated}
	}

	cols := schema[id]
	values := make([]uint32, len(cols))
	for i, col := range cols {
		v, err := r.ReadIndex(s.columnWidth(col))
		if err != nil {
			return nil, &ParseError{Table: id, Row: rid, Err: err}
		}
		values[i] = v
	}
	return values, nil
}

// DecodeCoded splits a coded index value into the target table and row.
// A row of 0 denotes a null reference.
func DecodeCoded(c *CodedIndex, value uint32) (TableID, uint32, error) {
	tag := value & (1<<c.Bits - 1)
	if int(tag) >= len(c.Tables) || c.Tables[tag] == noTable {
		return 0, 0, fmt.Errorf("tables: invalid %s tag %d", c.Name, tag)
	}
	return c.Tables[tag], value >> c.Bits, nil
}

// EncodeCoded builds a coded index value from a table and row.
func EncodeCoded(c *CodedIndex, table TableID, rid uint32) (uint32, error) {
	for tag, t := range c.Tables {
		if t == table {
			return rid<<c.Bits | uint32(tag), nil
		}
	}
	return 0, fmt.Errorf("tables: %s cannot reference %s", c.Name, table)
}

// RowRange returns the half-open row range [first, end) owned by row rid of
// a parent table whose list column points into child. The range ends where
// the next parent row's list starts, or at the end of the child table.
func (s *Stream) RowRange(parent TableID, rid uint32, listColumn int, child TableID) (uint32, uint32, error) {
	row, err := s.Row(parent, rid)
	if err != nil {
		return 0, 0, err
	}
	first := row[listColumn]

	end := s.rows[child] + 1
	if rid < s.rows[parent] {
		next, err := s.Row(parent, rid+1)
		if err != nil {
			return 0, 0, err
		}
		end = next[listColumn]
	}

	if first == 0 {
		first = end
	}
	if first > end {
		return 0, 0, &ParseError{Table: parent, Row: rid, Err: ErrRowOutOfRange}
	}
	if end > s.rows[child]+1 {
		end = s.rows[child] + 1
	}
	if first > end {
		first = end
	}
	return first, end, nil
}
