// Package stream provides binary reading utilities for CLI metadata parsing.
package stream

import (
	"encoding/binary"
	"errors"
)

// Errors returned by Reader
var (
	ErrUnexpectedEOF     = errors.New("stream: unexpected end of data")
	ErrNegativeOffset    = errors.New("stream: negative offset")
	ErrInvalidCompressed = errors.New("stream: invalid compressed integer")
	ErrInvalidWidth      = errors.New("stream: invalid index width")
)

// Reader provides methods for reading binary data from metadata streams.
// All multi-byte values are read in little-endian order.
type Reader struct {
	data   []byte
	offset int
}

// NewReader creates a Reader from a byte slice.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, offset: 0}
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.offset
}

// SetOffset sets the read position.
func (r *Reader) SetOffset(offset int) error {
	if offset < 0 {
		return ErrNegativeOffset
	}
	r.offset = offset
	return nil
}

// Remaining returns the number of bytes remaining.
func (r *Reader) Remaining() int {
	if r.offset >= len(r.data) {
		return 0
	}
	return len(r.data) - r.offset
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.offset+n > len(r.data) {
		return ErrUnexpectedEOF
	}
	r.offset += n
	return nil
}

// Align aligns the read position to the given boundary.
func (r *Reader) Align(alignment int) {
	if alignment <= 1 {
		return
	}
	mod := r.offset % alignment
	if mod != 0 {
		r.offset += alignment - mod
	}
}

// ReadU8 reads an unsigned 8-bit integer.
func (r *Reader) ReadU8() (uint8, error) {
	if r.offset >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := r.data[r.offset]
	r.offset++
	return v, nil
}

// ReadU16 reads an unsigned 16-bit integer.
func (r *Reader) ReadU16() (uint16, error) {
	if r.offset+2 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

// ReadU32 reads an unsigned 32-bit integer.
func (r *Reader) ReadU32() (uint32, error) {
	if r.offset+4 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

// ReadU64 reads an unsigned 64-bit integer.
func (r *Reader) ReadU64() (uint64, error) {
	if r.offset+8 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return v, nil
}

// ReadIndex reads a table or heap index that is either 2 or 4 bytes wide.
func (r *Reader) ReadIndex(width int) (uint32, error) {
	switch width {
	case 2:
		v, err := r.ReadU16()
		return uint32(v), err
	case 4:
		return r.ReadU32()
	default:
		return 0, ErrInvalidWidth
	}
}

// ReadCompressedU32 reads an ECMA-335 compressed unsigned integer
// (II.23.2): 1, 2 or 4 bytes, big-endian, length encoded in the high bits.
func (r *Reader) ReadCompressedU32() (uint32, error) {
	b0, err := r.ReadU8()
	if err != nil {
		return 0, err
	}

	switch {
	case b0&0x80 == 0:
		return uint32(b0), nil
	case b0&0xC0 == 0x80:
		b1, err := r.ReadU8()
		if err != nil {
			return 0, err
		}
		return uint32(b0&0x3F)<<8 | uint32(b1), nil
	case b0&0xE0 == 0xC0:
		if r.offset+3 > len(r.data) {
			return 0, ErrUnexpectedEOF
		}
		b := r.data[r.offset : r.offset+3]
		r.offset += 3
		return uint32(b0&0x1F)<<24 | uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
	default:
		return 0, ErrInvalidCompressed
	}
}

// ReadBytesRef returns a reference to n bytes without copying.
// The returned slice is only valid as long as the underlying data.
func (r *Reader) ReadBytesRef(n int) ([]byte, error) {
	if n < 0 || r.offset+n > len(r.data) {
		return nil, ErrUnexpectedEOF
	}
	v := r.data[r.offset : r.offset+n]
	r.offset += n
	return v, nil
}

// ReadCString reads a null-terminated string.
func (r *Reader) ReadCString() (string, error) {
	start := r.offset
	for r.offset < len(r.data) {
		if r.data[r.offset] == 0 {
			s := string(r.data[start:r.offset])
			r.offset++ // Skip null terminator
			return s, nil
		}
		r.offset++
	}
	return "", ErrUnexpectedEOF
}

// ReadPaddedCString reads a null-terminated string whose storage, terminator
// included, is padded to a 4-byte boundary relative to the string start.
// Stream headers in the metadata root are laid out this way.
func (r *Reader) ReadPaddedCString() (string, error) {
	start := r.offset
	s, err := r.ReadCString()
	if err != nil {
		return "", err
	}
	used := r.offset - start
	if pad := (4 - used%4) % 4; pad > 0 {
		if err := r.Skip(pad); err != nil {
			return "", err
		}
	}
	return s, nil
}

// ReadFixedString reads a fixed-length string, trimming any null padding.
func (r *Reader) ReadFixedString(n int) (string, error) {
	if n < 0 || r.offset+n > len(r.data) {
		return "", ErrUnexpectedEOF
	}
	data := r.data[r.offset : r.offset+n]
	r.offset += n

	// Trim from the first null
	end := 0
	for end < len(data) && data[end] != 0 {
		end++
	}
	return string(data[:end]), nil
}

// PeekU8 returns the next byte without advancing the position.
func (r *Reader) PeekU8() (uint8, error) {
	if r.offset >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	return r.data[r.offset], nil
}

// Slice returns a new Reader for a subset of the data.
func (r *Reader) Slice(offset, length int) (*Reader, error) {
	if offset < 0 || length < 0 || offset+length > len(r.data) {
		return nil, ErrUnexpectedEOF
	}
	return NewReader(r.data[offset : offset+length]), nil
}
