package tables

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/nettype-go/internal/stream"
)

// ErrHeapIndex indicates a heap index outside the heap bounds.
var ErrHeapIndex = errors.New("tables: heap index out of range")

// StringHeap is the "#Strings" heap: null-terminated UTF-8 strings
// addressed by byte offset.
type StringHeap []byte

// At returns the string starting at offset off. Offset 0 is the empty string.
func (h StringHeap) At(off uint32) (string, error) {
	if off == 0 {
		return "", nil
	}
	if int(off) >= len(h) {
		return "", fmt.Errorf("%w: #Strings offset 0x%x", ErrHeapIndex, off)
	}
	r := stream.NewReader(h)
	_ = r.SetOffset(int(off))
	s, err := r.ReadCString()
	if err != nil {
		return "", fmt.Errorf("%w: unterminated string at 0x%x", ErrHeapIndex, off)
	}
	return s, nil
}

// BlobHeap is the "#Blob" heap: length-prefixed byte runs addressed by
// byte offset, the length being a compressed unsigned integer.
type BlobHeap []byte

// At returns the blob starting at offset off without copying.
func (h BlobHeap) At(off uint32) ([]byte, error) {
	if off == 0 {
		return nil, nil
	}
	if int(off) >= len(h) {
		return nil, fmt.Errorf("%w: #Blob offset 0x%x", ErrHeapIndex, off)
	}
	r := stream.NewReader(h)
	_ = r.SetOffset(int(off))
	n, err := r.ReadCompressedU32()
	if err != nil {
		return nil, fmt.Errorf("%w: bad blob length at 0x%x: %v", ErrHeapIndex, off, err)
	}
	b, err := r.ReadBytesRef(int(n))
	if err != nil {
		return nil, fmt.Errorf("%w: blob at 0x%x overruns heap", ErrHeapIndex, off)
	}
	return b, nil
}

// GUIDHeap is the "#GUID" heap: 16-byte entries addressed by 1-based index.
type GUIDHeap []byte

// At returns the GUID at index i. Index 0 is the null GUID.
func (h GUIDHeap) At(i uint32) ([16]byte, error) {
	var g [16]byte
	if i == 0 {
		return g, nil
	}
	start := int(i-1) * 16
	if start+16 > len(h) {
		return g, fmt.Errorf("%w: #GUID index %d", ErrHeapIndex, i)
	}
	copy(g[:], h[start:start+16])
	return g, nil
}
