package clr

import (
	"fmt"

	"github.com/skdltmxn/nettype-go/internal/stream"
)

// MetadataSignature is the magic value at the start of the metadata root ("BSJB").
const MetadataSignature uint32 = 0x424A5342

// Well-known stream names.
const (
	StreamTables       = "#~"
	StreamTablesUncomp = "#-"
	StreamStrings      = "#Strings"
	StreamUserStrings  = "#US"
	StreamBlob         = "#Blob"
	StreamGUID         = "#GUID"
)

// maxVersionLength bounds the version string in the metadata root (II.24.2.1).
const maxVersionLength = 255

// StreamHeader locates one metadata stream relative to the metadata root.
type StreamHeader struct {
	Offset uint32
	Size   uint32
	Name   string
}

// Root is the parsed metadata root (ECMA-335 II.24.2.1).
type Root struct {
	MajorVersion uint16
	MinorVersion uint16
	// Version is the runtime version string, e.g. "v4.0.30319".
	Version string
	Flags   uint16
	Streams []StreamHeader
}

// ReadRoot parses the metadata root at the start of data and validates that
// every stream lies within data.
func ReadRoot(data []byte) (*Root, error) {
	r := stream.NewReader(data)

	sig, err := r.ReadU32()
	if err != nil {
		return nil, ErrInvalidMetadata
	}
	if sig != MetadataSignature {
		return nil, fmt.Errorf("%w: signature 0x%08X", ErrInvalidMetadata, sig)
	}

	root := &Root{}
	if root.MajorVersion, err = r.ReadU16(); err != nil {
		return nil, ErrInvalidMetadata
	}
	if root.MinorVersion, err = r.ReadU16(); err != nil {
		return nil, ErrInvalidMetadata
	}
	if err := r.Skip(4); err != nil { // reserved
		return nil, ErrInvalidMetadata
	}

	length, err := r.ReadU32()
	if err != nil || length > maxVersionLength+1 {
		return nil, fmt.Errorf("%w: bad version length", ErrInvalidMetadata)
	}
	if root.Version, err = r.ReadFixedString(int(length)); err != nil {
		return nil, ErrInvalidMetadata
	}
	r.Align(4)

	if root.Flags, err = r.ReadU16(); err != nil {
		return nil, ErrInvalidMetadata
	}
	count, err := r.ReadU16()
	if err != nil {
		return nil, ErrInvalidMetadata
	}

	root.Streams = make([]StreamHeader, 0, count)
	for i := 0; i < int(count); i++ {
		var h StreamHeader
		if h.Offset, err = r.ReadU32(); err != nil {
			return nil, fmt.Errorf("%w: stream header %d", ErrInvalidMetadata, i)
		}
		if h.Size, err = r.ReadU32(); err != nil {
			return nil, fmt.Errorf("%w: stream header %d", ErrInvalidMetadata, i)
		}
		if h.Name, err = r.ReadPaddedCString(); err != nil {
			return nil, fmt.Errorf("%w: stream header %d", ErrInvalidMetadata, i)
		}
		if uint64(h.Offset)+uint64(h.Size) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: stream %s extends past metadata", ErrInvalidMetadata, h.Name)
		}
		root.Streams = append(root.Streams, h)
	}

	return root, nil
}

// Stream returns the header of the named stream.
func (r *Root) Stream(name string) (StreamHeader, bool) {
	for _, h := range r.Streams {
		if h.Name == name {
			return h, true
		}
	}
	return StreamHeader{}, false
}
