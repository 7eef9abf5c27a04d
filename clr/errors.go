// Package clr locates and reads the CLI metadata of managed PE images
// (ECMA-335 Partition II, sections 24 and 25).
package clr

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrNotPE indicates the file is not a PE image.
	ErrNotPE = errors.New("clr: not a PE image")

	// ErrNoCLIHeader indicates a PE image without managed metadata.
	ErrNoCLIHeader = errors.New("clr: image has no CLI header")

	// ErrInvalidMetadata indicates a corrupted metadata root or stream table.
	ErrInvalidMetadata = errors.New("clr: invalid metadata")

	// ErrBadRVA indicates an RVA that no section maps.
	ErrBadRVA = errors.New("clr: RVA not mapped by any section")

	// ErrStreamNotFound indicates a missing metadata stream.
	ErrStreamNotFound = errors.New("clr: metadata stream not found")
)
