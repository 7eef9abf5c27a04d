// Package metadata models the declared shape of a compiled type library and
// provides it through the Provider interface, either read from a managed
// binary or decoded from a YAML manifest.
package metadata

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrAssemblyNotFound indicates the binary unit path does not exist.
	ErrAssemblyNotFound = errors.New("metadata: assembly not found")

	// ErrAssemblyLoad indicates the binary unit exists but could not be read.
	ErrAssemblyLoad = errors.New("metadata: failed to load assembly")

	// ErrTypeNotFound indicates no declared type has the requested full name.
	ErrTypeNotFound = errors.New("metadata: type not found")

	// ErrClosed indicates the assembly has been closed.
	ErrClosed = errors.New("metadata: assembly is closed")
)
