package metadata

// Provider exposes the declared types of one binary unit. Implementations
// are deterministic: repeated calls return the same types in the same order.
type Provider interface {
	// Types returns the declared types in declaration order.
	Types() ([]*Type, error)

	// LookupType returns the type with the given full name.
	LookupType(fullName string) (*Type, error)
}
