package metadata

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Unit is a loaded binary unit.
type Unit interface {
	Provider
	io.Closer

	// Name returns the unit name, possibly empty.
	Name() string
}

// Load opens path as a YAML manifest when it has a .yaml or .yml extension
// and as a managed image otherwise. Errors match ErrAssemblyNotFound or
// ErrAssemblyLoad.
func Load(path string) (Unit, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadManifestFile(path)
	default:
		return Open(path)
	}
}

func loadManifestFile(path string) (Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrAssemblyNotFound, path, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrAssemblyLoad, path, err)
	}
	defer f.Close()

	s, err := LoadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssemblyLoad, path, err)
	}
	return s, nil
}
