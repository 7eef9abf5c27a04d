package clr

import (
	"debug/pe"
	"fmt"
	"io"
	"os"
)

// File represents an opened managed image.
// It is safe for concurrent read access after opening.
type File struct {
	closer   io.Closer // may be nil if data doesn't need closing
	header   *CLIHeader
	metadata []byte
	root     *Root
}

// Open opens a managed PE image from the given path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("clr: failed to open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("clr: failed to stat file: %w", err)
	}

	file, err := NewFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, err
	}

	file.closer = f
	return file, nil
}

// NewFile reads a managed PE image from an io.ReaderAt.
// The caller is responsible for closing the underlying reader if needed.
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	img, err := pe.NewFile(io.NewSectionReader(normalizeMachine(r, size), 0, size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPE, err)
	}
	defer img.Close()

	dir, ok := comDescriptor(img)
	if !ok || dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil, ErrNoCLIHeader
	}

	raw, err := readRVA(img, dir.VirtualAddress, dir.Size)
	if err != nil {
		return nil, fmt.Errorf("clr: failed to read CLI header: %w", err)
	}
	header, err := ReadCLIHeader(raw)
	if err != nil {
		return nil, err
	}

	md, err := readRVA(img, header.MetaData.VirtualAddress, header.MetaData.Size)
	if err != nil {
		return nil, fmt.Errorf("clr: failed to read metadata: %w", err)
	}

	file, err := OpenMetadata(md)
	if err != nil {
		return nil, err
	}
	file.header = header
	return file, nil
}

// OpenMetadata opens a bare metadata blob that starts with the metadata root.
func OpenMetadata(data []byte) (*File, error) {
	root, err := ReadRoot(data)
	if err != nil {
		return nil, err
	}
	return &File{metadata: data, root: root}, nil
}

// Close releases resources associated with the image.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// Header returns the CLI header, or nil when the file was opened from a bare
// metadata blob.
func (f *File) Header() *CLIHeader {
	return f.header
}

// Root returns the parsed metadata root.
func (f *File) Root() *Root {
	return f.root
}

// MetadataSize returns the size of the metadata section in bytes.
func (f *File) MetadataSize() int {
	return len(f.metadata)
}

// HasStream reports whether the named stream is present.
func (f *File) HasStream(name string) bool {
	_, ok := f.root.Stream(name)
	return ok
}

// ReadStream returns the contents of the named metadata stream.
// The returned slice aliases the metadata and must not be modified.
func (f *File) ReadStream(name string) ([]byte, error) {
	h, ok := f.root.Stream(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStreamNotFound, name)
	}
	return f.metadata[h.Offset : h.Offset+h.Size], nil
}

func comDescriptor(img *pe.File) (pe.DataDirectory, bool) {
	const entry = pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR

	switch oh := img.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > entry {
			return oh.DataDirectory[entry], true
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > entry {
			return oh.DataDirectory[entry], true
		}
	}
	return pe.DataDirectory{}, false
}

// readRVA reads size bytes at a relative virtual address through the section table.
func readRVA(img *pe.File, rva, size uint32) ([]byte, error) {
	for _, s := range img.Sections {
		extent := s.VirtualSize
		if s.Size > extent {
			extent = s.Size
		}
		if rva < s.VirtualAddress || rva >= s.VirtualAddress+extent {
			continue
		}

		off := rva - s.VirtualAddress
		if uint64(off)+uint64(size) > uint64(s.Size) {
			return nil, fmt.Errorf("%w: 0x%x+0x%x overruns section %s", ErrBadRVA, rva, size, s.Name)
		}
		buf := make([]byte, size)
		if _, err := s.ReadAt(buf, int64(off)); err != nil {
			return nil, fmt.Errorf("clr: failed to read section %s: %w", s.Name, err)
		}
		return buf, nil
	}
	return nil, fmt.Errorf("%w: 0x%x", ErrBadRVA, rva)
}
