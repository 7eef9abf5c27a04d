package clr

import (
	"github.com/skdltmxn/nettype-go/internal/stream"
)

// CLIHeaderSize is the size of the IMAGE_COR20_HEADER structure.
const CLIHeaderSize = 72

// DataDirectory is an RVA/size pair.
type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// CLIHeader is the runtime header of a managed PE image (ECMA-335 II.25.3.3).
type CLIHeader struct {
	Cb                  uint32
	MajorRuntimeVersion uint16
	MinorRuntimeVersion uint16
	MetaData            DataDirectory
	Flags               uint32
	EntryPointToken     uint32
	Resources           DataDirectory
	StrongNameSignature DataDirectory
}

// CLI header flags.
const (
	FlagILOnly           uint32 = 0x00000001
	FlagRequires32Bit    uint32 = 0x00000002
	FlagStrongNameSigned uint32 = 0x00000008
)

// ReadCLIHeader decodes the leading fields of a CLI header.
func ReadCLIHeader(data []byte) (*CLIHeader, error) {
	if len(data) < CLIHeaderSize {
		return nil, ErrNoCLIHeader
	}
	r := stream.NewReader(data)

	h := &CLIHeader{}
	h.Cb, _ = r.ReadU32()
	h.MajorRuntimeVersion, _ = r.ReadU16()
	h.MinorRuntimeVersion, _ = r.ReadU16()
	h.MetaData.VirtualAddress, _ = r.ReadU32()
	h.MetaData.Size, _ = r.ReadU32()
	h.Flags, _ = r.ReadU32()
	h.EntryPointToken, _ = r.ReadU32()
	h.Resources.VirtualAddress, _ = r.ReadU32()
	h.Resources.Size, _ = r.ReadU32()
	h.StrongNameSignature.VirtualAddress, _ = r.ReadU32()
	h.StrongNameSignature.Size, _ = r.ReadU32()

	if h.Cb < CLIHeaderSize || h.MetaData.VirtualAddress == 0 || h.MetaData.Size == 0 {
		return nil, ErrNoCLIHeader
	}
	return h, nil
}
