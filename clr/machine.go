package clr

import (
	"debug/pe"
	"encoding/binary"
	"io"
)

// ReadyToRun images store the COFF machine XOR-ed with a value naming the
// target OS. debug/pe rejects those values, so they are mapped back first.
var machineSalts = []uint16{
	0x7B79, // Linux
	0x4644, // Apple
	0xADC4, // FreeBSD
	0x1993, // NetBSD
	0x1992, // SunOS
}

var targetMachines = map[uint16]bool{
	pe.IMAGE_FILE_MACHINE_I386:  true,
	pe.IMAGE_FILE_MACHINE_AMD64: true,
	pe.IMAGE_FILE_MACHINE_ARMNT: true,
	pe.IMAGE_FILE_MACHINE_ARM64: true,
}

// machineReader presents an image whose COFF machine field reads as machine.
type machineReader struct {
	r       io.ReaderAt
	off     int64
	machine [2]byte
}

func (m *machineReader) ReadAt(p []byte, off int64) (int, error) {
	n, err := m.r.ReadAt(p, off)
	for i, b := range m.machine {
		if pos := m.off + int64(i) - off; pos >= 0 && pos < int64(n) {
			p[pos] = b
		}
	}
	return n, err
}

// normalizeMachine returns r, or a view of r with a ReadyToRun machine
// field replaced by the plain machine it encodes.
func normalizeMachine(r io.ReaderAt, size int64) io.ReaderAt {
	var lfanew [4]byte
	if _, err := r.ReadAt(lfanew[:], 0x3c); err != nil {
		return r
	}
	peOff := int64(binary.LittleEndian.Uint32(lfanew[:]))
	if peOff+6 > size {
		return r
	}

	var hdr [6]byte
	if _, err := r.ReadAt(hdr[:], peOff); err != nil {
		return r
	}
	if string(hdr[:4]) != "PE\x00\x00" {
		return r
	}

	machine := binary.LittleEndian.Uint16(hdr[4:])
	if targetMachines[machine] {
		return r
	}
	for _, salt := range machineSalts {
		if plain := machine ^ salt; targetMachines[plain] {
			m := &machineReader{r: r, off: peOff + 4}
			binary.LittleEndian.PutUint16(m.machine[:], plain)
			return m
		}
	}
	return r
}
