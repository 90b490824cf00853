package process

import (
	"encoding/binary"
	"math"

	"psplook/process/memory_map"
)

// Memory is the handle used for all reads and writes against the host
// process. Implementations must be safe for polling: every method may fail
// with ErrMemoryIO once the process is gone, and callers re-acquire a fresh
// handle instead of retrying on the dead one.
type Memory interface {
	// PID returns the process ID the handle is bound to
	PID() ProcessID

	// Alive reports whether the process still exists
	Alive() bool

	// Regions enumerates the current memory map; never cached across calls
	Regions() ([]memory_map.Region, error)

	// ReadMemory reads size bytes at addr
	ReadMemory(addr Address, size Size) ([]byte, error)

	// WriteMemory writes data at addr
	WriteMemory(addr Address, data []byte) error

	// Close releases the handle
	Close() error
}

// Typed accessors over Memory. The guest is little-endian regardless of the
// host, so these decode explicitly instead of going through unsafe.

func ReadUint32(m Memory, addr Address) (uint32, error) {
	data, err := m.ReadMemory(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

func ReadFloat32(m Memory, addr Address) (float32, error) {
	bits, err := ReadUint32(m, addr)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func WriteFloat32(m Memory, addr Address, v float32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	return m.WriteMemory(addr, buf[:])
}
