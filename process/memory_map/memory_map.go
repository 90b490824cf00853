// Package memory_map models a process's mapped memory regions and selects
// the one that plausibly holds an emulator's guest RAM image.
package memory_map

import (
	"errors"
	"fmt"
)

// ErrRegionNotFound is re-exported as process.ErrRegionNotFound; it lives
// here because this package cannot import process without a cycle.
var ErrRegionNotFound = errors.New("guest RAM region not found")

// Region represents a memory region in a process's address space
type Region struct {
	Start uint64 // starting address of the region
	Size  uint   // size in bytes
	Perms string // e.g. "rw-p"
	Path  string // backing file, empty for anonymous mappings
}

func (r Region) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s", r.Start, r.Size, r.Perms)
}

func (r Region) End() uint64 {
	return r.Start + uint64(r.Size)
}

func (r Region) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End()
}

func (r Region) IsReadable() bool {
	return len(r.Perms) > 0 && r.Perms[0] == 'r'
}

func (r Region) IsWritable() bool {
	return len(r.Perms) > 1 && r.Perms[1] == 'w'
}

// IsAnonymous reports whether the region is a plain anonymous mapping.
// Emulators mmap guest RAM anonymously, so file-backed regions and kernel
// pseudo-paths like [heap] or [stack] never qualify.
func (r Region) IsAnonymous() bool {
	return r.Path == ""
}

// GuestHeuristic is the size/permission predicate for picking the guest RAM
// image out of a region list.
type GuestHeuristic struct {
	// ExpectedSizes are the guest RAM sizes to look for, in bytes.
	ExpectedSizes []uint64
	// Tolerance is the relative size deviation accepted per expected size,
	// e.g. 0.1 for 10%. Mappings are often rounded up by the allocator.
	Tolerance float64
}

// DefaultGuestHeuristic matches the 32 MiB PSP main RAM image with 10%
// rounding tolerance.
func DefaultGuestHeuristic() GuestHeuristic {
	return GuestHeuristic{
		ExpectedSizes: []uint64{32 * 1024 * 1024},
		Tolerance:     0.1,
	}
}

func (h GuestHeuristic) matches(size uint64) bool {
	for _, want := range h.ExpectedSizes {
		diff := float64(size) - float64(want)
		if diff < 0 {
			diff = -diff
		}
		if diff <= float64(want)*h.Tolerance {
			return true
		}
	}
	return false
}

// FindGuestRAM selects the region most likely to be the guest RAM image:
// the largest readable+writable anonymous region whose size matches one of
// the expected sizes within tolerance. Returns ErrRegionNotFound when no
// region satisfies the predicate; callers retry discovery after a delay, the
// heuristic itself never retries.
func FindGuestRAM(regions []Region, h GuestHeuristic) (Region, error) {
	var best Region
	found := false
	for _, r := range regions {
		if !r.IsReadable() || !r.IsWritable() || !r.IsAnonymous() {
			continue
		}
		if !h.matches(uint64(r.Size)) {
			continue
		}
		if !found || r.Size > best.Size {
			best = r
			found = true
		}
	}
	if !found {
		return Region{}, ErrRegionNotFound
	}
	return best, nil
}

// RegionForAddress returns the region containing addr, or nil.
func RegionForAddress(addr uint64, regions []Region) *Region {
	for i := range regions {
		if regions[i].Contains(addr) {
			return &regions[i]
		}
	}
	return nil
}
