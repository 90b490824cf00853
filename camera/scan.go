package camera

import (
	"psplook/process"
	"psplook/process/memory_map"
)

// scanChunkSize keeps each process_vm_readv call large enough that a 32 MiB
// region is covered in a few dozen syscalls; per-byte reads would make
// discovery take minutes instead of well under a second.
const scanChunkSize = 1 << 20

// ScanRegion searches one region for the pattern and returns the matching
// absolute addresses in ascending order. Chunks that fail to read are
// treated as "no match there" rather than an error: guest memory can be
// paged out or remapped by the host while we scan. The result is computed
// fresh from region content; rescanning requires a new call.
func ScanRegion(mem process.Memory, region memory_map.Region, aob process.AOB) []process.Address {
	patLen := aob.Len()
	if patLen == 0 || uint64(patLen) > uint64(region.Size) {
		return nil
	}

	var matches []process.Address

	// Chunks overlap by patLen-1 bytes so matches spanning a boundary are
	// seen exactly once: only offsets below scanChunkSize are reported per
	// chunk.
	for off := uint64(0); off < uint64(region.Size); off += scanChunkSize {
		readLen := uint64(scanChunkSize + patLen - 1)
		if off+readLen > uint64(region.Size) {
			readLen = uint64(region.Size) - off
		}
		if readLen < uint64(patLen) {
			break
		}

		data, err := mem.ReadMemory(process.Address(region.Start+off), process.Size(readLen))
		if err != nil {
			continue
		}

		limit := len(data) - patLen
		for i := 0; i <= limit; i++ {
			if i >= scanChunkSize {
				break // overlap belongs to the next chunk
			}
			if aob.MatchAt(data, i) {
				matches = append(matches, process.Address(region.Start+off+uint64(i)))
			}
		}
	}

	return matches
}

// regionContainsTag reports whether the byte tag occurs anywhere in the
// region. Used for build detection before camera scanning.
func regionContainsTag(mem process.Memory, region memory_map.Region, tag string) bool {
	if tag == "" {
		return true
	}
	aob := process.ExactAOB([]byte(tag))

	patLen := aob.Len()
	for off := uint64(0); off < uint64(region.Size); off += scanChunkSize {
		readLen := uint64(scanChunkSize + patLen - 1)
		if off+readLen > uint64(region.Size) {
			readLen = uint64(region.Size) - off
		}
		if readLen < uint64(patLen) {
			break
		}

		data, err := mem.ReadMemory(process.Address(region.Start+off), process.Size(readLen))
		if err != nil {
			continue
		}
		limit := len(data) - patLen
		for i := 0; i <= limit; i++ {
			if aob.MatchAt(data, i) {
				return true
			}
		}
	}
	return false
}

// DetectProfile returns the first profile whose game-ID tag is present in
// the region. Profiles are tried in the given order.
func DetectProfile(mem process.Memory, region memory_map.Region, profiles []*Profile) (*Profile, error) {
	for _, p := range profiles {
		if regionContainsTag(mem, region, p.GameID) {
			return p, nil
		}
	}
	return nil, process.ErrNoValidCandidate
}
