package camera

import (
	"fmt"

	"psplook/process"
	"psplook/process/memory_map"
)

// candidate is a transient scored view of one pointer-slot location; it
// lives only long enough to be compared against the others.
type candidate struct {
	slot   process.Address // host address of the u32 pointer slot
	base   process.Address // host address of the camera block
	angles Angles
	score  int
}

// Locate runs the full discovery for one profile against the guest region:
// signature scan, fallback slot, decode, score, promote. Exactly one Camera
// is returned; ties on score are broken by scan order (first match wins) so
// repeated runs on the same image pick the same candidate. Returns
// process.ErrNoValidCandidate when no candidate reaches the profile's
// threshold.
func Locate(mem process.Memory, region memory_map.Region, p *Profile) (*Camera, error) {
	slots := make([]process.Address, 0, 4)
	for _, m := range ScanRegion(mem, region, p.Signature) {
		slots = append(slots, m+process.Address(p.PtrSlotOff))
	}
	if p.KnownPtrSlot != 0 && p.KnownPtrSlot+4 <= uint64(region.Size) {
		slots = append(slots, process.Address(region.Start+p.KnownPtrSlot))
	}

	var best *candidate
	for _, slot := range slots {
		c, err := decodeCandidate(mem, region, p, slot)
		if err != nil {
			continue // unreadable or out-of-region pointer: not a candidate
		}
		if best == nil || c.score > best.score {
			best = c
		}
	}

	if best == nil || best.score < p.MinScore {
		return nil, fmt.Errorf("profile %s: %d slots tried: %w", p.Name, len(slots), process.ErrNoValidCandidate)
	}

	cam := &Camera{Profile: p, Region: region, Base: best.base}
	return cam, nil
}

// decodeCandidate dereferences one pointer slot and scores the record behind
// it. The pointer must land inside the guest region with room for every
// field; that gate is mandatory, the float checks only contribute score.
func decodeCandidate(mem process.Memory, region memory_map.Region, p *Profile, slot process.Address) (*candidate, error) {
	raw, err := process.ReadUint32(mem, slot)
	if err != nil {
		return nil, err
	}
	if raw < p.PtrAdjust {
		return nil, fmt.Errorf("pointer %#x below guest base", raw)
	}

	guestOff := uint64(raw - p.PtrAdjust)
	maxOff := max64(p.YawOff, p.PitchOff, p.FovOff)
	if guestOff+uint64(maxOff)+4 > uint64(region.Size) {
		return nil, fmt.Errorf("pointer %#x outside guest region", raw)
	}

	c := &candidate{
		slot: slot,
		base: process.Address(region.Start + guestOff),
	}

	cam := Camera{Profile: p, Region: region, Base: c.base}
	c.angles, err = cam.Read(mem)
	if err != nil {
		return nil, err
	}
	c.score = p.score(c.angles)

	return c, nil
}

func max64(vals ...int64) int64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
