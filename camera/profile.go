// Package camera locates and decodes the in-game camera structure inside an
// emulator's guest RAM image: signature scanning for candidates, numeric
// validation to promote exactly one, and typed access to its angle fields.
package camera

import (
	"fmt"
	"math"

	"psplook/process"
	"psplook/process/memory_map"
)

// Profile is the per-game-build constant table: how to recognize the build,
// where the camera structure hides, and what its fields look like when sane.
// Offsets are guest offsets (relative to the guest RAM base); the guest is a
// 32-bit little-endian machine whose pointers carry the 0x08000000 RAM base.
type Profile struct {
	Name         string
	GameID       string   // tag expected somewhere in guest RAM, e.g. a serial
	ProcessNames []string // ordered host executable candidates

	// Signature anchors the camera-base pointer slot; PtrSlotOff is the
	// offset from a signature match to the u32 slot holding the guest
	// pointer to the camera block.
	Signature  process.AOB
	PtrSlotOff int64

	// KnownPtrSlot is the build's documented guest offset of the pointer
	// slot, used as a fallback candidate when the signature finds nothing
	// (zero means no fallback). It is validated like any scan match.
	KnownPtrSlot uint64

	// PtrAdjust rebases a raw guest pointer into a guest offset.
	PtrAdjust uint32

	// Field offsets from the camera block base.
	YawOff   int64
	PitchOff int64
	FovOff   int64

	// Plausibility bounds for validation scoring.
	YawBound   float32 // |yaw| must stay near the wrap range
	PitchBound float32 // the game's own clamp limit
	FovMin     float32
	FovMax     float32

	// MinScore is the validation threshold; one point per passing field.
	MinScore int
}

// Angles is one decoded view of the camera block's float fields.
type Angles struct {
	Yaw   float32
	Pitch float32
	Fov   float32
}

// score counts passing plausibility checks. NaN and Inf always fail.
func (p *Profile) score(a Angles) int {
	s := 0
	if finite(a.Yaw) && abs32(a.Yaw) <= p.YawBound {
		s++
	}
	if finite(a.Pitch) && abs32(a.Pitch) <= p.PitchBound+0.01 {
		s++
	}
	if finite(a.Fov) && a.Fov > p.FovMin && a.Fov < p.FovMax {
		s++
	}
	return s
}

// Plausible reports whether a decoded view still looks like the camera.
// Used by the injection loop's read-before-write check.
func (p *Profile) Plausible(a Angles) bool {
	return p.score(a) >= p.MinScore
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// Camera is the single confirmed structure promoted by validation. Base is
// the absolute host address of the camera block; all writes go through it
// until a failure or implausible re-read discards it.
type Camera struct {
	Profile *Profile
	Region  memory_map.Region
	Base    process.Address
}

func (c *Camera) yawAddr() process.Address   { return c.Base + process.Address(c.Profile.YawOff) }
func (c *Camera) pitchAddr() process.Address { return c.Base + process.Address(c.Profile.PitchOff) }
func (c *Camera) fovAddr() process.Address   { return c.Base + process.Address(c.Profile.FovOff) }

// Read decodes the current angle fields.
func (c *Camera) Read(mem process.Memory) (Angles, error) {
	var a Angles
	var err error
	if a.Yaw, err = process.ReadFloat32(mem, c.yawAddr()); err != nil {
		return a, err
	}
	if a.Pitch, err = process.ReadFloat32(mem, c.pitchAddr()); err != nil {
		return a, err
	}
	if a.Fov, err = process.ReadFloat32(mem, c.fovAddr()); err != nil {
		return a, err
	}
	return a, nil
}

// WriteAngles stores new yaw and pitch values. FOV is never written.
func (c *Camera) WriteAngles(mem process.Memory, yaw, pitch float32) error {
	if err := process.WriteFloat32(mem, c.yawAddr(), yaw); err != nil {
		return err
	}
	return process.WriteFloat32(mem, c.pitchAddr(), pitch)
}

// Builtin profiles, keyed by name.

func mustAOB(s string) process.AOB {
	aob, err := process.ParseAOB(s)
	if err != nil {
		panic(fmt.Sprintf("bad builtin signature %q: %v", s, err))
	}
	return aob
}

var builtins = map[string]*Profile{
	// Medal of Honor Heroes, ULUS-10141 build. The signature matches the
	// default-FOV constant that sits four bytes before the camera-manager
	// pointer slot; 08&fe accepts both 0x08xxxxxx and 0x09xxxxxx guest
	// pointers.
	"mohh1": {
		Name:         "mohh1",
		GameID:       "ULUS-1014",
		ProcessNames: []string{"PPSSPPSDL", "PPSSPPQt", "ppsspp"},
		Signature:    mustAOB("00 00 28 42 ?? ?? ?? 08&fe"),
		PtrSlotOff:   4,
		KnownPtrSlot: 0xD8361C,
		PtrAdjust:    0x08000000,
		YawOff:       0x1A4,
		PitchOff:     0x188,
		FovOff:       0x1E8,
		YawBound:     3.2,
		PitchBound:   1.483529806,
		FovMin:       1.0,
		FovMax:       179.0,
		MinScore:     3,
	},
}

// Builtin returns a builtin profile by name.
func Builtin(name string) (*Profile, error) {
	p, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown camera profile %q", name)
	}
	return p, nil
}
