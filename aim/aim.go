// Package aim turns relative device motion into the game's angular
// representation: FOV-scaled integration, periodic yaw wrap, bounded pitch
// clamp.
package aim

// Angle policy constants for the PSP camera representation.
const (
	// Tau is one full yaw turn in the game's radians. 0x40C90FDB as float32.
	Tau = 6.2831853

	// PitchLimit bounds pitch to just short of straight up/down so the view
	// never gimbal-flips.
	PitchLimit = 1.483529806

	// lookDivisor and lookScale convert device counts into radians; the
	// effective angle per count is sensitivity/lookDivisor/lookScale*fov.
	lookDivisor = 20.0
	lookScale   = 20000.0
)

// State holds the accumulated orientation between ticks. Owned exclusively
// by the injection loop; one writer, never shared.
type State struct {
	Sensitivity float64
	InvertY     bool

	Yaw   float32
	Pitch float32
}

func New(sensitivity float64, invertY bool) *State {
	return &State{Sensitivity: sensitivity, InvertY: invertY}
}

// Seed adopts the game's current orientation as the integration base. The
// guest updates the same fields between our ticks (stick input, scripted
// camera moves), so every tick integrates on top of what is actually there
// rather than on a private accumulator that would fight the game.
func (s *State) Seed(yaw, pitch float32) {
	s.Yaw = yaw
	s.Pitch = pitch
}

// Integrate applies one tick of device motion. Zero motion is a strict
// no-op. The result is already wrapped and clamped; there is no hidden
// windup past PitchLimit, so reversing the input moves pitch back
// immediately.
func (s *State) Integrate(dx, dy float64, fov float32) {
	if dx == 0 && dy == 0 {
		return
	}

	k := s.Sensitivity / lookDivisor / lookScale * float64(fov)
	if s.InvertY {
		dy = -dy
	}

	s.Yaw = WrapYaw(float32(float64(s.Yaw) - dx*k))
	s.Pitch = ClampPitch(float32(float64(s.Pitch) - dy*k))
}

// WrapYaw maps yaw into (-Tau/2, Tau/2] by repeated full turns.
func WrapYaw(yaw float32) float32 {
	for yaw > Tau/2 {
		yaw -= Tau
	}
	for yaw < -Tau/2 {
		yaw += Tau
	}
	return yaw
}

// ClampPitch bounds pitch to [-PitchLimit, PitchLimit].
func ClampPitch(pitch float32) float32 {
	if pitch > PitchLimit {
		return PitchLimit
	}
	if pitch < -PitchLimit {
		return -PitchLimit
	}
	return pitch
}
