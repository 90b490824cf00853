// Package input samples relative pointer-device motion. Motion events are
// delivered asynchronously by the device reader; the injection loop consumes
// the accumulated deltas once per tick.
package input

import "sync/atomic"

// Delta is the relative motion accumulated since the previous sample.
// Consumed once and discarded.
type Delta struct {
	DX int64
	DY int64
}

func (d Delta) IsZero() bool {
	return d.DX == 0 && d.DY == 0
}

// Sampler returns the motion accumulated since the last call and resets the
// accumulator. Never blocks; (0,0) when nothing moved.
type Sampler interface {
	Sample() Delta
}

// Accumulator gathers motion from an asynchronous device callback. Sample
// swaps each axis to zero in a single atomic exchange, so events landing
// between the read and the reset cannot be lost; events landing between the
// two axis swaps are simply attributed to the next tick.
type Accumulator struct {
	dx atomic.Int64
	dy atomic.Int64
}

// Add is called from the device reader for every relative motion event.
func (a *Accumulator) Add(dx, dy int64) {
	if dx != 0 {
		a.dx.Add(dx)
	}
	if dy != 0 {
		a.dy.Add(dy)
	}
}

// Sample consumes the accumulated motion.
func (a *Accumulator) Sample() Delta {
	return Delta{
		DX: a.dx.Swap(0),
		DY: a.dy.Swap(0),
	}
}
