// Package injector drives the discovery/injection state machine: find the
// host process, locate the camera structure, then tick-write device-derived
// angles until the target disappears and discovery starts over.
package injector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"psplook/aim"
	"psplook/camera"
	"psplook/input"
	"psplook/process"
	"psplook/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// State of the injection loop.
type State int

const (
	StateDiscovering State = iota
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDiscovering:
		return "discovering"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures a Loop. Attach and Locate exist so tests can substitute
// fake processes; cmd wires the process_linux implementations.
type Options struct {
	Sensitivity float64
	InvertY     bool

	// Tick is the injection period; Backoff the constant delay between
	// discovery attempts. The condition behind a failed discovery is
	// "process/level not ready yet" and resolves on its own, so the delay
	// stays constant rather than exponential.
	Tick    time.Duration
	Backoff time.Duration

	// Profiles are tried in order during build detection.
	Profiles []*camera.Profile

	// ProcessNames overrides the profiles' executable names when non-empty.
	ProcessNames []string

	Heuristic memory_map.GuestHeuristic

	Locate func(names []string) (process.ProcessInfo, error)
	Attach func(pid process.ProcessID) (process.Memory, error)
}

// Loop owns the confirmed camera address and the AimState; there is exactly
// one writer. The host mutates the same fields concurrently from its own
// input path, so each tick is last-writer-wins by design of the technique.
type Loop struct {
	opts    Options
	sampler input.Sampler
	log     *logger.Logger
	warn    *repeatLimiter

	mu    sync.Mutex
	state State
}

func New(opts Options, sampler input.Sampler) (*Loop, error) {
	if opts.Tick <= 0 {
		opts.Tick = 10 * time.Millisecond
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if len(opts.Profiles) == 0 {
		return nil, errors.New("no camera profiles configured")
	}
	if opts.Locate == nil || opts.Attach == nil {
		return nil, errors.New("locate/attach not configured")
	}
	if opts.Heuristic.ExpectedSizes == nil {
		opts.Heuristic = memory_map.DefaultGuestHeuristic()
	}

	return &Loop{
		opts:    opts,
		sampler: sampler,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorLimeGreen, coloransi.ColorOrange, "injector")),
		warn:    newRepeatLimiter(30 * time.Second),
		state:   StateDiscovering,
	}, nil
}

// State returns the loop's current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Run drives the state machine until ctx is cancelled. Every failure inside
// the loop is non-fatal: discovery errors wait one backoff and retry, active
// errors fall back to discovery. Run only returns on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	defer l.setState(StateStopped)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.setState(StateDiscovering)
		mem, cam, err := l.discover(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logDiscoveryFailure(err)
			if !sleepCtx(ctx, l.opts.Backoff) {
				return ctx.Err()
			}
			continue
		}

		l.log.Infoln("Camera locked at", cam.Base.String(), "profile", cam.Profile.Name)
		l.setState(StateActive)
		l.runActive(ctx, mem, cam)
		mem.Close()
	}
}

// discover runs locate → attach → region → build detect → scan+validate,
// checking for cancellation between the sub-steps so shutdown latency stays
// bounded even during a scan-heavy pass.
func (l *Loop) discover(ctx context.Context) (process.Memory, *camera.Camera, error) {
	names := l.opts.ProcessNames
	if len(names) == 0 {
		for _, p := range l.opts.Profiles {
			names = append(names, p.ProcessNames...)
		}
	}

	info, err := l.opts.Locate(names)
	if err != nil {
		return nil, nil, err
	}
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	mem, err := l.opts.Attach(info.PID)
	if err != nil {
		return nil, nil, err
	}

	regions, err := mem.Regions()
	if err != nil {
		mem.Close()
		return nil, nil, err
	}

	// Region choice is recomputed every pass; the emulator reallocates guest
	// RAM across game loads.
	region, err := memory_map.FindGuestRAM(regions, l.opts.Heuristic)
	if err != nil {
		mem.Close()
		return nil, nil, err
	}
	if ctx.Err() != nil {
		mem.Close()
		return nil, nil, ctx.Err()
	}

	prof, err := camera.DetectProfile(mem, region, l.opts.Profiles)
	if err != nil {
		mem.Close()
		return nil, nil, fmt.Errorf("build detect: %w", err)
	}
	if ctx.Err() != nil {
		mem.Close()
		return nil, nil, ctx.Err()
	}

	cam, err := camera.Locate(mem, region, prof)
	if err != nil {
		mem.Close()
		return nil, nil, err
	}

	return mem, cam, nil
}

// runActive executes the tick loop against one confirmed camera. Returns
// when the camera is lost (caller rediscovers) or ctx is cancelled.
func (l *Loop) runActive(ctx context.Context, mem process.Memory, cam *camera.Camera) {
	state := aim.New(l.opts.Sensitivity, l.opts.InvertY)

	// Drop whatever motion accumulated while discovering.
	l.sampler.Sample()

	ticker := time.NewTicker(l.opts.Tick)
	defer ticker.Stop()

	// Re-check plausibility about once per second even when the device is
	// idle; a level load can reuse the block for something else without a
	// single write from us failing.
	revalidateEvery := int(time.Second / l.opts.Tick)
	if revalidateEvery < 1 {
		revalidateEvery = 1
	}

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		ticks++
		delta := l.sampler.Sample()

		if delta.IsZero() {
			if ticks%revalidateEvery == 0 {
				if !l.revalidate(mem, cam) {
					return
				}
			}
			continue
		}

		angles, err := cam.Read(mem)
		if err != nil {
			l.log.Warn("Camera read failed, rediscovering: ", err)
			return
		}
		if !cam.Profile.Plausible(angles) {
			l.log.Infoln("Camera values drifted out of range, rediscovering")
			return
		}

		state.Seed(angles.Yaw, angles.Pitch)
		state.Integrate(float64(delta.DX), float64(delta.DY), angles.Fov)

		if err := cam.WriteAngles(mem, state.Yaw, state.Pitch); err != nil {
			l.log.Warn("Camera write failed, rediscovering: ", err)
			return
		}
	}
}

// revalidate is the idle-tick sanity check: process alive, fields readable,
// values still in range.
func (l *Loop) revalidate(mem process.Memory, cam *camera.Camera) bool {
	if !mem.Alive() {
		l.log.Infoln("Host process gone, rediscovering")
		return false
	}
	angles, err := cam.Read(mem)
	if err != nil {
		l.log.Warn("Camera re-read failed, rediscovering: ", err)
		return false
	}
	if !cam.Profile.Plausible(angles) {
		l.log.Infoln("Camera values drifted out of range, rediscovering")
		return false
	}
	return true
}

// logDiscoveryFailure reports a failed pass without flooding the log during
// long waits: each distinct condition is logged once per limiter interval.
// AccessDenied is called out explicitly since waiting cannot fix it.
func (l *Loop) logDiscoveryFailure(err error) {
	key := err.Error()
	if !l.warn.Allow(key) {
		return
	}

	switch {
	case errors.Is(err, process.ErrAccessDenied):
		l.log.Warn("Cannot access host process memory, elevate privileges (still retrying): ", err)
	case errors.Is(err, process.ErrProcessNotFound):
		l.log.Infoln("Waiting for host process:", err)
	case errors.Is(err, process.ErrRegionNotFound):
		l.log.Infoln("Host found but no guest RAM yet (game not loaded?):", err)
	case errors.Is(err, process.ErrNoValidCandidate):
		l.log.Infoln("Guest RAM found but camera not located (menu screen?):", err)
	default:
		l.log.Warn("Discovery failed: ", err)
	}
}

// sleepCtx sleeps for d or until ctx is done; reports false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
