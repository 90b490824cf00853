package injector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"psplook/camera"
	"psplook/input"
	"psplook/process"
	"psplook/process/memory_map"
)

// fakeProc is an in-memory process image shared between the loop under test
// and the test body, with a switchable failure mode.
type fakeProc struct {
	base uint64
	fail atomic.Bool

	mu  sync.Mutex
	buf []byte
}

func newFakeProc(size int) *fakeProc {
	return &fakeProc{base: 0x7F0000000000, buf: make([]byte, size)}
}

func (f *fakeProc) PID() process.ProcessID { return 42 }
func (f *fakeProc) Alive() bool            { return !f.fail.Load() }
func (f *fakeProc) Close() error           { return nil }

func (f *fakeProc) Regions() ([]memory_map.Region, error) {
	if f.fail.Load() {
		return nil, process.ErrMemoryIO
	}
	return []memory_map.Region{
		{Start: 0x400000, Size: 0x1000, Perms: "r-xp", Path: "/usr/bin/emulator"},
		{Start: f.base, Size: uint(len(f.buf)), Perms: "rw-p"},
	}, nil
}

func (f *fakeProc) ReadMemory(addr process.Address, size process.Size) ([]byte, error) {
	if f.fail.Load() {
		return nil, process.ErrMemoryIO
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	off := uint64(addr) - f.base
	if uint64(addr) < f.base || off+uint64(size) > uint64(len(f.buf)) {
		return nil, fmt.Errorf("read %s: %w", addr, process.ErrAddressNotMapped)
	}
	out := make([]byte, size)
	copy(out, f.buf[off:])
	return out, nil
}

func (f *fakeProc) WriteMemory(addr process.Address, data []byte) error {
	if f.fail.Load() {
		return process.ErrMemoryIO
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	off := uint64(addr) - f.base
	if uint64(addr) < f.base || off+uint64(len(data)) > uint64(len(f.buf)) {
		return fmt.Errorf("write %s: %w", addr, process.ErrAddressNotMapped)
	}
	copy(f.buf[off:], data)
	return nil
}

func (f *fakeProc) putU32(off uint64, v uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	binary.LittleEndian.PutUint32(f.buf[off:], v)
}

func (f *fakeProc) putF32(off uint64, v float32) {
	f.putU32(off, math.Float32bits(v))
}

func (f *fakeProc) getF32(off uint64) float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return math.Float32frombits(binary.LittleEndian.Uint32(f.buf[off:]))
}

// fakeSampler pops scripted deltas, then falls back to a constant (usually
// zero) delta.
type fakeSampler struct {
	mu       sync.Mutex
	queue    []input.Delta
	constant input.Delta
}

func (s *fakeSampler) Sample() input.Delta {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return s.constant
	}
	d := s.queue[0]
	s.queue = s.queue[1:]
	return d
}

const (
	testRegionSize = 1 << 20
	testCamOff     = 0x2000
	testYawOff     = 0x10
	testPitchOff   = 0x14
	testFovOff     = 0x18
)

func testProfile(t *testing.T) *camera.Profile {
	t.Helper()
	sig, err := process.ParseAOB("de ad be ef ?? ?? ?? 08&fe")
	if err != nil {
		t.Fatal(err)
	}
	return &camera.Profile{
		Name:       "test",
		GameID:     "TEST-0001",
		Signature:  sig,
		PtrSlotOff: 4,
		PtrAdjust:  0x08000000,
		YawOff:     testYawOff,
		PitchOff:   testPitchOff,
		FovOff:     testFovOff,
		YawBound:   3.2,
		PitchBound: 1.483529806,
		FovMin:     1.0,
		FovMax:     179.0,
		MinScore:   3,
	}
}

// newTestTarget builds a process image with tag, signature, pointer slot and
// a camera at yaw=0 pitch=0 fov=42.
func newTestTarget() *fakeProc {
	f := newFakeProc(testRegionSize)
	f.mu.Lock()
	copy(f.buf[0x5000:], []byte("TEST-0001"))
	copy(f.buf[0x100:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	f.mu.Unlock()
	f.putU32(0x104, 0x08000000+testCamOff)
	f.putF32(testCamOff+testYawOff, 0)
	f.putF32(testCamOff+testPitchOff, 0)
	f.putF32(testCamOff+testFovOff, 42.0)
	return f
}

func testOptions(t *testing.T, proc *fakeProc) Options {
	t.Helper()
	return Options{
		Sensitivity: 50,
		Tick:        2 * time.Millisecond,
		Backoff:     10 * time.Millisecond,
		Profiles:    []*camera.Profile{testProfile(t)},
		Heuristic:   memory_map.GuestHeuristic{ExpectedSizes: []uint64{testRegionSize}, Tolerance: 0.1},
		Locate: func(names []string) (process.ProcessInfo, error) {
			return process.ProcessInfo{PID: 42, Name: "emulator"}, nil
		},
		Attach: func(pid process.ProcessID) (process.Memory, error) {
			return proc, nil
		},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLoopInjectsMotion(t *testing.T) {
	proc := newTestTarget()
	sampler := &fakeSampler{queue: []input.Delta{
		{}, // consumed by the activation drain
		{DX: 10},
		{DY: 5},
	}}

	loop, err := New(testOptions(t, proc), sampler)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	// angle per count: 50/20/20000*42
	const k = 50.0 / 20.0 / 20000.0 * 42.0
	wantYaw := float32(-10 * k)
	wantPitch := float32(-5 * k)

	waitFor(t, "injected angles", func() bool {
		yaw := proc.getF32(testCamOff + testYawOff)
		pitch := proc.getF32(testCamOff + testPitchOff)
		return math.Abs(float64(yaw-wantYaw)) < 1e-4 && math.Abs(float64(pitch-wantPitch)) < 1e-4
	})

	if fov := proc.getF32(testCamOff + testFovOff); fov != 42.0 {
		t.Errorf("fov changed to %v", fov)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
	if loop.State() != StateStopped {
		t.Errorf("state = %v after cancel", loop.State())
	}
}

func TestLoopInvertY(t *testing.T) {
	proc := newTestTarget()
	sampler := &fakeSampler{queue: []input.Delta{{}, {DY: 5}}}

	opts := testOptions(t, proc)
	opts.InvertY = true
	loop, err := New(opts, sampler)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	const k = 50.0 / 20.0 / 20000.0 * 42.0
	wantPitch := float32(5 * k) // inverted: positive instead of negative

	waitFor(t, "inverted pitch", func() bool {
		pitch := proc.getF32(testCamOff + testPitchOff)
		return math.Abs(float64(pitch-wantPitch)) < 1e-4
	})
}

func TestLoopRecoversAfterTargetLoss(t *testing.T) {
	proc := newTestTarget()
	// Constant motion so every tick touches the target.
	sampler := &fakeSampler{constant: input.Delta{DX: 1}}

	loop, err := New(testOptions(t, proc), sampler)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	waitFor(t, "initial activation", func() bool { return loop.State() == StateActive })

	proc.fail.Store(true)
	waitFor(t, "fallback to discovery", func() bool { return loop.State() == StateDiscovering })

	proc.fail.Store(false)
	waitFor(t, "recovery", func() bool { return loop.State() == StateActive })
}

func TestLoopStopsOnCancelDuringDiscovery(t *testing.T) {
	opts := testOptions(t, newTestTarget())
	opts.Locate = func(names []string) (process.ProcessInfo, error) {
		return process.ProcessInfo{}, process.ErrProcessNotFound
	}

	loop, err := New(opts, &fakeSampler{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if loop.State() != StateStopped {
		t.Errorf("state = %v", loop.State())
	}
}

func TestNewRejectsIncompleteOptions(t *testing.T) {
	sampler := &fakeSampler{}

	if _, err := New(Options{}, sampler); err == nil {
		t.Error("accepted options without profiles")
	}

	opts := testOptions(t, newTestTarget())
	opts.Locate = nil
	if _, err := New(opts, sampler); err == nil {
		t.Error("accepted options without locate")
	}
}

func TestRepeatLimiter(t *testing.T) {
	rl := newRepeatLimiter(time.Hour)

	if !rl.Allow("a") {
		t.Error("first occurrence suppressed")
	}
	if rl.Allow("a") {
		t.Error("repeat within interval allowed")
	}
	if !rl.Allow("b") {
		t.Error("distinct key suppressed")
	}
}
