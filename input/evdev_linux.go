//go:build linux

package input

import (
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/holoplot/go-evdev"
)

// EvdevSampler pumps relative motion events from a Linux evdev device into
// an Accumulator. Relative events keep flowing no matter where the visible
// cursor sits, so the device can be sampled indefinitely without hitting
// screen edges; grabbing the device additionally keeps the events away from
// the desktop while injecting.
type EvdevSampler struct {
	Accumulator

	dev     *evdev.InputDevice
	grabbed bool
	log     *logger.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// OpenEvdev opens the given device path, or auto-detects the first device
// advertising relative axes when path is empty or "auto". With grab set the
// device is grabbed exclusively for the lifetime of the sampler.
func OpenEvdev(path string, grab bool) (*EvdevSampler, error) {
	if path == "" || path == "auto" {
		detected, err := detectPointerDevice()
		if err != nil {
			return nil, err
		}
		path = detected
	}

	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input device %s: %w", path, err)
	}

	s := &EvdevSampler{
		dev:  dev,
		log:  logger.NewLogger(coloransi.Color(coloransi.ColorTeal, coloransi.ColorOrange, "input")),
		done: make(chan struct{}),
	}

	if grab {
		if err := dev.Grab(); err != nil {
			dev.Close()
			return nil, fmt.Errorf("grab input device %s: %w", path, err)
		}
		s.grabbed = true
	}

	if name, err := dev.Name(); err == nil {
		s.log.Infoln("Sampling pointer device", name)
	}

	go s.pump()

	return s, nil
}

// detectPointerDevice returns the path of the first evdev device that
// reports EV_REL capability.
func detectPointerDevice() (string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return "", fmt.Errorf("list input devices: %w", err)
	}

	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue // not ours to read, keep looking
		}
		hasRel := false
		for _, t := range dev.CapableTypes() {
			if t == evdev.EV_REL {
				hasRel = true
				break
			}
		}
		dev.Close()
		if hasRel {
			return p.Path, nil
		}
	}

	return "", fmt.Errorf("no relative pointer device found")
}

// pump reads events until the device errors or the sampler closes.
func (s *EvdevSampler) pump() {
	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.log.Warn("Input device read failed: ", err)
			return
		}

		if ev.Type != evdev.EV_REL {
			continue
		}
		switch ev.Code {
		case evdev.REL_X:
			s.Add(int64(ev.Value), 0)
		case evdev.REL_Y:
			s.Add(0, int64(ev.Value))
		}
	}
}

// Close stops the pump and releases the device.
func (s *EvdevSampler) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.grabbed {
			_ = s.dev.Ungrab()
		}
		err = s.dev.Close()
	})
	return err
}
