//go:build linux

// Package process_linux implements process.Memory for Linux using
// process_vm_readv/process_vm_writev against /proc-discovered processes.
package process_linux

import (
	"fmt"
	"os"
	"sync"

	"psplook/process"
	"psplook/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// LinuxProcess implements the process.Memory interface for Linux systems
type LinuxProcess struct {
	pid process.ProcessID
	log *logger.Logger
	mu  sync.Mutex
}

// Open attaches to a PID for memory operations. It verifies the process
// exists, reads its memory map, and probes a readable region so that
// insufficient privilege surfaces here as process.ErrAccessDenied instead of
// failing later inside the discovery loop.
func Open(pid process.ProcessID) (process.Memory, error) {
	if !procExists(pid) {
		return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
	}

	p := &LinuxProcess{
		pid: pid,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	regions, err := p.Regions()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	// Probe read against the first readable region. EPERM comes back from
	// the syscall, not from the /proc walk, so this is the earliest point
	// privilege problems can be detected.
	for _, r := range regions {
		if !r.IsReadable() || r.Size < 4 {
			continue
		}
		if _, err := vmReadv(pid, process.Address(r.Start), 4); err != nil {
			return nil, fmt.Errorf("probe read: %w", err)
		}
		break
	}

	p.log.Infoln("Process opened")

	return p, nil
}

// PID returns the process ID
func (p *LinuxProcess) PID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// Alive reports whether the process still exists in /proc.
func (p *LinuxProcess) Alive() bool {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	return pid != 0 && procExists(pid)
}

// Regions enumerates the process's current memory map. The map is re-read
// on every call; guest RAM can move whenever the emulator reloads, so stale
// maps must never be served.
func (p *LinuxProcess) Regions() ([]memory_map.Region, error) {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	regions, err := memory_map.ReadProcessRegions(int(pid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("pid %d: %w", pid, process.ErrMemoryIO)
		}
		return nil, err
	}
	return regions, nil
}

// ReadMemory reads memory from the process at the specified address
func (p *LinuxProcess) ReadMemory(addr process.Address, size process.Size) ([]byte, error) {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	return vmReadv(pid, addr, size)
}

// WriteMemory writes data to the process memory at the specified address
func (p *LinuxProcess) WriteMemory(addr process.Address, data []byte) error {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return process.ErrProcessNotOpen
	}
	if len(data) == 0 {
		return nil
	}

	return vmWritev(pid, addr, data)
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")
	p.pid = 0

	return nil
}
