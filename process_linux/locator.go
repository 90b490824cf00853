//go:build linux

package process_linux

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"psplook/process"
)

// Locate finds the first running process matching the ordered candidate
// executable names. Names are tried in order; the first name with any live
// match wins, and the lowest PID among its matches is returned for
// determinism. Matching compares /proc/<pid>/comm and the exe symlink
// basename, case-sensitive like pidof. Returns process.ErrProcessNotFound
// when nothing matches; safe to call repeatedly while polling.
func Locate(names []string) (process.ProcessInfo, error) {
	if len(names) == 0 {
		return process.ProcessInfo{}, errors.New("no candidate process names")
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return process.ProcessInfo{}, err
	}

	selfPID := os.Getpid()
	matches := make(map[string]int, len(names))

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue // not a PID dir
		}
		if pid == selfPID {
			continue
		}

		comm, _ := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		name := string(trimTrailingSpace(comm))

		// Resolve the exe symlink too; may fail for zombies or on permission
		exe, _ := os.Readlink(filepath.Join("/proc", e.Name(), "exe"))

		for _, want := range names {
			if name == want || (exe != "" && filepath.Base(exe) == want) {
				if prev, ok := matches[want]; !ok || pid < prev {
					matches[want] = pid
				}
				break
			}
		}
	}

	for _, want := range names {
		if pid, ok := matches[want]; ok {
			return process.ProcessInfo{PID: process.ProcessID(pid), Name: want}, nil
		}
	}

	return process.ProcessInfo{}, process.ErrProcessNotFound
}

// procExists checks liveness without requiring a parent/child relationship.
func procExists(pid process.ProcessID) bool {
	_, err := os.Stat(filepath.Join("/proc", strconv.Itoa(int(pid))))
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	// Transient errors (permission, EIO): fall back to kill 0
	return syscall.Kill(int(pid), 0) == nil
}

func trimTrailingSpace(b []byte) []byte {
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}
