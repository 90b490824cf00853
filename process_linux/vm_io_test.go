//go:build linux

package process_linux

import (
	"errors"
	"testing"

	"psplook/process"

	"golang.org/x/sys/unix"
)

func TestWrapErrno(t *testing.T) {
	tests := []struct {
		errno unix.Errno
		want  error
	}{
		{unix.EPERM, process.ErrAccessDenied},
		{unix.EACCES, process.ErrAccessDenied},
		{unix.EFAULT, process.ErrAddressNotMapped},
		{unix.ESRCH, process.ErrMemoryIO},
		{unix.EIO, process.ErrMemoryIO},
	}

	for _, tt := range tests {
		err := wrapErrno("process_vm_readv", tt.errno)
		if !errors.Is(err, tt.want) {
			t.Errorf("wrapErrno(%v) = %v, want %v", tt.errno, err, tt.want)
		}
	}
}
