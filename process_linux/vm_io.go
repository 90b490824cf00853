//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"psplook/process"

	"golang.org/x/sys/unix"
)

// vmReadv uses the process_vm_readv syscall to read memory from another
// process without ptrace-stopping it.
func vmReadv(pid process.ProcessID, remoteAddr process.Address, size process.Size) ([]byte, error) {
	buf := make([]byte, size)

	localIov := unix.Iovec{
		Base: &buf[0],
		Len:  uint64(size),
	}
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  int(size),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),
		uintptr(unsafe.Pointer(&localIov)),
		uintptr(1),
		uintptr(unsafe.Pointer(&remoteIov)),
		uintptr(1),
		uintptr(0),
	)

	if errno != 0 {
		return nil, wrapErrno("process_vm_readv", errno)
	}
	if int(n) != int(size) {
		return buf[:n], fmt.Errorf("%w: partial read: %d of %d bytes", process.ErrMemoryIO, n, size)
	}

	return buf, nil
}

// vmWritev uses the process_vm_writev syscall to write memory to another
// process.
func vmWritev(pid process.ProcessID, remoteAddr process.Address, data []byte) error {
	localIov := unix.Iovec{
		Base: &data[0],
		Len:  uint64(len(data)),
	}
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(data),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),
		uintptr(unsafe.Pointer(&localIov)),
		uintptr(1),
		uintptr(unsafe.Pointer(&remoteIov)),
		uintptr(1),
		uintptr(0),
	)

	if errno != 0 {
		return wrapErrno("process_vm_writev", errno)
	}
	if int(n) != len(data) {
		return fmt.Errorf("%w: partial write: %d of %d bytes", process.ErrMemoryIO, n, len(data))
	}

	return nil
}

// wrapErrno maps syscall errors onto the package error taxonomy. EPERM means
// the operator has to elevate; everything else is a retriable I/O condition.
func wrapErrno(op string, errno unix.Errno) error {
	switch errno {
	case unix.EPERM, unix.EACCES:
		return fmt.Errorf("%s: %w: %s", op, process.ErrAccessDenied, errno.Error())
	case unix.EFAULT:
		return fmt.Errorf("%s: %w: %s", op, process.ErrAddressNotMapped, errno.Error())
	default:
		// ESRCH (process gone), EIO, ... : the handle was valid once
		return fmt.Errorf("%s: %w: %s", op, process.ErrMemoryIO, errno.Error())
	}
}
