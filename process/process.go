// Package process provides the OS-neutral types and the memory-access
// interface used to discover and patch structures in a host process.
package process

import (
	"errors"

	"psplook/process/memory_map"
)

var (
	// ErrProcessNotFound is returned when no candidate executable name matches
	// a running process.
	ErrProcessNotFound = errors.New("no matching process")

	// ErrAccessDenied is returned when a matching process exists but its
	// memory cannot be opened with the current privilege. Retrying does not
	// fix this; the operator has to elevate.
	ErrAccessDenied = errors.New("process memory access denied")

	// ErrRegionNotFound is returned when no mapped region satisfies the guest
	// RAM size/permission heuristic. Defined in memory_map (which cannot
	// import this package) and re-exported here with the rest of the taxonomy.
	ErrRegionNotFound = memory_map.ErrRegionNotFound

	// ErrNoValidCandidate is returned when the region exists but no scan
	// match survives validation (wrong game state, menu screen, ...).
	ErrNoValidCandidate = errors.New("no valid camera candidate")

	// ErrMemoryIO is returned when a read or write against a previously
	// valid address/handle fails.
	ErrMemoryIO = errors.New("process memory i/o failed")

	// ErrProcessNotOpen is returned when an operation requiring an open
	// process is attempted before Open or after Close.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrAddressNotMapped is returned when an address falls outside every
	// mapped region of the process.
	ErrAddressNotMapped = errors.New("address not mapped")
)
