package process

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessInfo is the locator's view of a running process
type ProcessInfo struct {
	PID  ProcessID
	Name string // comm or exe basename, whichever matched
}
