package trace

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by Run on platforms without ptrace support.
var ErrUnsupported = errors.New("syscall tracing is not supported on this platform")

// LaunchError is returned when the target program cannot be started. No
// process exists when it is returned.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("launch: %v", e.Err)
	}
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TraceSetupError is returned when the tracee did not reach its initial
// stop or tracing options could not be applied. The tracee is killed.
type TraceSetupError struct {
	PID   int
	Stage string
	Err   error
}

func (e *TraceSetupError) Error() string {
	return fmt.Sprintf("set up trace of pid %d: %s: %v", e.PID, e.Stage, e.Err)
}

func (e *TraceSetupError) Unwrap() error {
	return e.Err
}

// UnexpectedStopError describes a stop that is not a syscall boundary, such
// as a signal delivery. It is logged, never returned from Run; the signal is
// passed on to the tracee and the trace continues in the same state.
type UnexpectedStopError struct {
	PID    int
	State  State
	Signal string
}

func (e *UnexpectedStopError) Error() string {
	return fmt.Sprintf("pid %d stopped by %s in %s", e.PID, e.Signal, e.State)
}

// RegisterReadError is returned when the tracee's registers cannot be read.
type RegisterReadError struct {
	PID int
	Err error
}

func (e *RegisterReadError) Error() string {
	return fmt.Sprintf("read registers of pid %d: %v", e.PID, e.Err)
}

func (e *RegisterReadError) Unwrap() error {
	return e.Err
}
