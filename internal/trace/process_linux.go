package trace

import (
	"fmt"

	"github.com/majorcontext/sctrace/internal/remote"
	"golang.org/x/sys/unix"
)

// StopKind classifies what a wait on the tracee returned.
type StopKind int

const (
	// StopSyscall is a syscall-entry or syscall-exit stop.
	StopSyscall StopKind = iota
	// StopSignal is a signal-delivery stop.
	StopSignal
	// StopPtraceEvent is a PTRACE_EVENT stop, such as the exec event.
	StopPtraceEvent
	// StopExited means the tracee exited normally.
	StopExited
	// StopKilled means the tracee was terminated by a signal.
	StopKilled
)

// Stop is the decoded result of one wait.
type Stop struct {
	Kind StopKind
	// Signal is the stop signal for StopSignal and the fatal signal for
	// StopKilled.
	Signal unix.Signal
	// Status is the exit status for StopExited and the event number for
	// StopPtraceEvent.
	Status int
}

func (s Stop) String() string {
	switch s.Kind {
	case StopSyscall:
		return "syscall stop"
	case StopSignal:
		return "signal stop " + signalName(s.Signal)
	case StopPtraceEvent:
		return fmt.Sprintf("ptrace event %d", s.Status)
	case StopExited:
		return fmt.Sprintf("exited with %d", s.Status)
	case StopKilled:
		return "killed by " + signalName(s.Signal)
	}
	return "unknown stop"
}

func signalName(sig unix.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", int(sig))
}

// Process is the controller's handle on one traced process. All methods
// except Interrupt must be called from the OS thread that launched it.
type Process interface {
	PID() int
	// SetOptions applies the tracing options after the initial stop.
	SetOptions(killOnExit bool) error
	// Resume restarts the tracee until the next syscall boundary, delivering
	// sig unless it is zero.
	Resume(sig unix.Signal) error
	// Wait blocks until the tracee stops or terminates.
	Wait() (Stop, error)
	// Registers returns a fresh snapshot. Failures are *RegisterReadError.
	Registers() (Registers, error)
	// Memory reads the tracee's address space while it is stopped.
	Memory() remote.Memory
	// Detach stops tracing, delivers sig unless it is zero, and makes sure
	// the process is left running.
	Detach(sig unix.Signal) error
	// Kill terminates the tracee.
	Kill() error
	// Interrupt asks a running tracee to stop so a pending Wait returns.
	// It is safe to call from any goroutine.
	Interrupt() error
}
