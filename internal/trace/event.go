package trace

// State is the controller's position in the stop cycle.
type State int

const (
	AwaitingInitialStop State = iota
	EntryWait
	ExitWait
	Terminated
	Detached
)

func (s State) String() string {
	switch s {
	case AwaitingInitialStop:
		return "awaiting-initial-stop"
	case EntryWait:
		return "entry-wait"
	case ExitWait:
		return "exit-wait"
	case Terminated:
		return "terminated"
	case Detached:
		return "detached"
	}
	return "unknown"
}

// Boundary tells a syscall-entry stop from a syscall-exit stop.
type Boundary int

const (
	Entry Boundary = iota
	Exit
)

func (b Boundary) String() string {
	if b == Entry {
		return "entry"
	}
	return "exit"
}

// StopEvent is one syscall stop. A well-formed trace alternates Entry and
// Exit events.
type StopEvent struct {
	Kind Boundary
	PID  int
	Regs Registers
}

// Syscall is one completed (or interrupted) system call.
type Syscall struct {
	PID    int
	Number uint64
	// Name is empty when no decoder is registered for Number.
	Name string
	// Args holds the rendered arguments of a decoded call.
	Args []string
	// Raw holds the argument registers captured at entry.
	Raw [6]uint64
	Ret int64
	// Unfinished is set when the return value was never observed, because
	// the tracee exited inside the call or its exit registers were unreadable.
	Unfinished bool
}

// Decoded reports whether the call was rendered by a decoder.
func (s Syscall) Decoded() bool {
	return s.Name != ""
}

// Result summarizes a finished trace.
type Result struct {
	PID   int
	State State

	// ExitCode is the tracee's exit status when it exited normally.
	ExitCode int
	// Signal is the number of the signal that killed the tracee, or 0.
	Signal     int
	SignalName string

	Entries int
	Exits   int
	// Forwarded counts signals passed through to the tracee.
	Forwarded int
}

// ExitStatus maps the tracee's fate to a process exit status: its own code,
// 128+signal when killed, and 0 when detached.
func (r Result) ExitStatus() int {
	switch {
	case r.State == Detached:
		return 0
	case r.Signal != 0:
		return 128 + r.Signal
	default:
		return r.ExitCode
	}
}
