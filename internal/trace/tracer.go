package trace

import (
	"context"
	"errors"
	"sync"

	"github.com/majorcontext/sctrace/internal/remote"
)

// Config configures the tracer.
type Config struct {
	// Limits bounds every string read out of the tracee.
	Limits remote.Limits
	// ShowAll reports calls without a decoder as well, by number.
	ShowAll bool
	// KillOnExit kills the tracee if the tracer exits first (PTRACE_O_EXITKILL).
	KillOnExit bool
}

// Tracer launches one program and reports its system calls to callbacks.
type Tracer struct {
	cfg Config

	mu       sync.Mutex
	syscalls []func(Syscall)
	stops    []func(StopEvent)
}

// New creates a tracer. Nothing is started until Run.
func New(cfg Config) *Tracer {
	return &Tracer{cfg: cfg}
}

// OnSyscall registers a callback for completed system calls. Only decoded
// calls are reported unless Config.ShowAll is set.
func (t *Tracer) OnSyscall(cb func(Syscall)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syscalls = append(t.syscalls, cb)
}

// OnStop registers a callback for every syscall entry and exit stop.
func (t *Tracer) OnStop(cb func(StopEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops = append(t.stops, cb)
}

// Run launches argv[0] with the remaining arguments and traces it until it
// exits or ctx is cancelled. On cancellation the tracee is detached and left
// running, and Result.State is Detached.
func (t *Tracer) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 || argv[0] == "" {
		return Result{}, &LaunchError{Err: errors.New("no program given")}
	}
	return t.run(ctx, argv)
}

func (t *Tracer) emitSyscall(s Syscall) {
	t.mu.Lock()
	cbs := make([]func(Syscall), len(t.syscalls))
	copy(cbs, t.syscalls)
	t.mu.Unlock()

	for _, cb := range cbs {
		cb(s)
	}
}

func (t *Tracer) emitStop(e StopEvent) {
	t.mu.Lock()
	cbs := make([]func(StopEvent), len(t.stops))
	copy(cbs, t.stops)
	t.mu.Unlock()

	for _, cb := range cbs {
		cb(e)
	}
}
