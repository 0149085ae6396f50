package trace

import (
	"context"
	"runtime"

	"github.com/majorcontext/sctrace/internal/decode"
	"github.com/majorcontext/sctrace/internal/log"
)

func (t *Tracer) run(ctx context.Context, argv []string) (Result, error) {
	// ptrace requests are only accepted from the thread that attached
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cmd, err := Prepare(argv[0], argv[1:])
	if err != nil {
		return Result{}, err
	}
	pid, err := Start(cmd)
	if err != nil {
		return Result{}, err
	}
	// wait4 reaps the tracee; Release only frees the handle
	defer cmd.Process.Release()

	log.Debug("tracee started", "pid", pid, "path", cmd.Path, "args", cmd.Args[1:])

	c := newController(newPtraceProcess(pid), t.cfg, decode.DefaultRegistry(), t)
	return c.run(ctx)
}

// DecoderNames lists the system calls decoded in depth on this platform.
func DecoderNames() []string {
	return decode.DefaultRegistry().Names()
}
