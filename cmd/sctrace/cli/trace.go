package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/majorcontext/sctrace/internal/id"
	"github.com/majorcontext/sctrace/internal/log"
	"github.com/majorcontext/sctrace/internal/trace"
	"github.com/majorcontext/sctrace/internal/ui"
	"github.com/spf13/cobra"
)

func runTrace(cmd *cobra.Command, args []string) error {
	traceID := id.NewTrace()
	log.SetTraceID(traceID)
	defer log.ClearTraceID()

	tracer := trace.New(trace.Config{
		Limits:     cfg.Limits(),
		ShowAll:    cfg.Trace.ShowAll,
		KillOnExit: cfg.Trace.KillOnExit,
	})

	out := trace.NewLineWriter(cmd.OutOrStdout())
	out.Style = ui.Bold
	tracer.OnSyscall(out.Syscall)

	// Interrupting sctrace detaches and leaves the program running.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting trace", "program", args[0], "args", args[1:])
	res, err := tracer.Run(ctx, args)
	if err != nil {
		log.Error("trace failed", "program", args[0], "error", err)
		return describe(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.Dim(res.String()))
	log.Info("trace finished",
		"pid", res.PID,
		"state", res.State.String(),
		"entries", res.Entries,
		"exits", res.Exits,
		"forwarded_signals", res.Forwarded,
	)

	if code := res.ExitStatus(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// describe adds a hint to errors a user can act on.
func describe(err error) error {
	var setup *trace.TraceSetupError
	switch {
	case errors.Is(err, syscall.EPERM):
		return fmt.Errorf("%w\n\n  ptrace was refused. Check /proc/sys/kernel/yama/ptrace_scope\n  or run inside a container with CAP_SYS_PTRACE", err)
	case errors.Is(err, trace.ErrUnsupported):
		return fmt.Errorf("%w (sctrace needs Linux on amd64 or arm64)", err)
	case errors.As(err, &setup):
		return fmt.Errorf("%w (the program was killed)", err)
	}
	return err
}
