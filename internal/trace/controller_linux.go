package trace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/majorcontext/sctrace/internal/decode"
	"github.com/majorcontext/sctrace/internal/log"
	"golang.org/x/sys/unix"
)

// controller runs the stop cycle for one tracee:
//
//	AwaitingInitialStop -> EntryWait <-> ExitWait -> Terminated
//
// with Detached as a second terminal state on cancellation.
type controller struct {
	proc     Process
	cfg      Config
	registry *decode.Registry
	sink     sink
	logger   *slog.Logger

	state State
	// pending is the call captured at entry, completed at exit.
	pending *Syscall
	// deliver is injected on the next resume.
	deliver unix.Signal
	// injected is what the last resume delivered.
	injected unix.Signal
	// decoding is cleared once a decoder finds the tracee gone.
	decoding bool
	res      Result
}

// sink receives what the controller observes.
type sink interface {
	emitSyscall(Syscall)
	emitStop(StopEvent)
}

func newController(proc Process, cfg Config, registry *decode.Registry, out sink) *controller {
	return &controller{
		proc:     proc,
		cfg:      cfg,
		registry: registry,
		sink:     out,
		logger:   log.With("pid", proc.PID()),
		state:    AwaitingInitialStop,
		decoding: true,
		res:      Result{PID: proc.PID()},
	}
}

// run drives the tracee until it terminates or ctx is cancelled.
func (c *controller) run(ctx context.Context) (Result, error) {
	if err := c.setup(); err != nil {
		c.abort()
		return c.result(), err
	}

	stop := context.AfterFunc(ctx, func() {
		if err := c.proc.Interrupt(); err != nil {
			c.logger.Debug("interrupting tracee", "error", err)
		}
	})
	defer stop()

	for !c.done() {
		sig := c.deliver
		c.deliver = 0
		c.injected = sig
		if err := c.proc.Resume(sig); err != nil && !errors.Is(err, unix.ESRCH) {
			// ESRCH means the tracee died under us; the wait reports how.
			return c.result(), fmt.Errorf("resume pid %d: %w", c.proc.PID(), err)
		}

		st, err := c.proc.Wait()
		if err != nil {
			return c.result(), fmt.Errorf("wait for pid %d: %w", c.proc.PID(), err)
		}

		if ctx.Err() != nil && st.Kind != StopExited && st.Kind != StopKilled {
			c.detach(st)
			break
		}
		c.handle(st)
	}
	return c.result(), nil
}

func (c *controller) done() bool {
	return c.state == Terminated || c.state == Detached
}

func (c *controller) result() Result {
	r := c.res
	r.State = c.state
	return r
}

// setup consumes the post-exec SIGTRAP and applies the tracing options.
func (c *controller) setup() error {
	pid := c.proc.PID()
	st, err := c.proc.Wait()
	if err != nil {
		return &TraceSetupError{PID: pid, Stage: "initial stop", Err: err}
	}
	if st.Kind != StopSignal || st.Signal != unix.SIGTRAP {
		return &TraceSetupError{PID: pid, Stage: "initial stop", Err: fmt.Errorf("unexpected %s", st)}
	}
	if err := c.proc.SetOptions(c.cfg.KillOnExit); err != nil {
		return &TraceSetupError{PID: pid, Stage: "set options", Err: err}
	}
	c.logger.Debug("tracee at initial stop", "kill_on_exit", c.cfg.KillOnExit)
	c.state = EntryWait
	return nil
}

// abort kills a tracee that never got past setup and reaps it.
func (c *controller) abort() {
	if err := c.proc.Kill(); err != nil {
		c.logger.Debug("killing tracee after failed setup", "error", err)
		return
	}
	for {
		st, err := c.proc.Wait()
		if err != nil || st.Kind == StopExited || st.Kind == StopKilled {
			c.finish(st)
			return
		}
	}
}

func (c *controller) handle(st Stop) {
	switch st.Kind {
	case StopSyscall:
		if c.state == EntryWait {
			c.enter()
		} else {
			c.exit()
		}

	case StopPtraceEvent:
		// exec and friends arrive between entry and exit; the alternation
		// is unaffected and nothing is injected
		c.logger.Debug("ptrace event", "event", st.Status, "state", c.state)

	case StopSignal:
		if isStopSignal(st.Signal) && st.Signal == c.injected {
			// group-stop for the stop signal delivered on the last resume;
			// injecting it again would be ignored
			c.logger.Debug("group stop", "signal", signalName(st.Signal))
			return
		}
		err := &UnexpectedStopError{PID: c.proc.PID(), State: c.state, Signal: signalName(st.Signal)}
		if st.Signal == unix.SIGCHLD {
			c.logger.Debug("child status change", "error", err)
		} else {
			c.logger.Warn("unexpected stop", "error", err)
		}
		if st.Signal != 0 {
			c.deliver = st.Signal
			c.res.Forwarded++
		}

	case StopExited, StopKilled:
		c.finish(st)
	}
}

func isStopSignal(sig unix.Signal) bool {
	switch sig {
	case unix.SIGSTOP, unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU:
		return true
	}
	return false
}

func (c *controller) enter() {
	c.res.Entries++
	c.state = ExitWait

	regs, err := c.proc.Registers()
	if err != nil {
		c.logger.Debug("syscall entry", "error", err)
		c.pending = nil
		return
	}
	c.sink.emitStop(StopEvent{Kind: Entry, PID: c.proc.PID(), Regs: regs})

	call := &Syscall{PID: c.proc.PID(), Number: regs.Nr, Raw: regs.Args}
	if d, ok := c.registry.Lookup(regs.Nr); ok && c.decoding && d.Decode != nil {
		in := &decode.Call{
			Number: regs.Nr,
			Args:   regs.Args,
			Mem:    c.proc.Memory(),
			Limits: c.cfg.Limits,
		}
		call.Name = d.Name
		call.Args = d.Decode(in)
		for _, err := range in.Errs {
			c.logger.Debug("decoding argument", "syscall", d.Name, "error", err)
		}
		if in.Gone() {
			c.logger.Debug("tracee gone while decoding, decoding disabled")
			c.decoding = false
		}
	}
	c.pending = call
}

func (c *controller) exit() {
	c.res.Exits++
	c.state = EntryWait

	call := c.pending
	c.pending = nil

	regs, err := c.proc.Registers()
	if err != nil {
		c.logger.Debug("syscall exit", "error", err)
		if call != nil {
			call.Unfinished = true
			c.emit(*call)
		}
		return
	}
	c.sink.emitStop(StopEvent{Kind: Exit, PID: c.proc.PID(), Regs: regs})

	if call == nil {
		// entry registers were lost; report what the exit stop knows
		call = &Syscall{PID: c.proc.PID(), Number: regs.Nr}
	}
	call.Ret = regs.Return()
	c.emit(*call)
}

func (c *controller) emit(s Syscall) {
	if s.Decoded() || c.cfg.ShowAll {
		c.sink.emitSyscall(s)
	}
}

func (c *controller) finish(st Stop) {
	if c.state == ExitWait && c.pending != nil {
		c.pending.Unfinished = true
		c.emit(*c.pending)
	}
	c.pending = nil

	switch st.Kind {
	case StopExited:
		c.res.ExitCode = st.Status
	case StopKilled:
		c.res.Signal = int(st.Signal)
		c.res.SignalName = signalName(st.Signal)
	}
	c.state = Terminated
	c.logger.Debug("tracee terminated", "how", st.String(),
		"entries", c.res.Entries, "exits", c.res.Exits)
}

// detach lets go of the tracee after cancellation. A signal that was about
// to be delivered is passed on, unless it is the SIGSTOP sent by Interrupt.
func (c *controller) detach(st Stop) {
	var sig unix.Signal
	if st.Kind == StopSignal && st.Signal != unix.SIGSTOP {
		sig = st.Signal
	}
	if err := c.proc.Detach(sig); err != nil {
		c.logger.Warn("detaching from tracee", "error", err)
	}
	c.pending = nil
	c.state = Detached
	c.logger.Debug("detached from tracee", "forwarded", int(sig))
}
