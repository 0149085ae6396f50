package trace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/majorcontext/sctrace/internal/decode"
	"github.com/majorcontext/sctrace/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const (
	nrProbe = 1000
	nrOther = 1001
)

// step is one scripted wait result.
type step struct {
	stop    Stop
	regs    Registers
	regsErr error
}

func initial() step { return step{stop: Stop{Kind: StopSignal, Signal: unix.SIGTRAP}} }

func entry(nr uint64, args ...uint64) step {
	var a [6]uint64
	copy(a[:], args)
	return step{stop: Stop{Kind: StopSyscall}, regs: Registers{Nr: nr, Args: a}}
}

func exit(nr uint64, ret int64) step {
	return step{stop: Stop{Kind: StopSyscall}, regs: Registers{Nr: nr, Ret: uint64(ret)}}
}

func signal(sig unix.Signal) step { return step{stop: Stop{Kind: StopSignal, Signal: sig}} }

func exited(code int) step { return step{stop: Stop{Kind: StopExited, Status: code}} }

// fakeProcess replays a script of stops.
type fakeProcess struct {
	script []step
	cur    step
	mem    remote.Memory

	optionsErr error
	resumeErr  error

	resumes    []unix.Signal
	killOnExit bool
	killed     bool
	detached   bool
	detachSig  unix.Signal

	mu         sync.Mutex
	interrupts int
}

func (f *fakeProcess) PID() int { return 4242 }

func (f *fakeProcess) SetOptions(killOnExit bool) error {
	f.killOnExit = killOnExit
	return f.optionsErr
}

func (f *fakeProcess) Resume(sig unix.Signal) error {
	f.resumes = append(f.resumes, sig)
	return f.resumeErr
}

func (f *fakeProcess) Wait() (Stop, error) {
	if len(f.script) == 0 {
		return Stop{}, errors.New("script exhausted")
	}
	f.cur, f.script = f.script[0], f.script[1:]
	return f.cur.stop, nil
}

func (f *fakeProcess) Registers() (Registers, error) {
	if f.cur.regsErr != nil {
		return Registers{}, &RegisterReadError{PID: f.PID(), Err: f.cur.regsErr}
	}
	return f.cur.regs, nil
}

func (f *fakeProcess) Memory() remote.Memory { return f.mem }

func (f *fakeProcess) Detach(sig unix.Signal) error {
	f.detached = true
	f.detachSig = sig
	return nil
}

func (f *fakeProcess) Kill() error {
	f.killed = true
	f.script = append([]step{{stop: Stop{Kind: StopKilled, Signal: unix.SIGKILL}}}, f.script...)
	return nil
}

func (f *fakeProcess) Interrupt() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interrupts++
	return nil
}

// recorder collects what the controller emits.
type recorder struct {
	calls []Syscall
	stops []StopEvent
}

func (r *recorder) emitSyscall(s Syscall) { r.calls = append(r.calls, s) }
func (r *recorder) emitStop(e StopEvent)  { r.stops = append(r.stops, e) }

func (r *recorder) lines() []string {
	var out []string
	for _, c := range r.calls {
		out = append(out, c.String())
	}
	return out
}

func probeRegistry() *decode.Registry {
	r := decode.NewRegistry()
	r.Register(nrProbe, decode.Decoder{Name: "probe", Decode: func(c *decode.Call) []string {
		return []string{fmt.Sprint(c.Args[0])}
	}})
	return r
}

func runScript(t *testing.T, cfg Config, reg *decode.Registry, script ...step) (*fakeProcess, *recorder, Result, error) {
	t.Helper()
	proc := &fakeProcess{script: script}
	rec := &recorder{}
	res, err := newController(proc, cfg, reg, rec).run(context.Background())
	return proc, rec, res, err
}

func assertAlternates(t *testing.T, stops []StopEvent) {
	t.Helper()
	for i, s := range stops {
		want := Entry
		if i%2 == 1 {
			want = Exit
		}
		assert.Equal(t, want, s.Kind, "stop %d", i)
	}
}

func TestControllerDecodedCall(t *testing.T) {
	proc, rec, res, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		entry(nrProbe, 7),
		exit(nrProbe, 3),
		exited(0),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"probe(7) = 3"}, rec.lines())
	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, 1, res.Entries)
	assert.Equal(t, 1, res.Exits)
	assert.Equal(t, 0, res.ExitStatus())
	assert.Equal(t, 4242, res.PID)
	assertAlternates(t, rec.stops)
	assert.False(t, proc.killOnExit)
}

func TestControllerUndecodedCallsConsumeBothStops(t *testing.T) {
	// Without a decoder for nrOther the exit stop of the first call must not
	// be mistaken for the entry of the probe call.
	_, rec, res, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		entry(nrOther),
		exit(nrOther, 0),
		entry(nrOther),
		exit(nrOther, -2),
		entry(nrProbe, 9),
		exit(nrProbe, 1),
		exited(0),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"probe(9) = 1"}, rec.lines())
	assert.Equal(t, 3, res.Entries)
	assert.Equal(t, 3, res.Exits)
	require.Len(t, rec.stops, 6)
	assertAlternates(t, rec.stops)
}

func TestControllerEmptyRegistry(t *testing.T) {
	_, rec, res, err := runScript(t, Config{}, decode.NewRegistry(),
		initial(),
		entry(nrProbe, 1),
		exit(nrProbe, 0),
		entry(nrOther),
		exit(nrOther, 0),
		exited(0),
	)
	require.NoError(t, err)

	assert.Empty(t, rec.calls)
	assert.Equal(t, res.Entries, res.Exits)
	assertAlternates(t, rec.stops)
}

func TestControllerShowAll(t *testing.T) {
	_, rec, _, err := runScript(t, Config{ShowAll: true}, probeRegistry(),
		initial(),
		entry(nrOther),
		exit(nrOther, 42),
		entry(nrProbe, 5),
		exit(nrProbe, 0),
		exited(0),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"syscall 1001 = 42", "probe(5) = 0"}, rec.lines())
}

func TestControllerNegativeReturnUnmodified(t *testing.T) {
	_, rec, _, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		entry(nrProbe, 1),
		exit(nrProbe, -int64(unix.ENOENT)),
		exited(0),
	)
	require.NoError(t, err)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, int64(-2), rec.calls[0].Ret)
	assert.Equal(t, "probe(1) = -2 ENOENT (no such file or directory)", rec.lines()[0])
}

func TestControllerForwardsSignals(t *testing.T) {
	proc, rec, res, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		entry(nrProbe, 1),
		signal(unix.SIGCHLD),
		exit(nrProbe, 0),
		signal(unix.SIGUSR1),
		entry(nrOther),
		exit(nrOther, 0),
		exited(0),
	)
	require.NoError(t, err)

	assert.Equal(t, []unix.Signal{0, 0, unix.SIGCHLD, 0, unix.SIGUSR1, 0, 0}, proc.resumes)
	assert.Equal(t, 2, res.Forwarded)
	assert.Equal(t, []string{"probe(1) = 0"}, rec.lines())
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 2, res.Exits)
	assertAlternates(t, rec.stops)
}

func TestControllerGroupStopCountedOnce(t *testing.T) {
	proc, _, res, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		signal(unix.SIGTSTP),
		signal(unix.SIGTSTP),
		entry(nrProbe, 1),
		exit(nrProbe, 0),
		exited(0),
	)
	require.NoError(t, err)

	assert.Equal(t, []unix.Signal{0, unix.SIGTSTP, 0, 0, 0}, proc.resumes)
	assert.Equal(t, 1, res.Forwarded)
	assert.Equal(t, 1, res.Entries)
}

func TestControllerRepeatedStopSignalsForwarded(t *testing.T) {
	// a fresh SIGSTOP after a different injected signal is a new delivery
	proc, _, res, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		signal(unix.SIGUSR1),
		signal(unix.SIGSTOP),
		signal(unix.SIGSTOP),
		exited(0),
	)
	require.NoError(t, err)

	assert.Equal(t, []unix.Signal{0, unix.SIGUSR1, unix.SIGSTOP, 0}, proc.resumes)
	assert.Equal(t, 2, res.Forwarded)
}

func TestControllerExecEventKeepsAlternation(t *testing.T) {
	proc, _, res, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		entry(nrOther),
		step{stop: Stop{Kind: StopPtraceEvent, Status: unix.PTRACE_EVENT_EXEC}},
		exit(nrOther, 0),
		exited(0),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Entries)
	assert.Equal(t, 1, res.Exits)
	assert.Zero(t, res.Forwarded)
	for _, sig := range proc.resumes {
		assert.Zero(t, sig)
	}
}

func TestControllerExitInsideCall(t *testing.T) {
	_, rec, res, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		entry(nrProbe, 60),
		exited(1),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"probe(60) = ?"}, rec.lines())
	assert.True(t, rec.calls[0].Unfinished)
	assert.Equal(t, 1, res.Entries)
	assert.Equal(t, 0, res.Exits)
	assert.Equal(t, 1, res.ExitStatus())
	assert.Equal(t, "+++ exited with 1 +++", res.String())
}

func TestControllerKilled(t *testing.T) {
	_, _, res, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		entry(nrOther),
		exit(nrOther, 0),
		step{stop: Stop{Kind: StopKilled, Signal: unix.SIGKILL}},
	)
	require.NoError(t, err)

	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, 9, res.Signal)
	assert.Equal(t, "SIGKILL", res.SignalName)
	assert.Equal(t, 137, res.ExitStatus())
	assert.Equal(t, "+++ killed by SIGKILL +++", res.String())
}

func TestControllerKillOnExitOption(t *testing.T) {
	proc, _, _, err := runScript(t, Config{KillOnExit: true}, probeRegistry(), initial(), exited(0))
	require.NoError(t, err)
	assert.True(t, proc.killOnExit)
}

func TestControllerSetupErrors(t *testing.T) {
	t.Run("not a trap", func(t *testing.T) {
		proc, _, _, err := runScript(t, Config{}, probeRegistry(), signal(unix.SIGSEGV))

		var serr *TraceSetupError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "initial stop", serr.Stage)
		assert.True(t, proc.killed)
	})

	t.Run("exited before stop", func(t *testing.T) {
		_, _, _, err := runScript(t, Config{}, probeRegistry(), exited(127))

		var serr *TraceSetupError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("options rejected", func(t *testing.T) {
		proc := &fakeProcess{script: []step{initial()}, optionsErr: unix.EINVAL}
		_, err := newController(proc, Config{}, probeRegistry(), &recorder{}).run(context.Background())

		var serr *TraceSetupError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "set options", serr.Stage)
		assert.ErrorIs(t, err, unix.EINVAL)
		assert.True(t, proc.killed)
		assert.Empty(t, proc.resumes)
	})
}

func TestControllerRegisterReadFailureKeepsAlternation(t *testing.T) {
	bad := entry(nrProbe, 1)
	bad.regsErr = unix.ESRCH

	_, rec, res, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		bad,
		exit(nrProbe, 0),
		entry(nrProbe, 2),
		exit(nrProbe, 0),
		exited(0),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"probe(2) = 0"}, rec.lines())
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 2, res.Exits)
}

func TestControllerExitRegisterFailure(t *testing.T) {
	bad := exit(nrProbe, 0)
	bad.regsErr = unix.EIO

	_, rec, _, err := runScript(t, Config{}, probeRegistry(),
		initial(),
		entry(nrProbe, 3),
		bad,
		exited(0),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"probe(3) = ?"}, rec.lines())
}

func TestControllerStopsDecodingWhenTraceeGone(t *testing.T) {
	reg := decode.NewRegistry()
	reg.Register(nrProbe, decode.Decoder{Name: "probe", Decode: func(c *decode.Call) []string {
		return []string{c.Fail(0x1000, &remote.ReadError{Addr: 0x1000, Err: unix.ESRCH})}
	}})

	_, rec, _, err := runScript(t, Config{ShowAll: true}, reg,
		initial(),
		entry(nrProbe),
		exit(nrProbe, 0),
		entry(nrProbe),
		exit(nrProbe, 0),
		exited(0),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"probe(0x1000) = 0", "syscall 1000 = 0"}, rec.lines())
}

func TestControllerDecodesOpenatFromMemory(t *testing.T) {
	path := []byte("/etc/hostname\x00\x00\x00")
	mem := memoryFunc(func(addr uintptr) ([remote.WordSize]byte, error) {
		var w [remote.WordSize]byte
		off := int(addr) - 0x10000
		if off < 0 || off+remote.WordSize > len(path) {
			return w, unix.EFAULT
		}
		copy(w[:], path[off:])
		return w, nil
	})

	cwd := int64(unix.AT_FDCWD)
	proc := &fakeProcess{mem: mem, script: []step{
		initial(),
		entry(unix.SYS_OPENAT, uint64(cwd), 0x10000, unix.O_RDONLY|unix.O_CLOEXEC),
		exit(unix.SYS_OPENAT, 3),
		exited(0),
	}}
	rec := &recorder{}
	_, err := newController(proc, Config{Limits: remote.DefaultLimits()}, decode.DefaultRegistry(), rec).run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"openat(AT_FDCWD, '/etc/hostname', O_RDONLY|O_CLOEXEC, 0) = 3"}, rec.lines())
}

type memoryFunc func(addr uintptr) ([remote.WordSize]byte, error)

func (f memoryFunc) PeekWord(addr uintptr) ([remote.WordSize]byte, error) { return f(addr) }

func TestControllerCancellationDetaches(t *testing.T) {
	tests := []struct {
		name    string
		next    step
		wantSig unix.Signal
	}{
		{"own stop signal not forwarded", signal(unix.SIGSTOP), 0},
		{"pending signal forwarded", signal(unix.SIGTERM), unix.SIGTERM},
		{"syscall stop", entry(nrProbe, 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			proc := &fakeProcess{script: []step{initial(), tt.next, exited(0)}}
			rec := &recorder{}
			res, err := newController(proc, Config{}, probeRegistry(), rec).run(ctx)
			require.NoError(t, err)

			assert.Equal(t, Detached, res.State)
			assert.True(t, proc.detached)
			assert.Equal(t, tt.wantSig, proc.detachSig)
			assert.Empty(t, rec.calls)
			assert.Equal(t, "+++ detached +++", res.String())
			assert.Equal(t, 0, res.ExitStatus())
		})
	}
}

func TestControllerCancellationAfterExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := &fakeProcess{script: []step{initial(), exited(3)}}
	res, err := newController(proc, Config{}, probeRegistry(), &recorder{}).run(ctx)
	require.NoError(t, err)

	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, proc.detached)
}

func TestControllerResumeErrors(t *testing.T) {
	t.Run("tracee gone is not fatal", func(t *testing.T) {
		proc := &fakeProcess{script: []step{initial(), exited(0)}, resumeErr: unix.ESRCH}
		res, err := newController(proc, Config{}, probeRegistry(), &recorder{}).run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Terminated, res.State)
	})

	t.Run("other errors abort", func(t *testing.T) {
		proc := &fakeProcess{script: []step{initial(), exited(0)}, resumeErr: unix.EPERM}
		_, err := newController(proc, Config{}, probeRegistry(), &recorder{}).run(context.Background())
		assert.ErrorIs(t, err, unix.EPERM)
	})
}

func TestControllerWaitError(t *testing.T) {
	_, _, res, err := runScript(t, Config{}, probeRegistry(), initial(), entry(nrOther))
	require.Error(t, err)
	assert.Equal(t, ExitWait, res.State)
}
