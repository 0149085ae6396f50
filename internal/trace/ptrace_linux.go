package trace

import (
	"errors"

	"github.com/majorcontext/sctrace/internal/remote"
	"golang.org/x/sys/unix"
)

// syscallTrap is the stop signal of a syscall stop under PTRACE_O_TRACESYSGOOD.
const syscallTrap = unix.SIGTRAP | 0x80

// ptraceProcess drives a real tracee with ptrace(2) and wait4(2).
type ptraceProcess struct {
	pid int
}

func newPtraceProcess(pid int) *ptraceProcess {
	return &ptraceProcess{pid: pid}
}

func (p *ptraceProcess) PID() int {
	return p.pid
}

func (p *ptraceProcess) SetOptions(killOnExit bool) error {
	opts := unix.PTRACE_O_TRACESYSGOOD | unix.PTRACE_O_TRACEEXEC
	if killOnExit {
		opts |= unix.PTRACE_O_EXITKILL
	}
	return unix.PtraceSetOptions(p.pid, opts)
}

func (p *ptraceProcess) Resume(sig unix.Signal) error {
	return unix.PtraceSyscall(p.pid, int(sig))
}

func (p *ptraceProcess) Wait() (Stop, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(p.pid, &ws, unix.WALL, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return Stop{}, err
		}
		return classify(ws), nil
	}
}

// classify turns a raw wait status into a Stop.
func classify(ws unix.WaitStatus) Stop {
	switch {
	case ws.Exited():
		return Stop{Kind: StopExited, Status: ws.ExitStatus()}
	case ws.Signaled():
		return Stop{Kind: StopKilled, Signal: ws.Signal()}
	case ws.Stopped():
		sig := ws.StopSignal()
		if sig == syscallTrap {
			return Stop{Kind: StopSyscall}
		}
		if sig == unix.SIGTRAP && ws.TrapCause() > 0 {
			return Stop{Kind: StopPtraceEvent, Status: ws.TrapCause()}
		}
		return Stop{Kind: StopSignal, Signal: sig}
	}
	// continued; nothing to deliver
	return Stop{Kind: StopSignal}
}

func (p *ptraceProcess) Registers() (Registers, error) {
	regs, err := readRegisters(p.pid)
	if err != nil {
		return Registers{}, &RegisterReadError{PID: p.pid, Err: err}
	}
	return regs, nil
}

func (p *ptraceProcess) Memory() remote.Memory {
	return remote.PtraceMemory{PID: p.pid}
}

func (p *ptraceProcess) Detach(sig unix.Signal) error {
	if err := unix.PtraceDetach(p.pid); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	if sig != 0 {
		_ = unix.Kill(p.pid, sig)
	}
	// clears a stop signal still pending from Interrupt
	return unix.Kill(p.pid, unix.SIGCONT)
}

func (p *ptraceProcess) Kill() error {
	return unix.Kill(p.pid, unix.SIGKILL)
}

func (p *ptraceProcess) Interrupt() error {
	return unix.Kill(p.pid, unix.SIGSTOP)
}

var _ Process = (*ptraceProcess)(nil)
