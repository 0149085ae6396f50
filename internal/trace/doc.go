// Package trace runs a program under ptrace and reports the system calls it
// makes.
//
// # Platform Support
//
// Linux on amd64 and arm64. The tracer launches the target itself with
// PTRACE_TRACEME and drives it with PTRACE_SYSCALL, so no extra privileges
// are needed unless the Yama ptrace_scope setting forbids tracing children.
//
// Other platforms: Run returns ErrUnsupported.
//
// # Usage
//
//	tracer := trace.New(trace.Config{Limits: remote.DefaultLimits()})
//
//	tracer.OnSyscall(func(s trace.Syscall) {
//	    fmt.Println(s)
//	})
//
//	res, err := tracer.Run(ctx, []string{"/bin/cat", "/etc/hostname"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res)
//
// # Stop handling
//
// Every system call produces an entry stop and an exit stop, and both are
// consumed whether or not a decoder exists for the call. Signal stops are
// forwarded to the tracee on the next resume. Cancelling the context detaches
// from the tracee and leaves it running.
package trace
