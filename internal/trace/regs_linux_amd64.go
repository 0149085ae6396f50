package trace

import "golang.org/x/sys/unix"

// readRegisters maps the x86-64 syscall ABI: number in orig_rax, arguments
// in rdi, rsi, rdx, r10, r8, r9, result in rax.
func readRegisters(pid int) (Registers, error) {
	var r unix.PtraceRegs
	if err := unix.PtraceGetRegs(pid, &r); err != nil {
		return Registers{}, err
	}
	return Registers{
		Nr:   r.Orig_rax,
		Args: [6]uint64{r.Rdi, r.Rsi, r.Rdx, r.R10, r.R8, r.R9},
		Ret:  r.Rax,
	}, nil
}
