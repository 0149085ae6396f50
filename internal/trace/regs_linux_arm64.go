package trace

import "golang.org/x/sys/unix"

// ntPRStatus selects the general purpose register set (NT_PRSTATUS).
const ntPRStatus = 1

// readRegisters maps the AArch64 syscall ABI: number in x8, arguments in
// x0-x5, result in x0. PTRACE_GETREGS does not exist on arm64, so the
// general purpose set is fetched with PTRACE_GETREGSET.
func readRegisters(pid int) (Registers, error) {
	var r unix.PtraceRegsArm64
	if err := unix.PtraceGetRegSetArm64(pid, ntPRStatus, &r); err != nil {
		return Registers{}, err
	}
	return Registers{
		Nr:   r.Regs[8],
		Args: [6]uint64{r.Regs[0], r.Regs[1], r.Regs[2], r.Regs[3], r.Regs[4], r.Regs[5]},
		Ret:  r.Regs[0],
	}, nil
}
