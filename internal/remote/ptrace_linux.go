package remote

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PtraceMemory reads a ptrace-stopped process's memory with PTRACE_PEEKDATA.
// It must be used from the OS thread that owns the trace.
type PtraceMemory struct {
	PID int
}

func (m PtraceMemory) PeekWord(addr uintptr) ([WordSize]byte, error) {
	var word [WordSize]byte
	n, err := unix.PtracePeekData(m.PID, addr, word[:])
	if err != nil {
		return word, err
	}
	if n != WordSize {
		return word, fmt.Errorf("short peek: %d of %d bytes", n, WordSize)
	}
	return word, nil
}

var _ Memory = PtraceMemory{}
