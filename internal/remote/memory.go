// Package remote reads raw bytes out of a stopped tracee's address space.
//
// All reads go through the Memory interface one aligned machine word at a
// time. Nothing here interprets the bytes; callers overlay layouts on the
// returned buffers themselves after validating lengths and discriminants.
package remote

import (
	"bytes"
	"fmt"
)

// WordSize is the width of a single remote read.
const WordSize = 8

// PathMax mirrors the kernel's PATH_MAX and is the default display cap for
// strings pulled out of the tracee.
const PathMax = 4096

// Memory reads one word of a remote address space.
type Memory interface {
	// PeekWord returns the word stored at addr. addr is always WordSize aligned.
	PeekWord(addr uintptr) ([WordSize]byte, error)
}

// Limits bounds a string scan.
type Limits struct {
	// MaxStringLen caps the number of bytes returned.
	MaxStringLen int
	// MaxWords caps the number of word reads, independent of MaxStringLen, so
	// unterminated memory cannot stall the scan.
	MaxWords int
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		MaxStringLen: PathMax,
		MaxWords:     1024,
	}
}

// ReadError is returned when a word of remote memory cannot be read, usually
// because the address is unmapped or the tracee is gone.
type ReadError struct {
	Addr uintptr
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read remote memory at 0x%x: %v", e.Addr, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Text is a string recovered from remote memory.
type Text struct {
	Value []byte
	// Truncated is set when the scan hit a limit before finding a terminator.
	Truncated bool
}

func (t Text) String() string {
	return string(t.Value)
}

// ReadString scans a NUL-terminated string starting at addr.
func ReadString(mem Memory, addr uintptr, lim Limits) (Text, error) {
	if lim.MaxStringLen <= 0 || lim.MaxWords <= 0 {
		lim = DefaultLimits()
	}

	base := addr &^ (WordSize - 1)
	skip := int(addr - base)

	buf := make([]byte, 0, WordSize*4)
	for i := 0; i < lim.MaxWords; i++ {
		wordAddr := base + uintptr(i*WordSize)
		word, err := mem.PeekWord(wordAddr)
		if err != nil {
			return Text{}, &ReadError{Addr: wordAddr, Err: err}
		}
		chunk := word[:]
		if i == 0 {
			chunk = chunk[skip:]
		}
		if nul := bytes.IndexByte(chunk, 0); nul >= 0 {
			buf = append(buf, chunk[:nul]...)
			return capText(buf, lim.MaxStringLen, false), nil
		}
		buf = append(buf, chunk...)
		if len(buf) > lim.MaxStringLen {
			return capText(buf, lim.MaxStringLen, true), nil
		}
	}
	return capText(buf, lim.MaxStringLen, true), nil
}

func capText(buf []byte, max int, truncated bool) Text {
	if len(buf) > max {
		return Text{Value: buf[:max], Truncated: true}
	}
	return Text{Value: buf, Truncated: truncated}
}

// ReadBytes returns exactly n bytes starting at addr.
func ReadBytes(mem Memory, addr uintptr, n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}

	base := addr &^ (WordSize - 1)
	skip := int(addr - base)
	end := addr + uintptr(n)

	buf := make([]byte, 0, n+2*WordSize)
	for wordAddr := base; wordAddr < end; wordAddr += WordSize {
		word, err := mem.PeekWord(wordAddr)
		if err != nil {
			return nil, &ReadError{Addr: wordAddr, Err: err}
		}
		buf = append(buf, word[:]...)
	}
	return buf[skip : skip+n], nil
}
