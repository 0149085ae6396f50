package trace

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// String renders the call the way it appears in a trace line, without the
// leading marker.
func (s Syscall) String() string {
	return s.render(func(name string) string { return name })
}

func (s Syscall) render(style func(string) string) string {
	var b strings.Builder
	if s.Decoded() {
		b.WriteString(style(s.Name))
		b.WriteByte('(')
		b.WriteString(strings.Join(s.Args, ", "))
		b.WriteByte(')')
	} else {
		b.WriteString("syscall ")
		b.WriteString(strconv.FormatUint(s.Number, 10))
	}
	b.WriteString(" = ")
	if s.Unfinished {
		b.WriteByte('?')
	} else {
		b.WriteString(formatReturn(s.Ret))
	}
	return b.String()
}

// String renders the closing line of a trace.
func (r Result) String() string {
	switch {
	case r.State == Detached:
		return "+++ detached +++"
	case r.Signal != 0:
		name := r.SignalName
		if name == "" {
			name = "signal " + strconv.Itoa(r.Signal)
		}
		return fmt.Sprintf("+++ killed by %s +++", name)
	default:
		return fmt.Sprintf("+++ exited with %d +++", r.ExitCode)
	}
}

// LineWriter prints trace lines.
type LineWriter struct {
	w io.Writer
	// Style decorates the syscall name, e.g. with bold when color is on.
	Style func(string) string
}

// NewLineWriter returns a LineWriter writing to w with no styling.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// Syscall writes one call. It has the signature of an OnSyscall callback.
func (lw *LineWriter) Syscall(s Syscall) {
	style := lw.Style
	if style == nil {
		style = func(name string) string { return name }
	}
	fmt.Fprintf(lw.w, "> %s\n", s.render(style))
}

// Result writes the closing line.
func (lw *LineWriter) Result(r Result) {
	fmt.Fprintln(lw.w, r.String())
}
