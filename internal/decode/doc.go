// Package decode turns raw syscall arguments into the text shown on a trace
// line.
//
// Decoders are looked up by syscall number in a Registry. Each decoder reads
// whatever it needs from the tracee through remote.Memory while the tracee is
// stopped, and renders a placeholder for any argument it cannot read instead
// of failing the whole call.
//
// Only open, openat and connect are decoded. Everything else is left to the
// caller to acknowledge by number.
package decode
