//go:build !linux

package trace

import (
	"context"
	"strconv"
)

func (t *Tracer) run(ctx context.Context, argv []string) (Result, error) {
	return Result{}, ErrUnsupported
}

func formatReturn(v int64) string {
	return strconv.FormatInt(v, 10)
}

// DecoderNames lists the system calls decoded in depth on this platform.
func DecoderNames() []string {
	return nil
}
