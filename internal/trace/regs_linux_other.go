//go:build linux && !amd64 && !arm64

package trace

import (
	"fmt"
	"runtime"
)

func readRegisters(pid int) (Registers, error) {
	return Registers{}, fmt.Errorf("%w: register layout for %s", ErrUnsupported, runtime.GOARCH)
}
