package decode

import (
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"
)

// maxErrno is the largest errno the kernel encodes in a return register.
// Values in [-maxErrno, -1] are failures, anything else is a result.
const maxErrno = 4095

// FormatReturn renders a raw return register. Failures print the negative
// errno unmodified, followed by its name when one is known.
func FormatReturn(raw uint64) string {
	v := int64(raw)
	if v >= -maxErrno && v < 0 {
		errno := unix.Errno(-v)
		if name := unix.ErrnoName(errno); name != "" {
			return fmt.Sprintf("%d %s (%s)", v, name, errno.Error())
		}
	}
	return strconv.FormatInt(v, 10)
}

// Errno returns the errno carried by raw, or 0 for a successful result.
func Errno(raw uint64) unix.Errno {
	v := int64(raw)
	if v >= -maxErrno && v < 0 {
		return unix.Errno(-v)
	}
	return 0
}
