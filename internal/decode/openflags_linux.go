package decode

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// openFlagTable lists the recognised open(2) flags in display order. Access
// mode is handled separately because O_RDONLY has no bits of its own.
// Entries whose value is zero on the build architecture are skipped.
var openFlagTable = []struct {
	name string
	bits uint64
}{
	{"O_CREAT", unix.O_CREAT},
	{"O_EXCL", unix.O_EXCL},
	{"O_NOCTTY", unix.O_NOCTTY},
	{"O_TRUNC", unix.O_TRUNC},
	{"O_APPEND", unix.O_APPEND},
	{"O_NONBLOCK", unix.O_NONBLOCK},
	{"O_DSYNC", unix.O_DSYNC},
	{"O_ASYNC", unix.O_ASYNC},
	{"O_DIRECT", unix.O_DIRECT},
	{"O_LARGEFILE", unix.O_LARGEFILE},
	{"O_DIRECTORY", unix.O_DIRECTORY},
	{"O_NOFOLLOW", unix.O_NOFOLLOW},
	{"O_NOATIME", unix.O_NOATIME},
	{"O_CLOEXEC", unix.O_CLOEXEC},
	{"O_SYNC", unix.O_SYNC},
	{"O_PATH", unix.O_PATH},
	{"O_TMPFILE", unix.O_TMPFILE},
}

// OpenFlags is an open(2) flag word with the names it contains.
type OpenFlags struct {
	Value uint64
	Names []string
}

// DecodeOpenFlags names the flags set in v. A multi-bit flag is named only
// when all of its bits are set. Bits that match no known flag are dropped.
func DecodeOpenFlags(v uint64) OpenFlags {
	f := OpenFlags{Value: v}

	switch v & unix.O_ACCMODE {
	case unix.O_RDONLY:
		f.Names = append(f.Names, "O_RDONLY")
	case unix.O_WRONLY:
		f.Names = append(f.Names, "O_WRONLY")
	case unix.O_RDWR:
		f.Names = append(f.Names, "O_RDWR")
	}

	for _, fl := range openFlagTable {
		if fl.bits == 0 {
			continue
		}
		if v&fl.bits == fl.bits {
			f.Names = append(f.Names, fl.name)
		}
	}
	return f
}

// Has reports whether name was decoded.
func (f OpenFlags) Has(name string) bool {
	for _, n := range f.Names {
		if n == name {
			return true
		}
	}
	return false
}

func (f OpenFlags) String() string {
	if len(f.Names) == 0 {
		return fmt.Sprintf("%#x", f.Value)
	}
	return strings.Join(f.Names, "|")
}
