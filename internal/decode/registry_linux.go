package decode

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/majorcontext/sctrace/internal/remote"
	"golang.org/x/sys/unix"
)

// Call is the input to a decoder: the entry registers of one syscall and a
// view of the stopped tracee's memory.
type Call struct {
	Number uint64
	Args   [6]uint64
	Mem    remote.Memory
	Limits remote.Limits

	// Errs collects per-argument read failures. The argument itself is still
	// rendered, as a placeholder.
	Errs []error
}

// Int returns argument i as a C int.
func (c *Call) Int(i int) int32 {
	return int32(c.Args[i])
}

// Addr returns argument i as a pointer.
func (c *Call) Addr(i int) uintptr {
	return uintptr(c.Args[i])
}

// Fail records a read failure and returns the placeholder for addr.
func (c *Call) Fail(addr uintptr, err error) string {
	c.Errs = append(c.Errs, err)
	return Placeholder(addr)
}

// Gone reports whether any recorded failure means the tracee no longer exists.
func (c *Call) Gone() bool {
	for _, err := range c.Errs {
		if errors.Is(err, unix.ESRCH) {
			return true
		}
	}
	return false
}

// DecodeFunc renders the arguments of one call.
type DecodeFunc func(c *Call) []string

// Decoder names a syscall and renders its arguments.
type Decoder struct {
	Name   string
	Decode DecodeFunc
}

// Registry maps syscall numbers to decoders.
type Registry struct {
	decoders map[uint64]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[uint64]Decoder)}
}

// DefaultRegistry returns a registry with every decoder this package has for
// the build architecture.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(unix.SYS_OPENAT, Decoder{Name: "openat", Decode: decodeOpenat})
	r.Register(unix.SYS_CONNECT, Decoder{Name: "connect", Decode: decodeConnect})
	registerArch(r)
	return r
}

// Register installs d for syscall nr, replacing any previous decoder.
func (r *Registry) Register(nr uint64, d Decoder) {
	r.decoders[nr] = d
}

// Lookup returns the decoder for nr.
func (r *Registry) Lookup(nr uint64) (Decoder, bool) {
	d, ok := r.decoders[nr]
	return d, ok
}

// Names returns the registered syscall names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.decoders))
	for _, d := range r.decoders {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// Placeholder renders an argument that could not be read.
func Placeholder(addr uintptr) string {
	return fmt.Sprintf("%#x", addr)
}

// FormatDirFD renders a directory file descriptor argument.
func FormatDirFD(fd int32) string {
	if fd == unix.AT_FDCWD {
		return "AT_FDCWD"
	}
	return strconv.Itoa(int(fd))
}

// FormatMode renders a permission mode in octal.
func FormatMode(mode uint64) string {
	return fmt.Sprintf("%#o", mode&0o7777)
}

// FormatPath renders a remote string in single quotes. Truncated strings are
// suffixed with "...".
func FormatPath(t remote.Text) string {
	q := strconv.Quote(string(t.Value))
	inner := q[1 : len(q)-1]
	inner = strings.ReplaceAll(inner, `\"`, `"`)
	inner = strings.ReplaceAll(inner, `'`, `\'`)
	s := "'" + inner + "'"
	if t.Truncated {
		s += "..."
	}
	return s
}

func (c *Call) path(i int) string {
	addr := c.Addr(i)
	if addr == 0 {
		return "NULL"
	}
	t, err := remote.ReadString(c.Mem, addr, c.Limits)
	if err != nil {
		return c.Fail(addr, err)
	}
	return FormatPath(t)
}

// openat(int dirfd, const char *pathname, int flags, mode_t mode)
func decodeOpenat(c *Call) []string {
	return []string{
		FormatDirFD(c.Int(0)),
		c.path(1),
		DecodeOpenFlags(uint64(uint32(c.Args[2]))).String(),
		FormatMode(c.Args[3]),
	}
}

// open(const char *pathname, int flags, mode_t mode)
func decodeOpen(c *Call) []string {
	return []string{
		c.path(0),
		DecodeOpenFlags(uint64(uint32(c.Args[1]))).String(),
		FormatMode(c.Args[2]),
	}
}

// connect(int sockfd, const struct sockaddr *addr, socklen_t addrlen)
func decodeConnect(c *Call) []string {
	addrlen := int(uint32(c.Args[2]))
	return []string{
		strconv.Itoa(int(c.Int(0))),
		c.sockaddr(1, addrlen),
		strconv.Itoa(addrlen),
	}
}

func (c *Call) sockaddr(i, addrlen int) string {
	addr := c.Addr(i)
	if addr == 0 {
		return "NULL"
	}
	n := min(addrlen, MaxSockAddrLen)
	if n < familyLen {
		return Placeholder(addr)
	}
	b, err := remote.ReadBytes(c.Mem, addr, n)
	if err != nil {
		return c.Fail(addr, err)
	}
	sa, err := DecodeSockAddr(b)
	if err != nil {
		c.Errs = append(c.Errs, err)
	}
	return sa.String()
}
