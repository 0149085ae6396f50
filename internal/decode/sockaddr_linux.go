package decode

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

// MaxSockAddrLen is sizeof(struct sockaddr_storage). Longer addrlen values are
// clamped to it before reading.
const MaxSockAddrLen = 128

// Layout sizes, from the kernel's uapi headers.
const (
	sizeofSockaddrInet6 = 28  // struct sockaddr_in6
	sizeofSockaddrUnix  = 110 // struct sockaddr_un
	familyLen           = 2
)

var (
	// ErrUnknownFamily is returned for an address family this package does not
	// lay out. The returned SockAddr still renders as raw bytes.
	ErrUnknownFamily = errors.New("unknown socket address family")

	// ErrShortSockAddr is returned when the buffer is too small for the layout
	// its family calls for.
	ErrShortSockAddr = errors.New("socket address shorter than its family layout")
)

var familyNames = map[uint16]string{
	unix.AF_UNIX:  "AF_UNIX",
	unix.AF_INET:  "AF_INET",
	unix.AF_INET6: "AF_INET6",
}

// SockAddr is a socket address recovered from tracee memory.
type SockAddr struct {
	Family uint16
	// Addr is the dotted or colon form for inet families and the socket path
	// for AF_UNIX. Empty when the address could not be laid out.
	Addr    string
	Port    uint16
	HasPort bool
	// Abstract marks an AF_UNIX address in the abstract namespace.
	Abstract bool
	// Raw holds the bytes after the family field. It is only rendered when the
	// layout was not decoded.
	Raw     []byte
	decoded bool
}

// FamilyName returns the AF_ constant name, or "family=N" when unknown.
func (s SockAddr) FamilyName() string {
	if name, ok := familyNames[s.Family]; ok {
		return name
	}
	return "family=" + strconv.Itoa(int(s.Family))
}

func (s SockAddr) String() string {
	if !s.decoded {
		return fmt.Sprintf("{%s, data=%s}", s.FamilyName(), hex.EncodeToString(s.Raw))
	}
	switch s.Family {
	case unix.AF_UNIX:
		switch {
		case s.Abstract:
			return fmt.Sprintf("{AF_UNIX, @%s}", strconv.Quote(s.Addr))
		case s.Addr == "":
			return "{AF_UNIX}"
		default:
			return fmt.Sprintf("{AF_UNIX, %s}", strconv.Quote(s.Addr))
		}
	default:
		return fmt.Sprintf("{%s, %s}", s.FamilyName(), s.hostPort())
	}
}

func (s SockAddr) hostPort() string {
	addr, err := netip.ParseAddr(s.Addr)
	if err != nil {
		return s.Addr
	}
	return netip.AddrPortFrom(addr, s.Port).String()
}

// DecodeSockAddr lays out b according to the family in its first two bytes.
// b is the tracee's struct sockaddr truncated to addrlen. For unknown families
// and buffers too short for their layout it returns a raw rendering together
// with ErrUnknownFamily or ErrShortSockAddr.
func DecodeSockAddr(b []byte) (SockAddr, error) {
	if len(b) < familyLen {
		return SockAddr{}, fmt.Errorf("%w: %d bytes", ErrShortSockAddr, len(b))
	}

	// sa_family is in host byte order, everything after it is family specific.
	sa := SockAddr{
		Family: binary.NativeEndian.Uint16(b[:familyLen]),
		Raw:    append([]byte(nil), b[familyLen:]...),
	}

	switch sa.Family {
	case unix.AF_INET:
		if len(b) < 8 {
			return sa, fmt.Errorf("%w: AF_INET needs 8 bytes, have %d", ErrShortSockAddr, len(b))
		}
		sa.Port = binary.BigEndian.Uint16(b[2:4])
		sa.Addr = netip.AddrFrom4([4]byte(b[4:8])).String()
		sa.HasPort = true

	case unix.AF_INET6:
		if len(b) < 24 {
			return sa, fmt.Errorf("%w: AF_INET6 needs 24 bytes, have %d", ErrShortSockAddr, len(b))
		}
		sa.Port = binary.BigEndian.Uint16(b[2:4])
		addr := netip.AddrFrom16([16]byte(b[8:24]))
		if len(b) >= sizeofSockaddrInet6 {
			if scope := binary.NativeEndian.Uint32(b[24:28]); scope != 0 {
				addr = addr.WithZone(strconv.FormatUint(uint64(scope), 10))
			}
		}
		sa.Addr = addr.String()
		sa.HasPort = true

	case unix.AF_UNIX:
		path := b[familyLen:min(len(b), sizeofSockaddrUnix)]
		if len(path) > 0 && path[0] == 0 {
			// abstract names are length delimited, not NUL terminated
			sa.Abstract = true
			sa.Addr = string(path[1:])
		} else {
			sa.Addr = string(cstring(path))
		}

	default:
		return sa, fmt.Errorf("%w: %d", ErrUnknownFamily, sa.Family)
	}

	sa.decoded = true
	return sa, nil
}

func cstring(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
