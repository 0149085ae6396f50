package doctor

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/majorcontext/sctrace/internal/ui"
)

// Proc paths read by the sections. Tests point them at temp files.
const (
	DefaultPtraceScopePath = "/proc/sys/kernel/yama/ptrace_scope"
	DefaultOSReleasePath   = "/proc/sys/kernel/osrelease"
)

// supportedArches are the architectures with a register mapping.
var supportedArches = map[string]bool{"amd64": true, "arm64": true}

// PlatformSection shows the build, OS and kernel.
type PlatformSection struct {
	Version       string
	GOOS, GOARCH  string
	OSReleasePath string
}

// NewPlatformSection describes the running binary.
func NewPlatformSection(version string) *PlatformSection {
	return &PlatformSection{
		Version:       version,
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
		OSReleasePath: DefaultOSReleasePath,
	}
}

func (s *PlatformSection) Name() string { return "Platform" }

func (s *PlatformSection) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Version:\t%s\n", s.Version)

	supported := s.GOOS == "linux" && supportedArches[s.GOARCH]
	tag := ui.OKTag()
	if !supported {
		tag = ui.FailTag() + " unsupported, needs linux/amd64 or linux/arm64"
	}
	fmt.Fprintf(tw, "Platform:\t%s/%s %s\n", s.GOOS, s.GOARCH, tag)

	if release, err := os.ReadFile(s.OSReleasePath); err == nil {
		fmt.Fprintf(tw, "Kernel:\t%s\n", strings.TrimSpace(string(release)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !supported {
		return ErrCheckFailed
	}
	return nil
}

// PtraceSection interprets the Yama ptrace_scope setting. sctrace traces its
// own child, which every scope below 2 allows.
type PtraceSection struct {
	ScopePath string
	// Privileged reports whether the process may trace regardless of scope 2.
	Privileged bool
}

// NewPtraceSection reads the live setting.
func NewPtraceSection() *PtraceSection {
	return &PtraceSection{
		ScopePath:  DefaultPtraceScopePath,
		Privileged: os.Geteuid() == 0,
	}
}

func (s *PtraceSection) Name() string { return "Ptrace" }

func (s *PtraceSection) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	ok, err := s.report(tw)
	if ferr := tw.Flush(); err == nil {
		err = ferr
	}
	if err == nil && !ok {
		err = ErrCheckFailed
	}
	return err
}

// report writes the scope line and reports whether tracing is allowed.
func (s *PtraceSection) report(w io.Writer) (bool, error) {
	data, err := os.ReadFile(s.ScopePath)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "Yama:\t%s not enabled, classic ptrace permissions\n", ui.OKTag())
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", s.ScopePath, err)
	}

	scope, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", s.ScopePath, err)
	}

	switch scope {
	case 0:
		fmt.Fprintf(w, "ptrace_scope:\t0 %s classic permissions\n", ui.OKTag())
	case 1:
		fmt.Fprintf(w, "ptrace_scope:\t1 %s restricted to descendants (sctrace launches its own)\n", ui.OKTag())
	case 2:
		if !s.Privileged {
			fmt.Fprintf(w, "ptrace_scope:\t2 %s admin only, needs CAP_SYS_PTRACE\n", ui.FailTag())
			return false, nil
		}
		fmt.Fprintf(w, "ptrace_scope:\t2 %s admin only, running as root\n", ui.OKTag())
	case 3:
		fmt.Fprintf(w, "ptrace_scope:\t3 %s ptrace disabled until reboot\n", ui.FailTag())
		return false, nil
	default:
		fmt.Fprintf(w, "ptrace_scope:\t%d %s unknown value\n", scope, ui.WarnTag())
	}
	return true, nil
}

// DecodersSection lists the system calls decoded in depth.
type DecodersSection struct {
	Names []string
}

func (s *DecodersSection) Name() string { return "Decoders" }

func (s *DecodersSection) Print(w io.Writer) error {
	if len(s.Names) == 0 {
		fmt.Fprintf(w, "%s none available on this platform\n", ui.WarnTag())
		return nil
	}
	fmt.Fprintln(w, strings.Join(s.Names, ", "))
	return nil
}
