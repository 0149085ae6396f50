package trace

import (
	"os"
	"os/exec"
	"syscall"
)

// Prepare resolves path and returns a command that will stop at its first
// instruction under ptrace once started. args excludes the program name.
// The child inherits stdio and the environment.
func Prepare(path string, args []string) (*exec.Cmd, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, &LaunchError{Path: path, Err: err}
	}

	cmd := exec.Command(resolved, args...)
	cmd.Args = append([]string{path}, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
	return cmd, nil
}

// Start starts cmd and returns the tracee's pid. The calling goroutine must
// be locked to its OS thread, and every later ptrace request for the tracee
// must come from that thread.
func Start(cmd *exec.Cmd) (int, error) {
	if err := cmd.Start(); err != nil {
		return 0, &LaunchError{Path: cmd.Path, Err: err}
	}
	return cmd.Process.Pid, nil
}
