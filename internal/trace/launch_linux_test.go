package trace

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareMissingProgram(t *testing.T) {
	cmd, err := Prepare("/nonexistent/definitely-not-here", nil)
	assert.Nil(t, cmd)

	var lerr *LaunchError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "/nonexistent/definitely-not-here", lerr.Path)
}

func TestPrepareNotInPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := Prepare("sctrace-no-such-tool", []string{"-x"})
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestPrepareResolves(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh in PATH")
	}

	cmd, err := Prepare("sh", []string{"-c", "true"})
	require.NoError(t, err)

	assert.Equal(t, sh, cmd.Path)
	assert.Equal(t, []string{"sh", "-c", "true"}, cmd.Args)
	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Ptrace)
	assert.Nil(t, cmd.Process)
}
