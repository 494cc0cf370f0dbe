package pid_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, pid.Write(dir, "thermochart"))

	data, err := os.ReadFile(filepath.Join(dir, "thermochart.pid"))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, pid.Remove(dir, "thermochart"))
	_, err = os.Stat(pid.Path(dir, "thermochart"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, pid.Remove(dir, "thermochart"), "removing twice is fine")
}

func TestWriteReplacesStaleFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(pid.Path(dir, "thermochart"), []byte("not-a-pid"), 0o600))

	require.NoError(t, pid.Write(dir, "thermochart"))
}

func TestWriteRefusesWhileRunning(t *testing.T) {
	cmd := exec.Command("sleep", "10")
	if err := cmd.Start(); err != nil {
		t.Skip("sleep not available")
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(pid.Path(dir, "thermochart"), []byte(strconv.Itoa(cmd.Process.Pid)), 0o600))

	err := pid.Write(dir, "thermochart")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}
