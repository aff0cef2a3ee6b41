package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "profsweep.pid")

	l, err := Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())

	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, l.Release())
	assert.NoFileExists(t, path)
	assert.NoError(t, l.Release())
}

func TestAcquire_HeldByLiveProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("signal 0 is not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "profsweep.pid")
	// the parent of the test binary is alive for the whole test
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getppid())), 0o600))

	_, err := Acquire(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))
}

func TestAcquire_TakesOverStaleFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "not a pid\n"},
		{"dead pid", "0\n"},
		{"own pid", fmt.Sprintf("%d\n", os.Getpid())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profsweep.pid")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			l, err := Acquire(path)
			require.NoError(t, err)
			defer l.Release()

			pid, err := ReadPID(path)
			require.NoError(t, err)
			assert.Equal(t, os.Getpid(), pid)
		})
	}
}

func TestIsRunning(t *testing.T) {
	assert.False(t, IsRunning(0))
	assert.False(t, IsRunning(-1))
	if runtime.GOOS != "windows" {
		assert.True(t, IsRunning(os.Getpid()))
	}
}
