package executil

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("relies on POSIX utilities")
	}
}

func TestRun_Stdout(t *testing.T) {
	skipOnWindows(t)

	res := Run(context.Background(), nil, "sh", "-c", "echo one; echo two")

	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.Exit)
	assert.Equal(t, "one\ntwo", res.Output())
}

func TestRun_Stdin(t *testing.T) {
	skipOnWindows(t)

	res := Run(context.Background(), strings.NewReader("{\"id\":\"x\"}\n"), "cat")

	require.NoError(t, res.Err)
	assert.Equal(t, `{"id":"x"}`, res.Output())
}

func TestRun_NonZeroExit(t *testing.T) {
	skipOnWindows(t)

	res := Run(context.Background(), nil, "sh", "-c", "echo boom >&2; exit 3")

	require.Error(t, res.Err)
	assert.Equal(t, 3, res.Exit)
	assert.Contains(t, res.ErrOutput(), "boom")
}

func TestRun_Timeout(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res := Run(ctx, nil, "sleep", "5")

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "timed out")
}

func TestRun_MissingBinary(t *testing.T) {
	res := Run(context.Background(), nil, "profsweep-no-such-binary")
	assert.Error(t, res.Err)
}
