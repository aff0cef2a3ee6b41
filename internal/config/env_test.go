package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `# comment
PROFSWEEP_ENV_A=alpha
export PROFSWEEP_ENV_B="beta gamma"
PROFSWEEP_ENV_C='delta'

not a pair
PROFSWEEP_ENV_SET=overridden
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PROFSWEEP_ENV_SET", "kept")
	for _, k := range []string{"PROFSWEEP_ENV_A", "PROFSWEEP_ENV_B", "PROFSWEEP_ENV_C"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	require.NoError(t, LoadEnv(path))

	assert.Equal(t, "alpha", os.Getenv("PROFSWEEP_ENV_A"))
	assert.Equal(t, "beta gamma", os.Getenv("PROFSWEEP_ENV_B"))
	assert.Equal(t, "delta", os.Getenv("PROFSWEEP_ENV_C"))
	assert.Equal(t, "kept", os.Getenv("PROFSWEEP_ENV_SET"))
}

func TestLoadEnvOptional(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadEnvOptional(filepath.Join(dir, "missing.env")))
	assert.Error(t, LoadEnv(filepath.Join(dir, "missing.env")))
}
