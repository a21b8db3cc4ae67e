package main

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PRINTSHOP_DOTENV_PROBE=from-file\nPRINTSHOP_DOTENV_KEEP=from-file\n"), 0o600))

	t.Setenv("PRINTSHOP_DOTENV_KEEP", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("PRINTSHOP_DOTENV_PROBE") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("PRINTSHOP_DOTENV_PROBE"))
	assert.Equal(t, "from-env", os.Getenv("PRINTSHOP_DOTENV_KEEP"))
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestSetupLogger(t *testing.T) {
	previous := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(previous) })

	require.NoError(t, setupLogger("debug"))
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	assert.Error(t, setupLogger("chatty"))
}
