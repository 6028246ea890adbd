package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsStartupErrors(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("DATABASE_DRIVER", "sqlite")
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")

	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("UPLOAD_DIR", filepath.Join(blocker, "uploads"))
	t.Setenv("LOG_LEVEL", "error")
	err = run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepare upload directory")
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
