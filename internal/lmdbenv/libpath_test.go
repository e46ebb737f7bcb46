package lmdbenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLibrary_EnvVarWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liblmdb.so")
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))

	t.Setenv(libraryEnvVar, path)

	got, err := resolveLibrary(newConfig())
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveLibrary_OptionPropertyIsSecondTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liblmdb.so")
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))

	cfg := newConfig()
	cfg.LibraryPath = path

	got, err := resolveLibrary(cfg)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveLibrary_NoneFoundIsError(t *testing.T) {
	cfg := newConfig()
	cfg.LibraryPath = filepath.Join(t.TempDir(), "does-not-exist.so")

	_, err := resolveLibrary(cfg)
	assert.Error(t, err)
}
