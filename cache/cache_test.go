package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsNilNoError(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), ".mako_cache"), 42)
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mako_cache")
	c := New(42)
	c.Put("src/index.ts", Entry{ContentHash: 7, GeneratedID: "a1b2"})

	require.NoError(t, Save(path, c))

	loaded, err := Load(path, 42)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	e, ok := loaded.Get("src/index.ts")
	require.True(t, ok)
	require.Equal(t, uint64(7), e.ContentHash)
	require.Equal(t, "a1b2", e.GeneratedID)
}

func TestLoadBoundaryMismatchForcesColdRebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mako_cache")
	require.NoError(t, Save(path, New(1)))

	loaded, err := Load(path, 2)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestLoadCorruptFileTreatedAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mako_cache")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	loaded, err := Load(path, 1)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestFresh(t *testing.T) {
	c := New(1)
	c.Put("a.ts", Entry{ContentHash: 5})

	require.True(t, c.Fresh("a.ts", 5))
	require.False(t, c.Fresh("a.ts", 6))
	require.False(t, c.Fresh("missing.ts", 5))
}
