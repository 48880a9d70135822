package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIsUniquePerCall(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	a, err := m.Create("vid1")
	require.NoError(t, err)
	b, err := m.Create("vid1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.DirExists(t, a)
	assert.DirExists(t, b)
}

func TestReleaseOnSuccessAlwaysRemoves(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	dir, err := m.Create("vid1")
	require.NoError(t, err)

	require.NoError(t, m.Release(dir, true, true))
	assert.NoDirExists(t, dir)
}

func TestReleaseOnFailureKeepsWhenConfigured(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	dir, err := m.Create("vid1")
	require.NoError(t, err)

	require.NoError(t, m.Release(dir, false, true))
	assert.DirExists(t, dir)
}

func TestReleaseOnFailureRemovesWhenNotKeeping(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	dir, err := m.Create("vid1")
	require.NoError(t, err)

	require.NoError(t, m.Release(dir, false, false))
	assert.NoDirExists(t, dir)
}

func TestSweepRemovesStaleFiles(t *testing.T) {
	root := t.TempDir()
	videoDir := filepath.Join(root, "videos", "vid1")
	require.NoError(t, os.MkdirAll(videoDir, 0o755))

	stale := []string{"x.tmp", "y.part", "z.progress.json.tmp"}
	for _, name := range stale {
		require.NoError(t, os.WriteFile(filepath.Join(videoDir, name), []byte("x"), 0o644))
	}
	keep := filepath.Join(videoDir, "original.en.srt")
	require.NoError(t, os.WriteFile(keep, []byte("keep"), 0o644))

	n, err := Sweep(root, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, name := range stale {
		assert.NoFileExists(t, filepath.Join(videoDir, name))
	}
	assert.FileExists(t, keep)
}

func TestSweepMissingDirIsNoop(t *testing.T) {
	n, err := Sweep(filepath.Join(t.TempDir(), "does-not-exist"), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
