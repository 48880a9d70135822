package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateConsolidatesLegacyArchive(t *testing.T) {
	root := t.TempDir()
	archivesDir := filepath.Join(root, "archives")
	require.NoError(t, os.MkdirAll(archivesDir, 0o755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(root))

	require.NoError(t, os.WriteFile("archive.txt", []byte("youtube vid1\nyoutube vid2\n"), 0o644))

	require.NoError(t, Migrate(archivesDir, zerolog.Nop()))

	migrated, err := os.ReadFile(filepath.Join(archivesDir, "migrated_archive.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(migrated), "youtube vid1")
	assert.Contains(t, string(migrated), "youtube vid2")

	_, err = os.Stat("archive.txt")
	assert.True(t, os.IsNotExist(err), "legacy file should be removed after migration")

	_, err = os.Stat("archive.txt.bak")
	assert.NoError(t, err, "legacy file should be backed up")
}

func TestMigrateNoLegacyFilesIsNoop(t *testing.T) {
	root := t.TempDir()
	archivesDir := filepath.Join(root, "archives")
	require.NoError(t, os.MkdirAll(archivesDir, 0o755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(root))

	assert.NoError(t, Migrate(archivesDir, zerolog.Nop()))
}
