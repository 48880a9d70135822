package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserDataDirPathHonorsExplicitOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "custom-data")
	c := &Config{UserDataDir: dir}

	got, err := c.UserDataDirPath()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.DirExists(t, dir)
}

func TestArchivesDirNestsUnderUserData(t *testing.T) {
	dir := t.TempDir()
	c := &Config{UserDataDir: dir}

	archives, err := c.ArchivesDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "archives"), archives)
	assert.DirExists(t, archives)
}

func TestAIProfilesFilePathDefaultsUnderUserData(t *testing.T) {
	dir := t.TempDir()
	c := &Config{UserDataDir: dir}

	path, err := c.AIProfilesFilePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ai_profiles.json"), path)
}

func TestAIProfilesFilePathHonorsExplicitOverride(t *testing.T) {
	c := &Config{AIProfilesPath: "/explicit/path.json"}
	path, err := c.AIProfilesFilePath()
	require.NoError(t, err)
	assert.Equal(t, "/explicit/path.json", path)
}

func TestStateAndVideosDirsNestUnderOutputDir(t *testing.T) {
	c := &Config{OutputDir: "out"}
	assert.Equal(t, filepath.Join("out", ".state"), c.StateDir())
	assert.Equal(t, filepath.Join("out", "videos"), c.VideosDir())
}

func TestLoadPopulatesDefaults(t *testing.T) {
	for _, key := range []string{"DETECT_WORKERS", "OUTPUT_DIR", "LOG_LEVEL"} {
		os.Unsetenv(key)
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.DetectWorkers)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "info", cfg.LogLevel)
}
