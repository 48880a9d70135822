package archive

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/ytsubs/core/internal/errors"
)

// legacyLocations lists the pre-archive-directory paths this tool used to
// write a single flat archive.txt to, before archives were split per
// channel/playlist/batch.
var legacyLocations = []string{
	filepath.Join("out", "archive.txt"),
	"archive.txt",
}

// Migrate consolidates any legacy flat archive.txt files found at
// legacyLocations into a single migrated_archive.txt under archivesDir,
// deduplicating lines, and renames each legacy file to ".txt.bak" once
// merged. Safe to call on every startup: it's a no-op once the legacy
// files are gone.
func Migrate(archivesDir string, log zerolog.Logger) error {
	migratedPath := filepath.Join(archivesDir, "migrated_archive.txt")

	for _, oldPath := range legacyLocations {
		info, err := os.Stat(oldPath)
		if err != nil || info.IsDir() {
			continue
		}

		oldContent, err := os.ReadFile(oldPath)
		if err != nil {
			log.Warn().Err(err).Str("path", oldPath).Msg("failed to read legacy archive for migration")
			continue
		}

		if strings.TrimSpace(string(oldContent)) == "" {
			if err := os.Remove(oldPath); err != nil {
				log.Warn().Err(err).Str("path", oldPath).Msg("failed to remove empty legacy archive")
			}
			continue
		}

		if err := mergeLines(migratedPath, string(oldContent)); err != nil {
			log.Warn().Err(err).Str("path", oldPath).Msg("failed to merge legacy archive")
			continue
		}

		backupPath := strings.TrimSuffix(oldPath, filepath.Ext(oldPath)) + ".txt.bak"
		if err := copyFile(oldPath, backupPath); err != nil {
			log.Warn().Err(err).Str("path", oldPath).Msg("failed to back up legacy archive")
			continue
		}
		if err := os.Remove(oldPath); err != nil {
			log.Warn().Err(err).Str("path", oldPath).Msg("failed to remove legacy archive after migration")
			continue
		}
		log.Info().Str("from", oldPath).Str("to", migratedPath).Msg("migrated legacy archive file")
	}
	return nil
}

// mergeLines merges newContent's non-blank lines into the file at path,
// deduplicating and sorting for a stable result across repeated runs.
func mergeLines(path, newContent string) error {
	lines := make(map[string]bool)
	if existing, err := os.ReadFile(path); err == nil {
		for _, l := range strings.Split(string(existing), "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines[l] = true
			}
		}
	}
	for _, l := range strings.Split(newContent, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines[l] = true
		}
	}

	merged := make([]string, 0, len(lines))
	for l := range lines {
		merged = append(merged, l)
	}
	sort.Strings(merged)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.FileIOErr("create archives dir", err)
	}
	return os.WriteFile(path, []byte(strings.Join(merged, "\n")+"\n"), 0o644)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return apperrors.FileIOErr("read for backup", err)
	}
	return os.WriteFile(dst, data, 0o644)
}
