// Package resource manages per-video temp directory ownership and the
// startup hygiene sweep that clears stale partial files left behind by a
// killed run (spec §4.9 Resource management).
package resource

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	apperrors "github.com/ytsubs/core/internal/errors"
)

// Manager creates and releases per-video temp directories under a single
// root, and sweeps the persistent output tree for stale partial files.
type Manager struct {
	tempRoot string
}

// NewManager ensures tempRoot exists and returns a Manager bound to it.
func NewManager(tempRoot string) (*Manager, error) {
	if err := os.MkdirAll(tempRoot, 0o755); err != nil {
		return nil, apperrors.FileIOErr("create temp root", err)
	}
	return &Manager{tempRoot: tempRoot}, nil
}

// Create allocates a fresh, uniquely-named temp directory for videoID:
// temp/<video_id>_<rand> (§4.9). The directory is exclusively owned by
// the caller until Release is called.
func (m *Manager) Create(videoID string) (string, error) {
	dir := filepath.Join(m.tempRoot, fmt.Sprintf("%s_%x", videoID, rand.Uint32()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.FileIOErr("create video temp dir", err)
	}
	return dir, nil
}

// Release disposes of a video's temp directory. On success the directory
// is always removed; on failure it is kept when keepOnError is true
// (default) for debugging, otherwise removed.
func (m *Manager) Release(dir string, succeeded bool, keepOnError bool) error {
	if succeeded || !keepOnError {
		if err := os.RemoveAll(dir); err != nil {
			return apperrors.FileIOErr("remove video temp dir", err)
		}
	}
	return nil
}

// stalePatterns are the partial-file globs a killed run can leave behind
// in the persistent output tree (§4.9).
var stalePatterns = []string{"*.tmp", "*.part", "*.progress.json.tmp"}

// Sweep walks outputDir recursively and removes files matching
// stalePatterns, returning the count removed. Called once at startup,
// before scheduling, as resume hygiene.
func Sweep(outputDir string, log zerolog.Logger) (int, error) {
	info, err := os.Stat(outputDir)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.FileIOErr("stat output dir for sweep", err)
	}

	cleaned := 0
	walkErr := filepath.Walk(outputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries
		}
		if info.IsDir() {
			return nil
		}
		for _, pattern := range stalePatterns {
			if matched, _ := filepath.Match(pattern, info.Name()); matched {
				if rmErr := os.Remove(path); rmErr == nil {
					cleaned++
					log.Debug().Str("path", path).Msg("swept stale file")
				} else {
					log.Warn().Err(rmErr).Str("path", path).Msg("failed to remove stale file")
				}
				break
			}
		}
		return nil
	})
	if walkErr != nil {
		return cleaned, apperrors.FileIOErr("walk output dir for sweep", walkErr)
	}
	if cleaned > 0 {
		log.Info().Int("count", cleaned).Str("dir", outputDir).Msg("cleaned stale temp files")
	}
	return cleaned, nil
}
