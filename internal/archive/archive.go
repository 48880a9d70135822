// Package archive implements the content-addressed incremental archive
// (spec §4.3): a yt-dlp-archive-compatible text file per channel/playlist/
// batch, recording which video IDs have already been processed under which
// language-config hash, so reruns skip finished work unless the config that
// affects output has changed.
package archive

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/ytsubs/core/internal/errors"
)

// LanguageConfig is the subset of spec.md's LanguageConfig (§3) that
// affects output and therefore participates in the config hash. UI
// language is deliberately excluded.
type LanguageConfig struct {
	SubtitleTargetLanguages []string `json:"subtitle_target_languages"`
	SummaryLanguage         string   `json:"summary_language"`
	SourceLanguage          string   `json:"source_language,omitempty"`
	BilingualMode           string   `json:"bilingual_mode"`
	TranslationStrategy     string   `json:"translation_strategy"`
	SubtitleFormat          string   `json:"subtitle_format"`
}

// ConfigHash computes the stable 16-hex-char digest over the canonical
// sorted subset of fields that affect outputs (§3 LanguageConfig).
func ConfigHash(cfg LanguageConfig) string {
	targets := append([]string(nil), cfg.SubtitleTargetLanguages...)
	sort.Strings(targets)

	relevant := map[string]interface{}{
		"subtitle_target_languages": targets,
		"summary_language":          cfg.SummaryLanguage,
		"source_language":           cfg.SourceLanguage,
		"bilingual_mode":            cfg.BilingualMode,
		"translation_strategy":      cfg.TranslationStrategy,
		"subtitle_format":           cfg.SubtitleFormat,
	}
	// encoding/json marshals map[string]any keys in sorted order, so this
	// is already a canonical, stable encoding.
	data, _ := json.Marshal(relevant)
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])[:16]
}

const processedLinePattern = `youtube\s+%s(\s|$)`

// Archive manages one archive text file (channel, playlist, url-list batch,
// or single video), in the yt-dlp `--download-archive` line format:
// "youtube <video_id>" or "youtube <video_id> # lang_hash=<hash>".
type Archive struct {
	path string
	mu   sync.Mutex
}

// New returns an Archive bound to path, creating its parent directory.
func New(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.FileIOErr("create archive dir", err)
	}
	return &Archive{path: path}, nil
}

// ChannelArchivePath builds the archive path for a channel ID under dir.
func ChannelArchivePath(dir, channelID string) string {
	return filepath.Join(dir, channelID+".txt")
}

// PlaylistArchivePath builds the archive path for a playlist ID under dir.
func PlaylistArchivePath(dir, playlistID string) string {
	return filepath.Join(dir, "playlist_"+playlistID+".txt")
}

// BatchArchivePath builds the archive path for an ad-hoc URL-list batch.
func BatchArchivePath(dir, batchID string) string {
	return filepath.Join(dir, batchID+".txt")
}

// IsProcessed reports whether videoID appears in the archive, and if
// langHash is non-empty, whether its recorded lang_hash matches. A
// recorded line with no lang_hash (legacy format) never matches a
// non-empty langHash, so a config-hash-aware caller reprocesses it once.
func (a *Archive) IsProcessed(videoID, langHash string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	content, err := a.readAll()
	if err != nil {
		return false, err
	}
	if content == "" {
		return false, nil
	}

	present := regexp.MustCompile(fmt.Sprintf(processedLinePattern, regexp.QuoteMeta(videoID))).MatchString(content)
	if !present {
		return false, nil
	}
	if langHash == "" {
		return true, nil
	}

	hashRe := regexp.MustCompile(fmt.Sprintf(`youtube\s+%s\s+(?:\S+\s+)?#\s*lang_hash=([a-f0-9]+)`, regexp.QuoteMeta(videoID)))
	m := hashRe.FindStringSubmatch(content)
	if m == nil {
		return false, nil
	}
	return m[1] == langHash, nil
}

// MarkAsProcessed appends a record for videoID, with lang_hash if provided.
// Uses an append-only write, which is safe for concurrent writers on POSIX
// (O_APPEND) without needing the tmp+rename dance the manifest store uses
// for whole-file replacement.
func (a *Archive) MarkAsProcessed(videoID, langHash string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	line := "youtube " + videoID
	if langHash != "" {
		line += " # lang_hash=" + langHash
	}
	line += "\n"

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperrors.FileIOErr("open archive for append", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return apperrors.FileIOErr("append archive line", err)
	}
	return nil
}

// ProcessedVideoIDs returns the set of video IDs recorded in the archive,
// ignoring lang_hash.
func (a *Archive) ProcessedVideoIDs() (map[string]bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	content, err := a.readAll()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	lineRe := regexp.MustCompile(`^youtube\s+(\S+)`)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := lineRe.FindStringSubmatch(line); m != nil {
			out[m[1]] = true
		}
	}
	return out, nil
}

// FilterUnprocessed returns the subset of videoIDs not already recorded in
// the archive. When force is true, the archive is ignored entirely and
// every ID is returned (a forced rerun).
func (a *Archive) FilterUnprocessed(videoIDs []string, force bool) ([]string, error) {
	if force {
		return videoIDs, nil
	}
	processed, err := a.ProcessedVideoIDs()
	if err != nil {
		return nil, err
	}
	if len(processed) == 0 {
		return videoIDs, nil
	}
	out := make([]string, 0, len(videoIDs))
	for _, id := range videoIDs {
		if !processed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// Clear removes the archive file, for a forced full rerun.
func (a *Archive) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		return apperrors.FileIOErr("clear archive", err)
	}
	return nil
}

func (a *Archive) readAll() (string, error) {
	data, err := os.ReadFile(a.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.FileIOErr("read archive", err)
	}
	return string(data), nil
}
