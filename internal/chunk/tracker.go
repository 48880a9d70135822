package chunk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ytsubs/core/internal/errors"
)

// Status summarizes a tracker's progress.
type Status struct {
	TotalChunks int `json:"total_chunks"`
	Completed   int `json:"completed"`
}

// progressFile is the on-disk shape of .chunk_progress.{lang}.json.
type progressFile struct {
	TotalChunks     int            `json:"total_chunks"`
	CompletedChunks map[int]string `json:"completed_chunks"`
}

// Tracker tracks per-chunk translation completion for one (video, language)
// pair, persisted atomically so a kill mid-translate resumes at the first
// pending chunk instead of redoing finished work.
type Tracker struct {
	dir     string
	videoID string
	lang    string

	chunks    []SubtitleChunk
	completed map[int]string // index -> translated SRT text
}

// NewTracker splits srtText into chunks and returns a fresh tracker with
// nothing completed yet. Callers that are resuming should call Restore
// afterward to recover any already-completed chunks.
func NewTracker(dir, videoID, lang, srtText string, maxCues, maxChars int) (*Tracker, error) {
	chunks, err := Split(srtText, maxCues, maxChars)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		dir:       dir,
		videoID:   videoID,
		lang:      lang,
		chunks:    chunks,
		completed: make(map[int]string),
	}, nil
}

func (t *Tracker) progressPath() string {
	return filepath.Join(t.dir, fmt.Sprintf(".chunk_progress.%s.json", t.lang))
}

// TotalChunks returns the number of chunks this tracker split the source
// transcript into.
func (t *Tracker) TotalChunks() int { return len(t.chunks) }

// Chunk returns the chunk at index, or (zero, false) if out of range.
func (t *Tracker) Chunk(index int) (SubtitleChunk, bool) {
	if index < 0 || index >= len(t.chunks) {
		return SubtitleChunk{}, false
	}
	return t.chunks[index], true
}

// MarkChunkCompleted records a chunk's translated output. Idempotent: a
// second call with the same index overwrites the stored text but does not
// otherwise change tracker state.
func (t *Tracker) MarkChunkCompleted(index int, translatedSRT string) {
	if t.completed == nil {
		t.completed = make(map[int]string)
	}
	t.completed[index] = translatedSRT
}

// PendingChunks returns the indices not yet completed, in ascending order.
func (t *Tracker) PendingChunks() []int {
	pending := make([]int, 0, len(t.chunks))
	for i := range t.chunks {
		if _, done := t.completed[i]; !done {
			pending = append(pending, i)
		}
	}
	return pending
}

// GetStatus reports total vs completed chunk counts.
func (t *Tracker) GetStatus() Status {
	return Status{TotalChunks: len(t.chunks), Completed: len(t.completed)}
}

// AllCompleted reports whether every chunk has a recorded translation.
func (t *Tracker) AllCompleted() bool {
	return len(t.completed) == len(t.chunks)
}

// Concatenated joins every completed chunk's translated text in index
// order. Callers must only call this once AllCompleted is true.
func (t *Tracker) Concatenated() string {
	indices := make([]int, 0, len(t.completed))
	for i := range t.completed {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := ""
	for _, i := range indices {
		out += t.completed[i]
	}
	return out
}

// Persist atomically writes completion progress to
// .chunk_progress.{lang}.json (same atomic-write policy as the manifest
// store: unique tmp file + rename, retried on sharing violation).
func (t *Tracker) Persist() error {
	pf := progressFile{TotalChunks: len(t.chunks), CompletedChunks: t.completed}
	data, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return apperrors.ParseErr("marshal chunk progress", err)
	}

	path := t.progressPath()
	var lastErr error
	for attempt := 0; attempt < apperrors.MaxShareViolationAttempts; attempt++ {
		tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.New().String()[:8])
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			lastErr = err
			time.Sleep(apperrors.ShareViolationBackoff(attempt))
			continue
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			lastErr = err
			time.Sleep(apperrors.ShareViolationBackoff(attempt))
			continue
		}
		return nil
	}
	return apperrors.FileIOErr("persist chunk progress", lastErr)
}

// Restore loads previously completed chunks from disk, if the progress
// file exists. Missing file is not an error: it just means nothing has
// completed yet.
func (t *Tracker) Restore() error {
	path := t.progressPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apperrors.FileIOErr("read chunk progress", err)
	}

	var pf progressFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return apperrors.ParseErr("parse chunk progress", err)
	}
	if pf.CompletedChunks == nil {
		pf.CompletedChunks = make(map[int]string)
	}
	t.completed = pf.CompletedChunks
	return nil
}
