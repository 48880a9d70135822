package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/ytsubs/core/internal/errors"
)

// saveInterval is the dirty-flag auto-flush period (§4.1 P0-3).
const saveInterval = 5 * time.Second

// Store persists BatchManifest documents under a directory, one JSON file
// per batch, using atomic tmp+rename writes with sharing-violation retry.
// Mutations are expected to go through MarkDirty/Flush rather than writing
// the file on every change, so a busy run doesn't thrash disk IO.
type Store struct {
	dir string
	log zerolog.Logger

	mu      sync.Mutex
	dirty   bool
	current *BatchManifest

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStore creates the manifest directory (if needed) and starts the
// auto-save goroutine. Callers must call Shutdown to stop the goroutine
// and flush any pending writes.
func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.FileIOErr("create manifest dir", err)
	}
	s := &Store{dir: dir, log: log, stop: make(chan struct{})}
	s.wg.Add(1)
	go s.autoSaveLoop()
	return s, nil
}

func (s *Store) autoSaveLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(saveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.log.Error().Err(err).Msg("manifest auto-save failed")
			}
		case <-s.stop:
			return
		}
	}
}

// MarkDirty records that manifest has unsaved changes, to be written on
// the next Flush (automatic or explicit).
func (s *Store) MarkDirty(manifest *BatchManifest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	s.current = manifest
}

// Flush writes the current dirty manifest to disk, if any. It is a no-op
// returning nil when nothing is dirty.
func (s *Store) Flush() error {
	s.mu.Lock()
	if !s.dirty || s.current == nil {
		s.mu.Unlock()
		return nil
	}
	manifest := s.current
	s.dirty = false
	s.mu.Unlock()

	return s.saveBatch(manifest)
}

// Shutdown stops the auto-save goroutine and flushes any pending writes.
// Safe to call multiple times.
func (s *Store) Shutdown() error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	return s.Flush()
}

func (s *Store) path(batchID string) string {
	return filepath.Join(s.dir, batchID+".manifest.json")
}

// CreateBatch returns a fresh, unsaved BatchManifest. Callers must
// MarkDirty (or SaveBatch) it to persist.
func (s *Store) CreateBatch(batchID, source string) *BatchManifest {
	return NewBatchManifest(batchID, source)
}

// LoadBatch reads a batch manifest from disk, retrying on sharing
// violations. Returns (nil, nil) if the file does not exist.
func (s *Store) LoadBatch(batchID string) (*BatchManifest, error) {
	path := s.path(batchID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt < apperrors.MaxShareViolationAttempts; attempt++ {
		data, err := os.ReadFile(path)
		if err == nil {
			var bm BatchManifest
			if jerr := json.Unmarshal(data, &bm); jerr != nil {
				return nil, apperrors.ParseErr(fmt.Sprintf("parse manifest %s", path), jerr)
			}
			return &bm, nil
		}
		if !isShareViolation(err) {
			return nil, apperrors.FileIOErr(fmt.Sprintf("read manifest %s", path), err)
		}
		lastErr = err
		time.Sleep(apperrors.ShareViolationBackoff(attempt))
	}
	return nil, apperrors.FileIOErr(fmt.Sprintf("read manifest %s after retries", path), lastErr)
}

// SaveBatch writes a batch manifest immediately, bypassing the dirty-flag
// batching. Used for the initial save of a freshly created batch, and by
// Flush itself.
func (s *Store) SaveBatch(manifest *BatchManifest) error {
	return s.saveBatch(manifest)
}

func (s *Store) saveBatch(manifest *BatchManifest) error {
	manifest.Touch()
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return apperrors.ParseErr("marshal manifest", err)
	}
	return atomicWrite(s.path(manifest.BatchID), data)
}

// ListBatches returns every batch ID with a persisted manifest under the
// store's directory, in no particular order.
func (s *Store) ListBatches() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.FileIOErr("list batches", err)
	}

	const suffix = ".manifest.json"
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, suffix) {
			ids = append(ids, strings.TrimSuffix(name, suffix))
		}
	}
	return ids, nil
}

// DeleteBatch removes a batch manifest's file from disk. Deleting a batch
// is an explicit user action (spec §3 VideoManifest lifecycle: "destroyed
// only when its batch file is deleted by explicit user action"); it does
// not cancel any in-flight run using that manifest.
func (s *Store) DeleteBatch(batchID string) error {
	s.mu.Lock()
	if s.current != nil && s.current.BatchID == batchID {
		s.dirty = false
		s.current = nil
	}
	s.mu.Unlock()

	if err := os.Remove(s.path(batchID)); err != nil && !os.IsNotExist(err) {
		return apperrors.FileIOErr("delete batch "+batchID, err)
	}
	return nil
}

// atomicWrite writes data to a unique tmp file then renames it over path,
// retrying the whole attempt on a sharing violation (§4.1).
func atomicWrite(path string, data []byte) error {
	var lastErr error
	for attempt := 0; attempt < apperrors.MaxShareViolationAttempts; attempt++ {
		tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.New().String()[:8])
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			if isShareViolation(err) {
				lastErr = err
				time.Sleep(apperrors.ShareViolationBackoff(attempt))
				continue
			}
			return apperrors.FileIOErr(fmt.Sprintf("write tmp file %s", tmp), err)
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			if isShareViolation(err) {
				lastErr = err
				time.Sleep(apperrors.ShareViolationBackoff(attempt))
				continue
			}
			return apperrors.FileIOErr(fmt.Sprintf("rename %s to %s", tmp, path), err)
		}
		return nil
	}
	return apperrors.FileIOErr(fmt.Sprintf("atomic write %s after retries", path), lastErr)
}

// isShareViolation reports whether err looks like a transient
// cross-process file lock conflict (Windows sharing violation, or a POSIX
// permission-denied that masks the same condition on network filesystems).
func isShareViolation(err error) bool {
	if os.IsPermission(err) {
		return true
	}
	if pe, ok := err.(*os.PathError); ok {
		return os.IsPermission(pe.Err)
	}
	return false
}
