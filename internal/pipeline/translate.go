package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ytsubs/core/internal/chunk"
	apperrors "github.com/ytsubs/core/internal/errors"
	"github.com/ytsubs/core/internal/manifest"
	"github.com/ytsubs/core/pkg/subtitle"
)

// handlerTranslate implements TRANSLATE (spec §4.8): for each target
// language flagged by DOWNLOAD, splits the source SRT into chunks, skips
// whatever a resumed ChunkTracker already completed, and translates the
// rest via the LLM adapter. A chunk whose response doesn't round-trip the
// same cue indices fails with PARSE and is retried up to MaxChunkRetries;
// exhausting retries fails the whole video, not just that target.
func (s *Scheduler) handlerTranslate(item *StageData) error {
	if s.cancelled() {
		appErr := apperrors.CancelledErr("run cancelled")
		s.failTranslate(item, appErr)
		return appErr
	}

	s.updateStage(item.Video.VideoID, manifest.StageTranslating)

	maxCues, maxChars := s.opts.ChunkMaxCues, s.opts.ChunkMaxChars
	if maxCues <= 0 {
		maxCues = chunk.DefaultMaxCues
	}
	if maxChars <= 0 {
		maxChars = chunk.DefaultMaxChars
	}

	result := &TranslationResult{Paths: make(map[string]string)}

	for _, target := range item.Download.NeedsAITranslation {
		if s.cancelled() {
			appErr := apperrors.CancelledErr("run cancelled")
			s.failTranslate(item, appErr)
			return appErr
		}

		tracker, err := chunk.NewTracker(item.TempDir, item.Video.VideoID, target, item.Download.OriginalText, maxCues, maxChars)
		if err != nil {
			appErr := apperrors.ParseErr("split source into chunks", err)
			s.failTranslate(item, appErr)
			return appErr
		}
		if err := tracker.Restore(); err != nil {
			appErr := apperrors.FileIOErr("restore chunk progress", err)
			s.failTranslate(item, appErr)
			return appErr
		}

		for _, idx := range tracker.PendingChunks() {
			if s.cancelled() {
				appErr := apperrors.CancelledErr("run cancelled")
				s.failTranslate(item, appErr)
				return appErr
			}

			c, _ := tracker.Chunk(idx)
			translated, err := s.translateChunkWithRetry(item, c, target)
			if err != nil {
				s.failTranslate(item, err)
				return err
			}

			srtText := subtitle.WriteSRT(translated)
			tracker.MarkChunkCompleted(idx, srtText)
			if err := tracker.Persist(); err != nil {
				appErr := apperrors.FileIOErr("persist chunk progress", err)
				s.failTranslate(item, appErr)
				return appErr
			}
		}

		if !tracker.AllCompleted() {
			appErr := apperrors.UnknownErr("chunk tracker incomplete after processing all pending chunks", nil)
			s.failTranslate(item, appErr)
			return appErr
		}

		path := filepath.Join(item.TempDir, fmt.Sprintf("translated.%s.srt", target))
		if err := os.WriteFile(path, []byte(tracker.Concatenated()), 0o644); err != nil {
			appErr := apperrors.FileIOErr("write translated srt", err)
			s.failTranslate(item, appErr)
			return appErr
		}
		result.Paths[target] = path
	}

	item.Translation = result
	if !s.summarizeQ.Submit(item) {
		appErr := apperrors.CancelledErr("cancelled before summarize")
		s.failTranslate(item, appErr)
		return appErr
	}
	return nil
}

// translateChunkWithRetry calls the LLM adapter for one chunk, retrying
// PARSE failures (bad round-trip) up to MaxChunkRetries and backing off on
// RATE_LIMIT without consuming a retry attempt (§4.8 TRANSLATE, §4.10).
func (s *Scheduler) translateChunkWithRetry(item *StageData, c chunk.SubtitleChunk, target string) ([]subtitle.Cue, error) {
	ctx := context.Background()
	attempts := 0
	rateLimitAttempt := 0

	for {
		if s.cancelled() {
			return nil, apperrors.CancelledErr("run cancelled")
		}

		translated, err := s.deps.TranslateLLM.TranslateChunk(ctx, c.Entries, item.Detection.SourceLang, target, "")
		if err == nil {
			if len(translated) != len(c.Entries) {
				err = apperrors.ParseErr(fmt.Sprintf("translated cue count %d != source %d", len(translated), len(c.Entries)), nil)
			} else if !indicesMatch(translated, c.Entries) {
				err = apperrors.ParseErr("translated response altered or omitted cue indices", nil)
			}
		}
		if err == nil {
			return translated, nil
		}

		appErr := classifyCatalogErr(err)
		if appErr.Type == apperrors.RateLimit {
			time.Sleep(apperrors.RateLimitBackoff(rateLimitAttempt))
			rateLimitAttempt++
			continue
		}

		attempts++
		if attempts > s.opts.MaxChunkRetries {
			return nil, appErr
		}
	}
}

func indicesMatch(translated, source []subtitle.Cue) bool {
	if len(translated) != len(source) {
		return false
	}
	for i := range source {
		if translated[i].Index != source[i].Index {
			return false
		}
	}
	return true
}

func (s *Scheduler) failTranslate(item *StageData, err error) {
	appErr := classifyCatalogErr(err)
	s.failItem(item, "translate", appErr)
	_ = s.deps.Resources.Release(item.TempDir, false, s.opts.KeepTempOnError)
}
