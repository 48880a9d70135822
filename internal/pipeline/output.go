package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/ytsubs/core/internal/adapter"
	"github.com/ytsubs/core/internal/archive"
	apperrors "github.com/ytsubs/core/internal/errors"
	"github.com/ytsubs/core/internal/manifest"
)

// videoMetadata is written as metadata.json alongside each video's
// artifacts (§4.8 OUTPUT tree).
type videoMetadata struct {
	VideoID         string   `json:"video_id"`
	URL             string   `json:"url"`
	Title           string   `json:"title,omitempty"`
	SourceLanguage  string   `json:"source_language"`
	TargetLanguages []string `json:"target_languages,omitempty"`
	SummaryLanguage string   `json:"summary_language,omitempty"`
	RunID           string   `json:"run_id,omitempty"`
	CompletedAt     string   `json:"completed_at"`
}

// processOutput implements OUTPUT (spec §4.8): assembles every artifact
// the earlier stages produced, writes them atomically via the Writer
// adapter, records the video in the archive, marks the manifest DONE, and
// releases the temp directory.
func (s *Scheduler) processOutput(item *StageData) error {
	s.updateStage(item.Video.VideoID, manifest.StageOutputting)

	artifacts := adapter.WriterArtifacts{}

	originalData, err := os.ReadFile(item.Download.OriginalPath)
	if err != nil {
		appErr := apperrors.FileIOErr("read original srt for output", err)
		s.failOutput(item, appErr)
		return appErr
	}
	artifacts["original."+item.Detection.SourceLang+".srt"] = originalData

	for lang, path := range item.Download.OfficialTranslations {
		data, err := os.ReadFile(path)
		if err != nil {
			appErr := apperrors.FileIOErr("read official translation for output", err)
			s.failOutput(item, appErr)
			return appErr
		}
		artifacts["translated."+lang+".srt"] = data
	}
	if item.Translation != nil {
		for lang, path := range item.Translation.Paths {
			data, err := os.ReadFile(path)
			if err != nil {
				appErr := apperrors.FileIOErr("read ai translation for output", err)
				s.failOutput(item, appErr)
				return appErr
			}
			artifacts["translated."+lang+".srt"] = data
		}
	}
	if item.Summary != nil {
		data, err := os.ReadFile(item.Summary.Path)
		if err != nil {
			appErr := apperrors.FileIOErr("read summary for output", err)
			s.failOutput(item, appErr)
			return appErr
		}
		artifacts["summary."+item.Summary.Lang+".md"] = data
	}

	meta := videoMetadata{
		VideoID:         item.Video.VideoID,
		URL:             item.Video.URL,
		Title:           item.Video.Title,
		SourceLanguage:  item.Detection.SourceLang,
		TargetLanguages: item.TargetLanguages,
		RunID:           item.RunID,
		CompletedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if item.Summary != nil {
		meta.SummaryLanguage = item.Summary.Lang
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		appErr := apperrors.ParseErr("marshal video metadata", err)
		s.failOutput(item, appErr)
		return appErr
	}
	artifacts["metadata.json"] = metaJSON

	outputFiles, err := s.deps.Writer.WriteVideoArtifacts(context.Background(), item.Video.VideoID, artifacts)
	if err != nil {
		appErr := classifyCatalogErr(err)
		s.failOutput(item, appErr)
		return appErr
	}

	langHash := s.archiveConfigHash(item)
	if err := s.deps.Archive.MarkAsProcessed(item.Video.VideoID, langHash); err != nil {
		appErr := classifyCatalogErr(err)
		s.failOutput(item, appErr)
		return appErr
	}

	s.mu.Lock()
	if v, ok := s.batch.GetVideo(item.Video.VideoID); ok {
		v.OutputFiles = outputFiles
		v.UpdateStage(manifest.StageDone)
	}
	s.store.MarkDirty(s.batch)
	s.mu.Unlock()

	_ = s.deps.Resources.Release(item.TempDir, true, s.opts.KeepTempOnError)
	s.deps.Log.Info().Str("video_id", item.Video.VideoID).Msg("video completed")
	return nil
}

func (s *Scheduler) failOutput(item *StageData, appErr *apperrors.AppError) {
	s.failItem(item, "output", appErr)
	_ = s.deps.Resources.Release(item.TempDir, false, s.opts.KeepTempOnError)
}

// archiveConfigHash computes the output-affecting config hash for this
// run's chosen targets, so a future run with different targets/strategy
// reprocesses the video instead of silently skipping it (§4.3).
func (s *Scheduler) archiveConfigHash(item *StageData) string {
	cfg := s.deps.ArchiveLang
	targets := append([]string(nil), item.TargetLanguages...)
	sort.Strings(targets)
	cfg.SubtitleTargetLanguages = targets
	cfg.SourceLanguage = item.Detection.SourceLang
	cfg.TranslationStrategy = string(item.Strategy)
	if item.Summary != nil {
		cfg.SummaryLanguage = item.Summary.Lang
	}
	return archive.ConfigHash(cfg)
}
