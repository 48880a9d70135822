// Package pipeline composes the five stage queues — DETECT, DOWNLOAD,
// TRANSLATE, SUMMARIZE, OUTPUT — into the scheduler a batch run drives
// (spec §4.7/§4.8): a mutable StageData item flows through each in order,
// gaining fields as it goes, and any stage failure terminates the item
// without forwarding it.
package pipeline

import (
	"github.com/ytsubs/core/internal/adapter"
)

// TranslationStrategy selects how DOWNLOAD and TRANSLATE together produce
// target-language subtitles (spec §4.8 DOWNLOAD).
type TranslationStrategy string

const (
	OfficialOnly       TranslationStrategy = "official_only"
	AIOnly             TranslationStrategy = "ai_only"
	OfficialAutoThenAI TranslationStrategy = "official_auto_then_ai"
)

// DetectionResult is DETECT's output: the subtitle catalog for one video,
// normalized to language codes.
type DetectionResult struct {
	HasSubtitles bool
	SourceLang   string
	ManualLangs  []string
	AutoLangs    []string
	Chapters     bool
}

// hasLang reports whether lang appears in either manual or auto captions.
func (d *DetectionResult) hasLang(lang string) (auto bool, ok bool) {
	for _, l := range d.ManualLangs {
		if l == lang {
			return false, true
		}
	}
	for _, l := range d.AutoLangs {
		if l == lang {
			return true, true
		}
	}
	return false, false
}

// DownloadResult is DOWNLOAD's output.
type DownloadResult struct {
	OriginalPath         string            // temp_dir/original.<source_lang>.srt
	OriginalText         string            // SRT text, cached for TRANSLATE/SUMMARIZE
	OfficialTranslations map[string]string // lang -> path, already in final SRT form
	NeedsAITranslation   []string          // target langs with no official caption
}

// TranslationResult is TRANSLATE's output: AI-produced target languages.
type TranslationResult struct {
	Paths map[string]string // lang -> path, only entries with every chunk complete
}

// SummaryResult is SUMMARIZE's output, or nil if summarization was skipped
// or unavailable (never a failure on its own, per spec §4.8 SUMMARIZE).
type SummaryResult struct {
	Lang string
	Path string
}

// StageData is the mutable item threaded through all five stage queues.
type StageData struct {
	Video   adapter.VideoInfo
	RunID   string
	BatchID string

	Strategy        TranslationStrategy
	TargetLanguages []string
	SummaryEnabled  bool
	SummaryLanguage string
	Cookie          string
	Proxy           string

	TempDir     string
	Detection   *DetectionResult
	Download    *DownloadResult
	Translation *TranslationResult
	Summary     *SummaryResult
}
