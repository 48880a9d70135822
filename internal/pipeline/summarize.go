package pipeline

import (
	"context"
	"os"
	"path/filepath"

	apperrors "github.com/ytsubs/core/internal/errors"
	"github.com/ytsubs/core/internal/manifest"
)

// handlerSummarize implements SUMMARIZE (spec §4.8): summarizes the
// best-available subtitle text (a completed target over the source) into
// a markdown document. Disabled, unavailable, or failing summarization is
// never fatal to the video — it proceeds with Summary == nil.
func (s *Scheduler) handlerSummarize(item *StageData) error {
	s.updateStage(item.Video.VideoID, manifest.StageSummarizing)

	if !item.SummaryEnabled || s.deps.SummarizeLLM == nil || s.cancelled() {
		if !s.outputQ.Submit(item) {
			s.failSummarizeForward(item)
			return nil
		}
		return nil
	}

	lang := item.SummaryLanguage
	if lang == "" {
		lang = item.Detection.SourceLang
	}
	text := s.chooseSummaryText(item, lang)

	var chapterHints []string // catalog only reports chapter presence, not titles

	summary, err := s.deps.SummarizeLLM.Summarize(context.Background(), text, lang, chapterHints)
	if err != nil {
		s.deps.Log.Warn().Err(err).Str("video_id", item.Video.VideoID).Msg("summarize failed, proceeding without summary")
	} else {
		path := filepath.Join(item.TempDir, "summary."+lang+".md")
		if writeErr := os.WriteFile(path, []byte(summary), 0o644); writeErr != nil {
			s.deps.Log.Warn().Err(writeErr).Str("video_id", item.Video.VideoID).Msg("failed to write summary, proceeding without summary")
		} else {
			item.Summary = &SummaryResult{Lang: lang, Path: path}
		}
	}

	if !s.outputQ.Submit(item) {
		s.failSummarizeForward(item)
		return nil
	}
	return nil
}

// chooseSummaryText prefers an AI translation in lang, then any AI
// translation, then an official translation in lang, then the source text
// (§4.8 SUMMARIZE). Official translations in other languages are not used.
func (s *Scheduler) chooseSummaryText(item *StageData, lang string) string {
	if item.Translation != nil {
		if p, ok := item.Translation.Paths[lang]; ok {
			if data, err := os.ReadFile(p); err == nil {
				return string(data)
			}
		}
		for _, p := range item.Translation.Paths {
			if data, err := os.ReadFile(p); err == nil {
				return string(data)
			}
		}
	}
	if item.Download != nil {
		if p, ok := item.Download.OfficialTranslations[lang]; ok {
			if data, err := os.ReadFile(p); err == nil {
				return string(data)
			}
		}
		return item.Download.OriginalText
	}
	return ""
}

func (s *Scheduler) failSummarizeForward(item *StageData) {
	appErr := apperrors.CancelledErr("cancelled before output")
	s.failItem(item, "summarize", appErr)
	_ = s.deps.Resources.Release(item.TempDir, false, s.opts.KeepTempOnError)
}
