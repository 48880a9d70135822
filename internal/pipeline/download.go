package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/ytsubs/core/internal/errors"
	"github.com/ytsubs/core/internal/manifest"
	"github.com/ytsubs/core/pkg/subtitle"
)

// handlerDownload implements DOWNLOAD (spec §4.8): pulls the source
// caption and, per the chosen translation_strategy, every available
// official target translation; any target with no official caption under
// OFFICIAL_AUTO_THEN_AI is flagged for AI translation. Allocates the
// item's temp directory, owned until OUTPUT releases it (§4.9).
func (s *Scheduler) handlerDownload(item *StageData) error {
	if s.cancelled() {
		appErr := apperrors.CancelledErr("run cancelled")
		s.failItem(item, "download", appErr)
		return appErr
	}

	s.updateStage(item.Video.VideoID, manifest.StageDownloading)

	tempDir, err := s.deps.Resources.Create(item.Video.VideoID)
	if err != nil {
		appErr := apperrors.FileIOErr("create temp dir", err)
		s.failItem(item, "download", appErr)
		return appErr
	}
	item.TempDir = tempDir

	ctx := context.Background()
	det := item.Detection

	originalText, err := s.downloadAndConvert(ctx, item, det.SourceLang, !containsStr(det.ManualLangs, det.SourceLang))
	if err != nil {
		s.failDownload(item, err)
		return err
	}
	originalPath := filepath.Join(tempDir, fmt.Sprintf("original.%s.srt", det.SourceLang))
	if err := os.WriteFile(originalPath, []byte(originalText), 0o644); err != nil {
		appErr := apperrors.FileIOErr("write original srt", err)
		s.failDownload(item, appErr)
		return appErr
	}

	result := &DownloadResult{
		OriginalPath:         originalPath,
		OriginalText:         originalText,
		OfficialTranslations: make(map[string]string),
	}

	for _, target := range item.TargetLanguages {
		if target == det.SourceLang {
			continue
		}

		auto, available := det.hasLang(target)

		switch item.Strategy {
		case AIOnly:
			result.NeedsAITranslation = append(result.NeedsAITranslation, target)

		case OfficialOnly:
			if !available {
				appErr := apperrors.ContentErr(fmt.Sprintf("no official caption for target language %q", target))
				s.failDownload(item, appErr)
				return appErr
			}
			text, err := s.downloadAndConvert(ctx, item, target, auto)
			if err != nil {
				s.failDownload(item, err)
				return err
			}
			path := filepath.Join(tempDir, fmt.Sprintf("translated.%s.srt", target))
			if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
				appErr := apperrors.FileIOErr("write official translation", err)
				s.failDownload(item, appErr)
				return appErr
			}
			result.OfficialTranslations[target] = path

		case OfficialAutoThenAI:
			if !available {
				result.NeedsAITranslation = append(result.NeedsAITranslation, target)
				continue
			}
			text, err := s.downloadAndConvert(ctx, item, target, auto)
			if err != nil {
				s.failDownload(item, err)
				return err
			}
			path := filepath.Join(tempDir, fmt.Sprintf("translated.%s.srt", target))
			if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
				appErr := apperrors.FileIOErr("write official translation", err)
				s.failDownload(item, appErr)
				return appErr
			}
			result.OfficialTranslations[target] = path
		}
	}

	item.Download = result

	if len(result.NeedsAITranslation) > 0 {
		if !s.translateQ.Submit(item) {
			appErr := apperrors.CancelledErr("cancelled before translate")
			s.failDownload(item, appErr)
			return appErr
		}
		return nil
	}
	if !s.summarizeQ.Submit(item) {
		appErr := apperrors.CancelledErr("cancelled before summarize")
		s.failDownload(item, appErr)
		return appErr
	}
	return nil
}

func (s *Scheduler) failDownload(item *StageData, err error) {
	appErr := classifyCatalogErr(err)
	s.failItem(item, "download", appErr)
	_ = s.deps.Resources.Release(item.TempDir, false, s.opts.KeepTempOnError)
}

// downloadAndConvert downloads lang's caption and normalizes it to SRT
// text regardless of wire format, per §4.8 DOWNLOAD.
func (s *Scheduler) downloadAndConvert(ctx context.Context, item *StageData, lang string, auto bool) (string, error) {
	data, format, err := s.deps.Catalog.DownloadSubtitle(ctx, item.Video.URL, lang, auto, item.Cookie, item.Proxy)
	s.reportProxyResult(item.Proxy, err)
	if err != nil {
		return "", classifyCatalogErr(err)
	}
	if format == "" {
		format = subtitle.DetectFormat(data)
	}
	text, err := subtitle.ToSRT(data, format)
	if err != nil {
		return "", apperrors.ParseErr("convert caption to srt", err)
	}
	return text, nil
}

func containsStr(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
