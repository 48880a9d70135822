package pipeline

import (
	"context"

	apperrors "github.com/ytsubs/core/internal/errors"
	"github.com/ytsubs/core/internal/manifest"
)

// handlerDetect implements DETECT (spec §4.8): calls the subtitle catalog
// to list available captions, normalizes the result, and either forwards
// the item to DOWNLOAD or terminates it (no subtitles -> SKIPPED).
func (s *Scheduler) handlerDetect(item *StageData) error {
	if s.cancelled() {
		s.failItem(item, "detect", apperrors.CancelledErr("run cancelled"))
		return apperrors.CancelledErr("run cancelled")
	}

	s.updateStage(item.Video.VideoID, manifest.StageDetecting)

	ctx := context.Background()
	list, err := s.deps.Catalog.ListSubtitles(ctx, item.Video.URL, item.Cookie, item.Proxy)
	s.reportProxyResult(item.Proxy, err)
	if err != nil {
		appErr := classifyCatalogErr(err)
		s.failItem(item, "detect", appErr)
		return appErr
	}

	det := &DetectionResult{
		ManualLangs: list.Manual,
		AutoLangs:   list.Auto,
		Chapters:    list.Chapters,
	}
	det.HasSubtitles = len(det.ManualLangs) > 0 || len(det.AutoLangs) > 0
	det.SourceLang = pickSourceLang(det)

	if !det.HasSubtitles {
		s.skipItem(item, "no subtitles")
		return nil
	}

	item.Detection = det
	if !s.downloadQ.Submit(item) {
		appErr := apperrors.CancelledErr("cancelled before download")
		s.failItem(item, "detect", appErr)
		return appErr
	}
	return nil
}

// pickSourceLang prefers a manually authored caption language over an
// auto-generated one, as the most reliable signal of the spoken language.
func pickSourceLang(det *DetectionResult) string {
	if len(det.ManualLangs) > 0 {
		return det.ManualLangs[0]
	}
	if len(det.AutoLangs) > 0 {
		return det.AutoLangs[0]
	}
	return ""
}

// classifyCatalogErr maps a subtitle-catalog error to an ErrorType per the
// §4.10 mapping policy, for errors that were not already classified at the
// adapter boundary.
func classifyCatalogErr(err error) *apperrors.AppError {
	if ae, ok := err.(*apperrors.AppError); ok {
		return ae
	}
	return apperrors.ClassifyExternal(err.Error(), err)
}
