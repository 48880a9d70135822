// Package adapter defines the narrow external-boundary interfaces the
// pipeline stages are built against (spec §6): URL resolution, subtitle
// catalog/download, LLM calls, and artifact writing. Concrete
// implementations live in internal/client; stages depend only on these
// interfaces so tests can substitute fakes.
package adapter

import (
	"context"

	"github.com/ytsubs/core/pkg/subtitle"
)

// URLKind classifies what a URL points at (§6.1 identify).
type URLKind string

const (
	KindVideo    URLKind = "video"
	KindChannel  URLKind = "channel"
	KindPlaylist URLKind = "playlist"
	KindUnknown  URLKind = "unknown"
)

// VideoInfo is the minimal video record a URL resolver produces (§3).
type VideoInfo struct {
	VideoID string
	URL     string
	Title   string
}

// URLResolver identifies and expands YouTube URLs: channels and playlists
// into their member videos, single videos passed through (§6.1).
type URLResolver interface {
	Identify(ctx context.Context, url string) (URLKind, error)
	Resolve(ctx context.Context, url string) ([]VideoInfo, error)
	ExtractVideoID(url string) (string, bool)
}

// SubtitleList is the catalog of captions available for a video (§6.2).
type SubtitleList struct {
	Manual   []string // language codes with manually authored captions
	Auto     []string // language codes with auto-generated captions only
	Chapters bool
}

// SubtitleCatalog lists and downloads a video's captions. Downloaded bytes
// are in whatever wire format the source used (VTT/JSON3/SRV3/SRT);
// callers normalize with pkg/subtitle.ToSRT.
type SubtitleCatalog interface {
	ListSubtitles(ctx context.Context, url, cookie, proxy string) (SubtitleList, error)
	DownloadSubtitle(ctx context.Context, url, lang string, auto bool, cookie, proxy string) ([]byte, subtitle.Format, error)
}

// LLMAdapter performs the two AI operations the pipeline needs:
// translating one subtitle chunk, and summarizing a transcript (§6.3). The
// core is provider-agnostic; a profile resolver selects which concrete
// LLMAdapter/model/timeout to use per task.
type LLMAdapter interface {
	TranslateChunk(ctx context.Context, cues []subtitle.Cue, sourceLang, targetLang, context_ string) ([]subtitle.Cue, error)
	Summarize(ctx context.Context, text, targetLang string, chapters []string) (string, error)
}

// WriterArtifacts is the set of files OUTPUT has produced for one video,
// keyed by a logical name (e.g. "original.en.srt", "summary.zh-CN.md").
type WriterArtifacts map[string][]byte

// Writer atomically persists a video's final output files and returns
// their paths, keyed the same way as the input artifacts map (§6.4).
type Writer interface {
	WriteVideoArtifacts(ctx context.Context, videoID string, artifacts WriterArtifacts) (map[string]string, error)
}
