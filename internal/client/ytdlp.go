package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytsubs/core/internal/adapter"
	apperrors "github.com/ytsubs/core/internal/errors"
	"github.com/ytsubs/core/pkg/subtitle"
)

// DefaultYtDlpTimeout bounds a single yt-dlp subprocess call when the
// caller's context carries no deadline of its own.
const DefaultYtDlpTimeout = 60 * time.Second

var (
	videoURLPattern    = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	channelURLPattern  = regexp.MustCompile(`youtube\.com/(?:c/|user/|channel/|@)([^/?]+)`)
	playlistURLPattern = regexp.MustCompile(`youtube\.com/playlist\?list=([a-zA-Z0-9_-]+)`)
)

// YtDlpClient wraps yt-dlp subprocess calls and is the concrete
// adapter.URLResolver and adapter.SubtitleCatalog this core is built
// against.
type YtDlpClient struct {
	binPath string
	timeout time.Duration
	log     zerolog.Logger
}

// NewYtDlpClient returns a client bound to binPath ("yt-dlp" if empty). A
// failed version check is logged but does not prevent construction — the
// binary may only become reachable once the actual run starts.
func NewYtDlpClient(binPath string, log zerolog.Logger) *YtDlpClient {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	c := &YtDlpClient{binPath: binPath, timeout: DefaultYtDlpTimeout, log: log}
	c.checkVersion()
	return c
}

func (c *YtDlpClient) checkVersion() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, c.binPath, "--version").Output()
	if err != nil {
		c.log.Warn().Err(err).Str("bin", c.binPath).Msg("yt-dlp version check failed, continuing anyway")
		return
	}
	c.log.Info().Str("version", strings.TrimSpace(string(out))).Msg("yt-dlp available")
}

// Identify classifies url per §6.1: watch/short links are videos,
// playlist?list= is a playlist, /c//user//channel//@ is a channel, else
// unknown.
func (c *YtDlpClient) Identify(ctx context.Context, url string) (adapter.URLKind, error) {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "watch?v=") || strings.Contains(lower, "youtu.be/"):
		return adapter.KindVideo, nil
	case strings.Contains(lower, "playlist?list="):
		return adapter.KindPlaylist, nil
	case strings.Contains(lower, "/c/") || strings.Contains(lower, "/user/") ||
		strings.Contains(lower, "/channel/") || strings.Contains(lower, "/@"):
		return adapter.KindChannel, nil
	default:
		return adapter.KindUnknown, nil
	}
}

// ExtractVideoID pulls the 11-character video ID out of a watch/short URL.
func (c *YtDlpClient) ExtractVideoID(url string) (string, bool) {
	m := videoURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// extractChannelOrPlaylistID recovers the raw identifier from a channel or
// playlist URL, used only to label resolveFlat's source in logs.
func extractChannelOrPlaylistID(url string) string {
	if m := playlistURLPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := channelURLPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// Resolve expands url into its member videos (§6.1): a single video URL
// passes through as one VideoInfo, channels and playlists are flattened
// via yt-dlp --flat-playlist.
func (c *YtDlpClient) Resolve(ctx context.Context, url string) ([]adapter.VideoInfo, error) {
	kind, _ := c.Identify(ctx, url)
	switch kind {
	case adapter.KindVideo:
		id, ok := c.ExtractVideoID(url)
		if !ok {
			return nil, apperrors.InvalidInputErr("could not extract video id from " + url)
		}
		return []adapter.VideoInfo{{VideoID: id, URL: url}}, nil
	case adapter.KindChannel, adapter.KindPlaylist:
		return c.resolveFlat(ctx, url)
	default:
		return nil, apperrors.InvalidInputErr("unrecognized youtube url: " + url)
	}
}

type flatEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	WebpageURL string `json:"webpage_url"`
}

func (c *YtDlpClient) resolveFlat(ctx context.Context, url string) ([]adapter.VideoInfo, error) {
	out, stderr, err := c.run(ctx, "--flat-playlist", "--dump-json", "--no-warnings", url)
	if err != nil {
		return nil, mapYtDlpErr(ctx, stderr, err)
	}

	var videos []adapter.VideoInfo
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e flatEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			c.log.Warn().Err(err).Msg("skipping unparseable flat-playlist entry")
			continue
		}
		videoURL := e.WebpageURL
		if videoURL == "" {
			videoURL = "https://www.youtube.com/watch?v=" + e.ID
		}
		videos = append(videos, adapter.VideoInfo{VideoID: e.ID, URL: videoURL, Title: e.Title})
	}
	return videos, nil
}

// ytdlpSubtitleInfo is the subset of yt-dlp's --dump-single-json output
// this core cares about (§6.2): caption availability and chapter presence.
type ytdlpSubtitleInfo struct {
	Subtitles         map[string][]ytdlpSubFormat `json:"subtitles"`
	AutomaticCaptions map[string][]ytdlpSubFormat `json:"automatic_captions"`
	Chapters          []json.RawMessage           `json:"chapters"`
}

type ytdlpSubFormat struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// ListSubtitles reports the manual and auto-generated caption languages
// available for url (§6.2), normalized (en_US -> en-US) and deduplicated.
func (c *YtDlpClient) ListSubtitles(ctx context.Context, url, cookie, proxy string) (adapter.SubtitleList, error) {
	args := []string{"--dump-single-json", "--skip-download", "--no-warnings"}
	args = append(args, cookieAndProxyArgs(cookie, proxy)...)
	args = append(args, url)

	out, stderr, err := c.run(ctx, args...)
	if err != nil {
		return adapter.SubtitleList{}, mapYtDlpErr(ctx, stderr, err)
	}

	var info ytdlpSubtitleInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return adapter.SubtitleList{}, apperrors.ParseErr("parse yt-dlp subtitle listing", err)
	}

	list := adapter.SubtitleList{Chapters: len(info.Chapters) > 0}
	seenManual := make(map[string]bool)
	for lang := range info.Subtitles {
		norm := normalizeLanguageCode(lang)
		if !seenManual[norm] {
			seenManual[norm] = true
			list.Manual = append(list.Manual, norm)
		}
	}
	seenAuto := make(map[string]bool)
	for lang := range info.AutomaticCaptions {
		norm := normalizeLanguageCode(lang)
		if !seenAuto[norm] {
			seenAuto[norm] = true
			list.Auto = append(list.Auto, norm)
		}
	}
	sort.Strings(list.Manual)
	sort.Strings(list.Auto)
	return list, nil
}

// DownloadSubtitle fetches one caption track in whatever wire format
// yt-dlp writes it in (§6.2); callers normalize with pkg/subtitle.ToSRT.
func (c *YtDlpClient) DownloadSubtitle(ctx context.Context, url, lang string, auto bool, cookie, proxy string) ([]byte, subtitle.Format, error) {
	tmpDir, err := os.MkdirTemp("", "ytsubs-dl-*")
	if err != nil {
		return nil, "", apperrors.FileIOErr("create temp dir for subtitle download", err)
	}
	defer os.RemoveAll(tmpDir)

	outTemplate := filepath.Join(tmpDir, "sub.%(ext)s")
	args := []string{"--skip-download", "--no-warnings", "--sub-langs", lang, "-o", outTemplate}
	if auto {
		args = append(args, "--write-auto-sub")
	} else {
		args = append(args, "--write-sub")
	}
	args = append(args, cookieAndProxyArgs(cookie, proxy)...)
	args = append(args, url)

	_, stderr, err := c.run(ctx, args...)
	if err != nil {
		return nil, "", mapYtDlpErr(ctx, stderr, err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, "", apperrors.FileIOErr("read subtitle download dir", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(tmpDir, e.Name()))
		if err != nil {
			return nil, "", apperrors.FileIOErr("read downloaded subtitle file", err)
		}
		return data, subtitle.DetectFormat(data), nil
	}
	return nil, "", apperrors.ContentErr(fmt.Sprintf("no subtitle file produced for lang %q", lang))
}

// cookieAndProxyArgs builds the yt-dlp flags for an optional cookies file
// path and an optional proxy URL, shared by every call that needs them.
func cookieAndProxyArgs(cookie, proxy string) []string {
	var args []string
	if cookie != "" {
		args = append(args, "--cookies", cookie)
	}
	if proxy != "" {
		args = append(args, "--proxy", proxy)
	}
	return args
}

// normalizeLanguageCode canonicalizes a BCP-47-ish language tag: lowercase
// primary subtag, uppercase region/variant subtags, underscore separators
// folded to hyphens (en_US and en-us both become en-US).
func normalizeLanguageCode(code string) string {
	code = strings.ReplaceAll(code, "_", "-")
	parts := strings.Split(code, "-")
	if len(parts) == 0 || parts[0] == "" {
		return code
	}
	parts[0] = strings.ToLower(parts[0])
	for i := 1; i < len(parts); i++ {
		parts[i] = strings.ToUpper(parts[i])
	}
	return strings.Join(parts, "-")
}

// run invokes yt-dlp with args, applying the client's default timeout if
// ctx carries no deadline of its own, and returns stdout/stderr separately
// so callers can classify failures from stderr text.
func (c *YtDlpClient) run(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.binPath, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// mapYtDlpErr classifies a failed yt-dlp invocation, treating a deadline
// exceeded on ctx as TIMEOUT ahead of the general stderr-signal table
// (§4.10).
func mapYtDlpErr(ctx context.Context, stderr string, err error) *apperrors.AppError {
	if ctx.Err() == context.DeadlineExceeded {
		return apperrors.TimeoutErr("yt-dlp timed out", err)
	}
	return apperrors.ClassifyExternal(stderr, err)
}
