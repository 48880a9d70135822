// Package batchrunner builds a batch from one or more input URLs, filters
// already-processed videos against the incremental archive, feeds the
// result to a pipeline.Scheduler, and aggregates the resulting stats
// (spec §2 component table, row L; §4.3 archive routing).
package batchrunner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytsubs/core/internal/adapter"
	"github.com/ytsubs/core/internal/archive"
	"github.com/ytsubs/core/internal/cancel"
	apperrors "github.com/ytsubs/core/internal/errors"
	"github.com/ytsubs/core/internal/manifest"
	"github.com/ytsubs/core/internal/pipeline"
)

var (
	channelURLPattern  = regexp.MustCompile(`youtube\.com/(?:c/|user/|channel/|@)([^/?]+)`)
	playlistURLPattern = regexp.MustCompile(`youtube\.com/playlist\?list=([a-zA-Z0-9_-]+)`)
)

// Options parameterizes one batch build: the output-affecting language
// config the archive hashes against, plus run-level knobs.
type Options struct {
	Force           bool
	Strategy        pipeline.TranslationStrategy
	TargetLanguages []string
	SummaryEnabled  bool
	SummaryLanguage string
	Cookie          string
	ArchiveLang     archive.LanguageConfig
}

// Runner builds a batch manifest from one or more URLs, filters
// already-processed videos against the incremental archive, and feeds the
// result to a pipeline.Scheduler.
type Runner struct {
	Resolver    adapter.URLResolver
	ArchivesDir string
	Store       *manifest.Store
	Log         zerolog.Logger
}

// NewRunner returns a Runner bound to its collaborators.
func NewRunner(resolver adapter.URLResolver, archivesDir string, store *manifest.Store, log zerolog.Logger) *Runner {
	return &Runner{Resolver: resolver, ArchivesDir: archivesDir, Store: store, Log: log}
}

// NewBatchID formats now as a batch ID (§3 BatchManifest.batch_id:
// "YYYYMMDD_HHMMSS"). now is injected so callers can pin a deterministic
// value in tests.
func NewBatchID(now time.Time) string {
	return now.UTC().Format("20060102_150405")
}

// ReadURLFile reads one URL per line from path, skipping blank lines and
// "#"-prefixed comments (§6.5 urls subcommand: "--file F").
func ReadURLFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.FileIOErr("read url list file", err)
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}

// Batch is a prepared run: resolved videos already filtered against the
// archive, plus the manifest and archive handle the caller wires into a
// pipeline.Scheduler.
type Batch struct {
	ID       string
	SourceID string // channel/playlist id the archive is routed by, "" for a url-list batch
	Kind     adapter.URLKind
	Archive  *archive.Archive // nil for a single video URL (not incremental, §4.3)
	Manifest *manifest.BatchManifest
	Videos   []adapter.VideoInfo // after archive filtering
	Skipped  int                 // videos filtered out by the archive
	Errors   []error             // per-URL resolution failures, best-effort
}

// Prepare resolves urls into VideoInfo, loads or creates the batch
// manifest, and filters out videos the archive already has recorded under
// the current LanguageConfig hash (unless forced). It does not start the
// scheduler — callers wire the returned Batch into Run.
func (r *Runner) Prepare(ctx context.Context, urls []string, opts Options, batchID string) (*Batch, error) {
	if len(urls) == 0 {
		return nil, apperrors.InvalidInputErr("no urls given")
	}

	videos, kind, sourceID, errs := r.resolveAll(ctx, urls)
	if len(videos) == 0 {
		return nil, apperrors.ContentErr("no videos resolved from the given url(s)")
	}

	archivePath := r.archivePathFor(kind, sourceID, batchID)
	var arc *archive.Archive
	var err error
	if archivePath != "" {
		arc, err = archive.New(archivePath)
		if err != nil {
			return nil, err
		}
	}

	bm, err := r.Store.LoadBatch(batchID)
	if err != nil {
		return nil, err
	}
	if bm == nil {
		bm = r.Store.CreateBatch(batchID, strings.Join(urls, ","))
	}

	filtered, skipped, err := filterByArchive(arc, videos, archive.ConfigHash(opts.ArchiveLang), opts.Force)
	if err != nil {
		return nil, err
	}

	return &Batch{
		ID:       batchID,
		SourceID: sourceID,
		Kind:     kind,
		Archive:  arc,
		Manifest: bm,
		Videos:   filtered,
		Skipped:  skipped,
		Errors:   errs,
	}, nil
}

// Run starts a fresh scheduler over b's filtered videos and returns the
// aggregate stats ("feed scheduler, aggregate stats").
func (r *Runner) Run(b *Batch, deps pipeline.Deps, conc pipeline.Concurrency, runOpts pipeline.RunOptions, token *cancel.Token) pipeline.Stats {
	runOpts.BatchID = b.ID
	deps.Archive = b.Archive

	sched := pipeline.New(deps, r.Store, b.Manifest, runOpts, conc, token)
	sched.Start()
	return sched.ProcessVideos(b.Videos)
}

// resolveAll resolves every url, tolerating per-url failures so one bad
// entry in a large URL list doesn't abort the whole batch (grounded in the
// original fetcher's per-url tolerance, expressed as explicit errors
// rather than swallowed exceptions). kind/sourceID are only meaningful
// when exactly one channel/playlist URL was given, for archive routing.
func (r *Runner) resolveAll(ctx context.Context, urls []string) ([]adapter.VideoInfo, adapter.URLKind, string, []error) {
	var videos []adapter.VideoInfo
	var errs []error

	var singleKind adapter.URLKind
	var singleSourceID string
	if len(urls) == 1 {
		if kind, err := r.Resolver.Identify(ctx, urls[0]); err == nil {
			singleKind = kind
			singleSourceID = extractSourceID(kind, urls[0])
		}
	}

	for _, url := range urls {
		v, err := r.Resolver.Resolve(ctx, url)
		if err != nil {
			r.Log.Warn().Err(err).Str("url", url).Msg("failed to resolve url, skipping")
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		videos = append(videos, v...)
	}

	return videos, singleKind, singleSourceID, errs
}

// extractSourceID recovers the channel/playlist identifier from a single
// resolved URL, for archive routing (§4.3).
func extractSourceID(kind adapter.URLKind, url string) string {
	switch kind {
	case adapter.KindPlaylist:
		if m := playlistURLPattern.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	case adapter.KindChannel:
		if m := channelURLPattern.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// archivePathFor implements §4.3's routing: a channel or playlist source
// gets a stable per-source file so repeated runs accumulate state; a
// free-form URL list gets one file per batch, since it has no stable
// identity to key on; a single video URL is never incremental.
func (r *Runner) archivePathFor(kind adapter.URLKind, sourceID, batchID string) string {
	switch {
	case kind == adapter.KindChannel && sourceID != "":
		return archive.ChannelArchivePath(r.ArchivesDir, sourceID)
	case kind == adapter.KindPlaylist && sourceID != "":
		return archive.PlaylistArchivePath(r.ArchivesDir, sourceID)
	case kind == adapter.KindVideo:
		return ""
	default:
		return archive.BatchArchivePath(r.ArchivesDir, batchID)
	}
}

// filterByArchive drops videos already recorded in arc under langHash,
// unless force is set or arc is nil (single-video runs are never
// incremental, §4.3).
func filterByArchive(arc *archive.Archive, videos []adapter.VideoInfo, langHash string, force bool) ([]adapter.VideoInfo, int, error) {
	if arc == nil || force {
		return videos, 0, nil
	}

	var kept []adapter.VideoInfo
	skipped := 0
	for _, v := range videos {
		processed, err := arc.IsProcessed(v.VideoID, langHash)
		if err != nil {
			return nil, 0, err
		}
		if processed {
			skipped++
			continue
		}
		kept = append(kept, v)
	}
	return kept, skipped, nil
}

// DryRunResult buckets videos by caption availability, without touching
// the archive, outputs, or failure logs (§6.5: "--dry-run performs DETECT
// only").
type DryRunResult struct {
	WithSubtitle    []adapter.VideoInfo
	WithoutSubtitle []adapter.VideoInfo
	Errors          []error
}

// DryRun runs DETECT directly against the catalog for every video,
// bucketing by whether any caption (manual or auto) is available. A
// detect failure buckets the video as "without subtitle" rather than
// aborting the dry run.
func (r *Runner) DryRun(ctx context.Context, catalog adapter.SubtitleCatalog, videos []adapter.VideoInfo, cookie string) DryRunResult {
	var res DryRunResult
	for _, v := range videos {
		list, err := catalog.ListSubtitles(ctx, v.URL, cookie, "")
		if err != nil {
			r.Log.Warn().Err(err).Str("video_id", v.VideoID).Msg("dry-run detect failed")
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", v.VideoID, err))
			res.WithoutSubtitle = append(res.WithoutSubtitle, v)
			continue
		}
		if len(list.Manual) > 0 || len(list.Auto) > 0 {
			res.WithSubtitle = append(res.WithSubtitle, v)
		} else {
			res.WithoutSubtitle = append(res.WithoutSubtitle, v)
		}
	}
	return res
}

// WriteDryRunLists writes with_subtitle.txt/without_subtitle.txt under
// outputDir (§4.8 OUTPUT tree), one URL per line.
func WriteDryRunLists(outputDir string, res DryRunResult) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return apperrors.FileIOErr("create output dir for dry-run lists", err)
	}
	if err := writeURLList(filepath.Join(outputDir, "with_subtitle.txt"), res.WithSubtitle); err != nil {
		return err
	}
	return writeURLList(filepath.Join(outputDir, "without_subtitle.txt"), res.WithoutSubtitle)
}

func writeURLList(path string, videos []adapter.VideoInfo) error {
	var b strings.Builder
	for _, v := range videos {
		b.WriteString(v.URL)
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return apperrors.FileIOErr("write "+path, err)
	}
	return nil
}

// WriteVideoListFile writes video_list.txt under outputDir (§4.8 OUTPUT
// tree): every resolved video URL for this run, one per line.
func WriteVideoListFile(outputDir string, videos []adapter.VideoInfo) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return apperrors.FileIOErr("create output dir for video list", err)
	}
	return writeURLList(filepath.Join(outputDir, "video_list.txt"), videos)
}
