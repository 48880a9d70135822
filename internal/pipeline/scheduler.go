package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ytsubs/core/internal/adapter"
	"github.com/ytsubs/core/internal/archive"
	"github.com/ytsubs/core/internal/cancel"
	apperrors "github.com/ytsubs/core/internal/errors"
	"github.com/ytsubs/core/internal/failure"
	"github.com/ytsubs/core/internal/manifest"
	"github.com/ytsubs/core/internal/proxy"
	"github.com/ytsubs/core/internal/resource"
	"github.com/ytsubs/core/internal/service"
	"github.com/ytsubs/core/internal/stagequeue"
)

// Deps are the external-boundary adapters and stores every stage processor
// is built against (spec §6). TranslateLLM/SummarizeLLM may be nil: the
// profile resolver already picked provider/model per task at construction
// time, and a nil SummarizeLLM just means summarization is unavailable
// (not a failure, per §4.8 SUMMARIZE). Progress may be nil, in which case
// the Redis mirror is simply skipped.
type Deps struct {
	Catalog      adapter.SubtitleCatalog
	TranslateLLM adapter.LLMAdapter
	SummarizeLLM adapter.LLMAdapter
	Writer       adapter.Writer

	Archive     *archive.Archive
	FailureLog  *failure.Logger
	Resources   *resource.Manager
	ArchiveLang archive.LanguageConfig
	Progress    *service.BatchService

	// Proxies may be nil, in which case every item connects directly.
	Proxies             *proxy.Pool
	AllowDirectFallback bool

	Log zerolog.Logger
}

// selectProxy picks the proxy a new item should use, or "" for a direct
// connection when no pool is configured (spec §4.5 get_next_proxy).
func (s *Scheduler) selectProxy() string {
	if s.deps.Proxies == nil {
		return ""
	}
	return s.deps.Proxies.NextWithDirect(s.deps.AllowDirectFallback)
}

// reportProxyResult feeds an external call's outcome back into the proxy
// pool's health tracking, a no-op for direct connections or an unconfigured
// pool (spec §4.5).
func (s *Scheduler) reportProxyResult(proxyURL string, err error) {
	if s.deps.Proxies == nil || proxyURL == "" {
		return
	}
	if err != nil {
		s.deps.Proxies.MarkFailure(proxyURL, err.Error())
		return
	}
	s.deps.Proxies.MarkSuccess(proxyURL)
}

// Concurrency holds per-stage worker counts (spec §4.7 defaults).
type Concurrency struct {
	Detect, Download, Translate, Summarize, Output int
}

// DefaultConcurrency matches §4.7's stated rationale: downloads/translations
// are externally throughput-bound, detect/output are cheap parallel I/O.
func DefaultConcurrency() Concurrency {
	return Concurrency{Detect: 2, Download: 2, Translate: 1, Summarize: 1, Output: 2}
}

// RunOptions parameterizes one batch run.
type RunOptions struct {
	BatchID             string
	RunID               string
	Strategy            TranslationStrategy
	TargetLanguages     []string
	SummaryEnabled      bool
	SummaryLanguage     string
	Cookie              string
	MaxChunkRetries int // default 2
	ChunkMaxCues    int // default chunk.DefaultMaxCues
	ChunkMaxChars   int // default chunk.DefaultMaxChars
	KeepTempOnError bool
}

// Stats is the aggregate result of one ProcessVideos call (spec §4.7).
type Stats struct {
	Total       int
	Succeeded   int
	Failed      int
	Skipped     int
	ErrorCounts map[string]int
}

// Scheduler composes the five stage queues and owns the batch manifest for
// one run.
type Scheduler struct {
	deps Deps
	opts RunOptions
	conc Concurrency

	store *manifest.Store
	batch *manifest.BatchManifest
	mu    sync.Mutex // guards batch (map mutation across concurrent stage workers)

	token *cancel.Token

	detectQ    *stagequeue.Queue[*StageData]
	downloadQ  *stagequeue.Queue[*StageData]
	translateQ *stagequeue.Queue[*StageData]
	summarizeQ *stagequeue.Queue[*StageData]
	outputQ    *stagequeue.Queue[*StageData]

	errCounts map[string]int
	skipped   int
	errMu     sync.Mutex
}

// New builds a Scheduler with all five stage queues wired in order but not
// yet started.
func New(deps Deps, store *manifest.Store, batch *manifest.BatchManifest, opts RunOptions, conc Concurrency, token *cancel.Token) *Scheduler {
	if opts.MaxChunkRetries <= 0 {
		opts.MaxChunkRetries = 2
	}
	s := &Scheduler{
		deps:      deps,
		opts:      opts,
		conc:      conc,
		store:     store,
		batch:     batch,
		token:     token,
		errCounts: make(map[string]int),
	}

	s.outputQ = stagequeue.New[*StageData](conc.Output*2, conc.Output, s.processOutput, token)
	s.summarizeQ = stagequeue.New[*StageData](conc.Summarize*2, conc.Summarize, s.handlerSummarize, token)
	s.translateQ = stagequeue.New[*StageData](conc.Translate*2, conc.Translate, s.handlerTranslate, token)
	s.downloadQ = stagequeue.New[*StageData](conc.Download*2, conc.Download, s.handlerDownload, token)
	s.detectQ = stagequeue.New[*StageData](conc.Detect*2, conc.Detect, s.handlerDetect, token)

	return s
}

// Start launches every stage's worker pool.
func (s *Scheduler) Start() {
	s.detectQ.Start()
	s.downloadQ.Start()
	s.translateQ.Start()
	s.summarizeQ.Start()
	s.outputQ.Start()
}

// ProcessVideos submits every video to DETECT, closes its input once all
// are submitted, waits for every stage to drain in order, and returns
// aggregate stats (spec §4.7 Lifecycle).
func (s *Scheduler) ProcessVideos(videos []adapter.VideoInfo) Stats {
	for _, v := range videos {
		s.mu.Lock()
		s.batch.AddVideo(v.VideoID, v.URL, v.Title)
		s.mu.Unlock()

		if s.deps.Progress != nil {
			_ = s.deps.Progress.StartVideo(context.Background(), s.opts.BatchID, v.VideoID, v.URL)
		}

		item := &StageData{
			Video:           v,
			RunID:           s.opts.RunID,
			BatchID:         s.opts.BatchID,
			Strategy:        s.opts.Strategy,
			TargetLanguages: s.opts.TargetLanguages,
			SummaryEnabled:  s.opts.SummaryEnabled,
			SummaryLanguage: s.opts.SummaryLanguage,
			Cookie:          s.opts.Cookie,
			Proxy:           s.selectProxy(),
		}
		if !s.detectQ.Submit(item) {
			break // cancelled
		}
	}
	s.detectQ.CloseInput()
	s.detectQ.Wait()
	s.downloadQ.CloseInput()
	s.downloadQ.Wait()
	s.translateQ.CloseInput()
	s.translateQ.Wait()
	s.summarizeQ.CloseInput()
	s.summarizeQ.Wait()
	s.outputQ.CloseInput()
	s.outputQ.Wait()

	s.flushManifest()
	return s.stats(len(videos))
}

// Stop cancels the run; queues drain cooperatively per §4.6/§5.
func (s *Scheduler) Stop(reason string) {
	s.token.Cancel(reason)
}

func (s *Scheduler) stats(total int) Stats {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	s.mu.Lock()
	byStage := s.batch.Statistics()
	s.mu.Unlock()

	counts := make(map[string]int, len(s.errCounts))
	for k, v := range s.errCounts {
		counts[k] = v
	}
	return Stats{
		Total:       total,
		Succeeded:   byStage[manifest.StageDone],
		Failed:      byStage[manifest.StageFailed],
		Skipped:     byStage[manifest.StageSkipped],
		ErrorCounts: counts,
	}
}

func (s *Scheduler) flushManifest() {
	s.mu.Lock()
	s.batch.Touch()
	s.mu.Unlock()
	s.store.MarkDirty(s.batch)
	_ = s.store.Flush()
}

// updateStage records a video's stage transition in the batch manifest and
// mirrors it to Redis, if configured.
func (s *Scheduler) updateStage(videoID string, stage manifest.VideoStage) {
	s.mu.Lock()
	if v, ok := s.batch.GetVideo(videoID); ok {
		v.UpdateStage(stage)
	}
	s.store.MarkDirty(s.batch)
	s.mu.Unlock()

	if s.deps.Progress != nil {
		_ = s.deps.Progress.UpdateStage(context.Background(), s.opts.BatchID, videoID, mirrorStageName(stage), "processing", "")
	}
}

// mirrorStageName maps a manifest.VideoStage's gerund form to the noun the
// Redis progress mirror keys its per-stage fields by.
func mirrorStageName(stage manifest.VideoStage) string {
	switch stage {
	case manifest.StageDetecting:
		return "detect"
	case manifest.StageDownloading:
		return "download"
	case manifest.StageTranslating:
		return "translate"
	case manifest.StageSummarizing:
		return "summarize"
	case manifest.StageOutputting:
		return "output"
	default:
		return string(stage)
	}
}

// failItem records a stage failure: failure-logger entry + error-type
// stats, per §4.7 Failure routing. A CANCELLED item is recorded as a
// FailureRecord but left out of manifest FAILED: its stage stays wherever
// the scheduler stopped it, so a resumed run's ResumableVideos picks it
// back up instead of treating it as terminally failed (§4.6 Cancellation).
func (s *Scheduler) failItem(item *StageData, stageName string, appErr *apperrors.AppError) {
	if appErr.Type != apperrors.Cancelled {
		s.mu.Lock()
		if v, ok := s.batch.GetVideo(item.Video.VideoID); ok {
			v.MarkFailed(appErr.Message, string(appErr.Type))
		}
		s.store.MarkDirty(s.batch)
		s.mu.Unlock()
	}

	s.errMu.Lock()
	s.errCounts[string(appErr.Type)]++
	s.errMu.Unlock()

	_ = s.deps.FailureLog.LogFailure(failure.Record{
		VideoID:   item.Video.VideoID,
		URL:       item.Video.URL,
		Stage:     stageName,
		ErrorType: string(appErr.Type),
		Reason:    appErr.Message,
		RunID:     item.RunID,
	})

	s.deps.Log.Warn().
		Str("video_id", item.Video.VideoID).
		Str("stage", stageName).
		Str("error_type", string(appErr.Type)).
		Msg("video failed")
}

// skipItem records a non-error terminal state (§4.7 Success routing): no
// subtitles available.
func (s *Scheduler) skipItem(item *StageData, reason string) {
	s.mu.Lock()
	if v, ok := s.batch.GetVideo(item.Video.VideoID); ok {
		v.MarkSkipped(reason)
	}
	s.store.MarkDirty(s.batch)
	s.mu.Unlock()

	s.errMu.Lock()
	s.skipped++
	s.errMu.Unlock()

	_ = s.deps.FailureLog.LogFailure(failure.Record{
		VideoID:   item.Video.VideoID,
		URL:       item.Video.URL,
		Stage:     "detect",
		ErrorType: string(apperrors.Content),
		Reason:    reason,
		RunID:     item.RunID,
	})
}

func (s *Scheduler) cancelled() bool {
	return s.token.Cancelled()
}
