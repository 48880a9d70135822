package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytsubs/core/internal/adapter"
	"github.com/ytsubs/core/internal/archive"
	"github.com/ytsubs/core/internal/cancel"
	"github.com/ytsubs/core/internal/failure"
	"github.com/ytsubs/core/internal/manifest"
	"github.com/ytsubs/core/internal/resource"
	"github.com/ytsubs/core/pkg/subtitle"
)

type fakeCatalog struct {
	lists     map[string]adapter.SubtitleList
	downloads map[string]string // "url|lang" -> srt text
}

func (f *fakeCatalog) ListSubtitles(ctx context.Context, url, cookie, proxy string) (adapter.SubtitleList, error) {
	return f.lists[url], nil
}

func (f *fakeCatalog) DownloadSubtitle(ctx context.Context, url, lang string, auto bool, cookie, proxy string) ([]byte, subtitle.Format, error) {
	text := f.downloads[url+"|"+lang]
	return []byte(text), subtitle.FormatSRT, nil
}

type fakeLLM struct{}

func (f *fakeLLM) TranslateChunk(ctx context.Context, cues []subtitle.Cue, sourceLang, targetLang, context_ string) ([]subtitle.Cue, error) {
	out := make([]subtitle.Cue, len(cues))
	for i, c := range cues {
		out[i] = c
		out[i].Lines = []string{"[" + targetLang + "] " + c.Text()}
	}
	return out, nil
}

func (f *fakeLLM) Summarize(ctx context.Context, text, targetLang string, chapters []string) (string, error) {
	return "# summary\n" + text, nil
}

type fakeWriter struct{ dir string }

func (f *fakeWriter) WriteVideoArtifacts(ctx context.Context, videoID string, artifacts adapter.WriterArtifacts) (map[string]string, error) {
	out := make(map[string]string)
	dir := filepath.Join(f.dir, videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	for name, data := range artifacts {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return nil, err
		}
		out[name] = p
	}
	return out, nil
}

func sampleSRT() string {
	return "1\n00:00:00,000 --> 00:00:02,000\nhello world\n\n" +
		"2\n00:00:02,000 --> 00:00:04,000\ngoodbye\n"
}

func newTestScheduler(t *testing.T, catalog adapter.SubtitleCatalog, llm adapter.LLMAdapter, strategy TranslationStrategy, targets []string) (*Scheduler, string) {
	t.Helper()
	outDir := t.TempDir()

	store, err := manifest.NewStore(filepath.Join(outDir, ".state"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Shutdown() })

	batch := manifest.NewBatchManifest("batch-1", "urls")

	arc, err := archive.New(filepath.Join(outDir, "archive.txt"))
	require.NoError(t, err)

	failLog, err := failure.NewLogger(outDir)
	require.NoError(t, err)

	resMgr, err := resource.NewManager(filepath.Join(outDir, "temp"))
	require.NoError(t, err)

	writer := &fakeWriter{dir: filepath.Join(outDir, "videos")}

	deps := Deps{
		Catalog:      catalog,
		TranslateLLM: llm,
		SummarizeLLM: llm,
		Writer:       writer,
		Archive:      arc,
		FailureLog:   failLog,
		Resources:    resMgr,
		Log:          zerolog.Nop(),
	}

	opts := RunOptions{
		BatchID:         "batch-1",
		RunID:           "run-1",
		Strategy:        strategy,
		TargetLanguages: targets,
		SummaryEnabled:  true,
		SummaryLanguage: "en",
	}

	sched := New(deps, store, batch, opts, DefaultConcurrency(), cancel.New())
	return sched, outDir
}

func TestSchedulerAIOnlyHappyPath(t *testing.T) {
	catalog := &fakeCatalog{
		lists: map[string]adapter.SubtitleList{
			"https://youtu.be/v1": {Manual: []string{"en"}},
		},
		downloads: map[string]string{
			"https://youtu.be/v1|en": sampleSRT(),
		},
	}
	sched, outDir := newTestScheduler(t, catalog, &fakeLLM{}, AIOnly, []string{"zh"})
	sched.Start()

	stats := sched.ProcessVideos([]adapter.VideoInfo{{VideoID: "v1", URL: "https://youtu.be/v1", Title: "T"}})

	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)

	assert.FileExists(t, filepath.Join(outDir, "videos", "v1", "translated.zh.srt"))
	assert.FileExists(t, filepath.Join(outDir, "videos", "v1", "original.en.srt"))
	assert.FileExists(t, filepath.Join(outDir, "videos", "v1", "metadata.json"))

	processed, err := arcIsProcessed(outDir, "v1")
	require.NoError(t, err)
	assert.True(t, processed)

	assert.NoDirExists(t, filepath.Join(outDir, "temp", "v1"))
}

func arcIsProcessed(outDir, videoID string) (bool, error) {
	a, err := archive.New(filepath.Join(outDir, "archive.txt"))
	if err != nil {
		return false, err
	}
	ids, err := a.ProcessedVideoIDs()
	if err != nil {
		return false, err
	}
	return ids[videoID], nil
}

func TestSchedulerSkipsVideoWithNoSubtitles(t *testing.T) {
	catalog := &fakeCatalog{
		lists: map[string]adapter.SubtitleList{
			"https://youtu.be/v2": {},
		},
	}
	sched, _ := newTestScheduler(t, catalog, &fakeLLM{}, AIOnly, []string{"zh"})
	sched.Start()

	stats := sched.ProcessVideos([]adapter.VideoInfo{{VideoID: "v2", URL: "https://youtu.be/v2"}})

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
}

func TestSchedulerOfficialOnlyFailsWhenTargetMissing(t *testing.T) {
	catalog := &fakeCatalog{
		lists: map[string]adapter.SubtitleList{
			"https://youtu.be/v3": {Manual: []string{"en"}},
		},
		downloads: map[string]string{
			"https://youtu.be/v3|en": sampleSRT(),
		},
	}
	sched, _ := newTestScheduler(t, catalog, &fakeLLM{}, OfficialOnly, []string{"zh"})
	sched.Start()

	stats := sched.ProcessVideos([]adapter.VideoInfo{{VideoID: "v3", URL: "https://youtu.be/v3"}})

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.ErrorCounts["CONTENT"])
}

func TestSchedulerOfficialAutoThenAIMixesOfficialAndAI(t *testing.T) {
	catalog := &fakeCatalog{
		lists: map[string]adapter.SubtitleList{
			"https://youtu.be/v4": {Manual: []string{"en", "fr"}},
		},
		downloads: map[string]string{
			"https://youtu.be/v4|en": sampleSRT(),
			"https://youtu.be/v4|fr": sampleSRT(),
		},
	}
	sched, outDir := newTestScheduler(t, catalog, &fakeLLM{}, OfficialAutoThenAI, []string{"fr", "zh"})
	sched.Start()

	stats := sched.ProcessVideos([]adapter.VideoInfo{{VideoID: "v4", URL: "https://youtu.be/v4"}})

	assert.Equal(t, 1, stats.Succeeded)
	assert.FileExists(t, filepath.Join(outDir, "videos", "v4", "translated.fr.srt"))
	assert.FileExists(t, filepath.Join(outDir, "videos", "v4", "translated.zh.srt"))
}
