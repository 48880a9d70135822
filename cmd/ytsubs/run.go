package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytsubs/core/internal/adapter"
	"github.com/ytsubs/core/internal/archive"
	"github.com/ytsubs/core/internal/batchrunner"
	"github.com/ytsubs/core/internal/cancel"
	"github.com/ytsubs/core/internal/config"
	"github.com/ytsubs/core/internal/manifest"
	"github.com/ytsubs/core/internal/pipeline"
)

// runDryRun performs DETECT only, against every video the url(s) resolve
// to, and writes with_subtitle.txt/without_subtitle.txt without touching
// the archive, outputs, or failure logs (§6.5).
func runDryRun(ctx context.Context, cfg *config.Config, log zerolog.Logger, rt *runtime, archivesDir string, urls []string, flags *runFlags) error {
	var videos []adapter.VideoInfo
	for _, url := range urls {
		v, err := rt.ytdlp.Resolve(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to resolve url during dry run, skipping")
			continue
		}
		videos = append(videos, v...)
	}

	runner := batchrunner.NewRunner(rt.ytdlp, archivesDir, nil, log)
	result := runner.DryRun(ctx, rt.ytdlp, videos, flags.cookie)
	if err := batchrunner.WriteDryRunLists(cfg.OutputDir, result); err != nil {
		return err
	}

	log.Info().
		Int("total", len(videos)).
		Int("with_subtitle", len(result.WithSubtitle)).
		Int("without_subtitle", len(result.WithoutSubtitle)).
		Msg("dry run complete")
	return nil
}

// runFull resolves urls, filters already-processed videos against the
// archive, and drives them through the full pipeline.
func runFull(ctx context.Context, token *cancel.Token, cfg *config.Config, log zerolog.Logger, rt *runtime, archivesDir string, urls []string, flags *runFlags, langCfg archive.LanguageConfig) error {
	store, err := manifest.NewStore(cfg.StateDir(), log)
	if err != nil {
		return err
	}
	defer store.Shutdown()

	runner := batchrunner.NewRunner(rt.ytdlp, archivesDir, store, log)
	batchID := batchrunner.NewBatchID(time.Now())

	opts := batchrunner.Options{
		Force:           flags.force,
		Strategy:        pipeline.TranslationStrategy(flags.translationStrategy),
		TargetLanguages: flags.targetLanguages,
		SummaryEnabled:  flags.summary,
		SummaryLanguage: flags.summaryLanguage,
		Cookie:          flags.cookie,
		ArchiveLang:     langCfg,
	}

	batch, err := runner.Prepare(ctx, urls, opts, batchID)
	if err != nil {
		return err
	}
	for _, rerr := range batch.Errors {
		log.Warn().Err(rerr).Msg("url resolution failed, continuing with the rest")
	}
	log.Info().
		Str("batch_id", batchID).
		Int("videos", len(batch.Videos)).
		Int("skipped_by_archive", batch.Skipped).
		Msg("batch prepared")

	if err := batchrunner.WriteVideoListFile(cfg.OutputDir, batch.Videos); err != nil {
		log.Warn().Err(err).Msg("failed to write video list file")
	}

	resources, err := buildPipelineResources(ctx, cfg, log, rt, batchID, langCfg, flags.summary)
	if err != nil {
		return err
	}

	runOpts := pipeline.RunOptions{
		RunID:           batchID,
		Strategy:        opts.Strategy,
		TargetLanguages: opts.TargetLanguages,
		SummaryEnabled:  opts.SummaryEnabled,
		SummaryLanguage: opts.SummaryLanguage,
		Cookie:          opts.Cookie,
		KeepTempOnError: cfg.KeepTempOnError,
	}

	stats := runner.Run(batch, resources.deps, resources.conc, runOpts, token)
	printStats(stats)
	return nil
}
