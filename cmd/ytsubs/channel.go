package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ytsubs/core/internal/batchrunner"
	"github.com/ytsubs/core/internal/cancel"
	"github.com/ytsubs/core/internal/config"
	"github.com/ytsubs/core/internal/pipeline"
)

// runFlags are the language-config and run-mode flags shared by channel and
// urls (§3 LanguageConfig; §6.5 --dry-run|--run, --force).
type runFlags struct {
	dryRun              bool
	run                 bool
	force               bool
	targetLanguages     []string
	sourceLanguage      string
	summary             bool
	summaryLanguage     string
	bilingualMode       string
	translationStrategy string
	subtitleFormat      string
	cookie              string
}

func registerRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "detect subtitle availability only, no download/translate/output")
	cmd.Flags().BoolVar(&f.run, "run", false, "run the full pipeline")
	cmd.Flags().BoolVar(&f.force, "force", false, "ignore the incremental archive and reprocess everything")
	cmd.Flags().StringSliceVar(&f.targetLanguages, "target-languages", nil, "subtitle translation target language codes")
	cmd.Flags().StringVar(&f.sourceLanguage, "source-language", "", "subtitle source language code, empty to auto-detect")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "also generate a transcript summary")
	cmd.Flags().StringVar(&f.summaryLanguage, "summary-language", "en", "summary output language code")
	cmd.Flags().StringVar(&f.bilingualMode, "bilingual-mode", "none", "bilingual subtitle mode: none|stacked|side_by_side")
	cmd.Flags().StringVar(&f.translationStrategy, "translation-strategy", string(pipeline.OfficialAutoThenAI), "official_only|ai_only|official_auto_then_ai")
	cmd.Flags().StringVar(&f.subtitleFormat, "subtitle-format", "srt", "output subtitle format")
	cmd.Flags().StringVar(&f.cookie, "cookie", "", "path to a cookies file for age-restricted/private videos")
}

func (f *runFlags) validate() error {
	if f.dryRun == f.run {
		return fmt.Errorf("specify exactly one of --dry-run or --run")
	}
	if f.run && len(f.targetLanguages) == 0 {
		return fmt.Errorf("--run requires at least one --target-languages entry")
	}
	return nil
}

func newChannelCmd(ctx context.Context, token *cancel.Token, cfg *config.Config, log zerolog.Logger) *cobra.Command {
	var url string
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Process every video on a channel or playlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				return fmt.Errorf("--url is required")
			}
			if err := flags.validate(); err != nil {
				return err
			}
			return runBatch(ctx, token, cfg, log, []string{url}, flags)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "channel, playlist, or single video URL")
	registerRunFlags(cmd, flags)
	return cmd
}

func newURLsCmd(ctx context.Context, token *cancel.Token, cfg *config.Config, log zerolog.Logger) *cobra.Command {
	var file string
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "urls",
		Short: "Process an explicit list of video URLs from a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			if err := flags.validate(); err != nil {
				return err
			}
			urls, err := batchrunner.ReadURLFile(file)
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return fmt.Errorf("%s contains no urls", file)
			}
			return runBatch(ctx, token, cfg, log, urls, flags)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to a file with one URL per line")
	registerRunFlags(cmd, flags)
	return cmd
}

// runBatch drives either a dry run (DETECT only) or a full run, shared by
// the channel and urls subcommands.
func runBatch(ctx context.Context, token *cancel.Token, cfg *config.Config, log zerolog.Logger, urls []string, flags *runFlags) error {
	rt, err := buildRuntime(cfg, log)
	if err != nil {
		return err
	}

	archivesDir, err := cfg.ArchivesDir()
	if err != nil {
		return err
	}

	langCfg := archiveLanguageConfig(flags.targetLanguages, flags.summaryLanguage, flags.sourceLanguage, flags.bilingualMode, flags.translationStrategy, flags.subtitleFormat)

	if flags.dryRun {
		return runDryRun(ctx, cfg, log, rt, archivesDir, urls, flags)
	}
	return runFull(ctx, token, cfg, log, rt, archivesDir, urls, flags, langCfg)
}
