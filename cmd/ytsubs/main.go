// Command ytsubs is the CLI surface over the subtitle pipeline core (spec
// §6.5): channel/urls batch runs (dry-run or full), plus a test-cookie
// diagnostic. Exit code 0 on success, 1 on any failure or invalid
// invocation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ytsubs/core/internal/archive"
	"github.com/ytsubs/core/internal/cancel"
	"github.com/ytsubs/core/internal/config"
	"github.com/ytsubs/core/internal/logger"
	"github.com/ytsubs/core/internal/resource"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	token := cancel.New()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Info().Msg("shutdown signal received, cancelling run")
			token.Cancel("signal")
			stop()
		case <-ctx.Done():
		}
	}()

	if n, err := resource.Sweep(cfg.OutputDir, log); err != nil {
		log.Warn().Err(err).Msg("startup temp-file sweep failed")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("swept stale temp files on startup")
	}

	if archivesDir, err := cfg.ArchivesDir(); err != nil {
		log.Warn().Err(err).Msg("could not resolve archives dir for migration check")
	} else if err := archive.Migrate(archivesDir, log); err != nil {
		log.Warn().Err(err).Msg("old archive migration failed")
	}

	rootCmd := newRootCmd(ctx, token, cfg, log)
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd(ctx context.Context, token *cancel.Token, cfg *config.Config, log zerolog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "ytsubs",
		Short:         "Detect, download, translate, summarize, and output YouTube subtitles",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newChannelCmd(ctx, token, cfg, log))
	root.AddCommand(newURLsCmd(ctx, token, cfg, log))
	root.AddCommand(newTestCookieCmd(ctx, cfg, log))

	return root
}
