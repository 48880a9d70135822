package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ytsubs/core/internal/config"
)

// knownGoodVideoURL is a stable, always-public video used purely to probe
// whether a cookies file lets yt-dlp authenticate (§6.5 test-cookie).
const knownGoodVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func newTestCookieCmd(ctx context.Context, cfg *config.Config, log zerolog.Logger) *cobra.Command {
	var cookie string

	cmd := &cobra.Command{
		Use:   "test-cookie",
		Short: "Verify a cookies file works against yt-dlp",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cookie == "" {
				cookie = cfg.Cookie
			}
			if cookie == "" {
				return fmt.Errorf("no cookie file given (--cookie or YOUTUBE_COOKIE)")
			}

			rt, err := buildRuntime(cfg, log)
			if err != nil {
				return err
			}

			list, err := rt.ytdlp.ListSubtitles(ctx, knownGoodVideoURL, cookie, "")
			if err != nil {
				return fmt.Errorf("cookie check failed: %w", err)
			}

			fmt.Printf("cookie ok: manual=%v auto=%v\n", list.Manual, list.Auto)
			return nil
		},
	}

	cmd.Flags().StringVar(&cookie, "cookie", "", "path to the cookies file to test")
	return cmd
}
