package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ytsubs/core/internal/adapter"
	"github.com/ytsubs/core/internal/archive"
	"github.com/ytsubs/core/internal/client"
	"github.com/ytsubs/core/internal/config"
	"github.com/ytsubs/core/internal/failure"
	"github.com/ytsubs/core/internal/pipeline"
	"github.com/ytsubs/core/internal/profile"
	"github.com/ytsubs/core/internal/proxy"
	"github.com/ytsubs/core/internal/resource"
	"github.com/ytsubs/core/internal/service"
)

// runtime holds the collaborators every subcommand needs regardless of
// whether it ends up doing a dry run or a full run: the yt-dlp-backed
// resolver/catalog, the AI profile resolver, and the proxy pool.
type runtime struct {
	cfg      *config.Config
	log      zerolog.Logger
	ytdlp    *client.YtDlpClient
	profiles *profile.Resolver
	proxies  *proxy.Pool
}

func buildRuntime(cfg *config.Config, log zerolog.Logger) (*runtime, error) {
	profilesPath, err := cfg.AIProfilesFilePath()
	if err != nil {
		return nil, err
	}
	profiles, err := profile.Load(profilesPath, log)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		log:      log,
		ytdlp:    client.NewYtDlpClient("", log),
		profiles: profiles,
		proxies:  proxy.New(cfg.Proxies, cfg.ProxyFailureThreshold, cfg.ProxyCooldown, log),
	}, nil
}

// pipelineResources bundles everything a full --run needs beyond the
// shared runtime and the already-constructed manifest store. The resource
// manager owns a background temp-dir root the caller doesn't need to
// touch directly.
type pipelineResources struct {
	deps      pipeline.Deps
	conc      pipeline.Concurrency
	resources *resource.Manager
}

// buildPipelineResources wires the concrete adapters named in the AI
// profile resolution and the optional cloud mirrors, nil-guarding every
// optional client on its required configuration being present (same
// defensive-construction idiom the server entrypoint this was grounded on
// uses for its own optional clients).
func buildPipelineResources(ctx context.Context, cfg *config.Config, log zerolog.Logger, rt *runtime, batchID string, archiveLang archive.LanguageConfig, summaryEnabled bool) (*pipelineResources, error) {
	openaiClient, geminiClient := buildLLMClients(ctx, cfg, log)

	var translateLLM adapter.LLMAdapter
	translateProfile := rt.profiles.ForTask(profile.TaskTranslate)
	if t, ok := client.NewLLMAdapter(translateProfile.Provider, translateProfile.Model, openaiClient, geminiClient); ok {
		translateLLM = t
	} else {
		log.Warn().Str("provider", translateProfile.Provider).Msg("no client configured for translate profile's provider")
	}

	var summarizeLLM adapter.LLMAdapter
	if summaryEnabled {
		summarizeProfile := rt.profiles.ForTask(profile.TaskSummarize)
		if s, ok := client.NewLLMAdapter(summarizeProfile.Provider, summarizeProfile.Model, openaiClient, geminiClient); ok {
			summarizeLLM = s
		} else {
			log.Warn().Str("provider", summarizeProfile.Provider).Msg("no client configured for summarize profile's provider")
		}
	}

	storageClient := buildStorageClient(ctx, cfg, log)
	cloudflareClient := buildCloudflareClient(ctx, cfg, log)
	pubsubClient := buildPubSubClient(ctx, cfg, log)
	progress := buildProgressService(cfg, log)

	writer := client.NewVideoWriter(cfg.VideosDir(), storageClient, cloudflareClient, pubsubClient, batchID, log)

	failureLog, err := failure.NewLogger(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	resourceMgr, err := resource.NewManager(filepath.Join(cfg.OutputDir, "tmp"))
	if err != nil {
		return nil, err
	}

	return &pipelineResources{
		deps: pipeline.Deps{
			Catalog:             rt.ytdlp,
			TranslateLLM:        translateLLM,
			SummarizeLLM:        summarizeLLM,
			Writer:              writer,
			FailureLog:          failureLog,
			Resources:           resourceMgr,
			ArchiveLang:         archiveLang,
			Progress:            progress,
			Proxies:             rt.proxies,
			AllowDirectFallback: cfg.AllowDirectWhenProxiesDead,
			Log:                 log,
		},
		conc: pipeline.Concurrency{
			Detect:    cfg.DetectWorkers,
			Download:  cfg.DownloadWorkers,
			Translate: cfg.TranslateWorkers,
			Summarize: cfg.SummarizeWorkers,
			Output:    cfg.OutputWorkers,
		},
		resources: resourceMgr,
	}, nil
}

func buildLLMClients(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*client.OpenAIClient, *client.GeminiClient) {
	var openaiClient *client.OpenAIClient
	if cfg.OpenAIAPIKey != "" {
		openaiClient = client.NewOpenAIClient(cfg.OpenAIAPIKey)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, openai translation/summarization unavailable")
	}

	var geminiClient *client.GeminiClient
	if cfg.GoogleAIAPIKey != "" {
		var err error
		geminiClient, err = client.NewGeminiClient(ctx, "", "", cfg.GoogleAIAPIKey)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize gemini client")
			geminiClient = nil
		}
	}
	return openaiClient, geminiClient
}

func buildStorageClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) *client.StorageClient {
	if cfg.GCSBucket == "" {
		return nil
	}
	storageClient, err := client.NewStorageClient(ctx, cfg.GCSBucket)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize gcs client, continuing without it")
		return nil
	}
	return storageClient
}

func buildCloudflareClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) *client.CloudflareClient {
	if cfg.CloudflareAccessKeyID == "" || cfg.CloudflareSecretKey == "" || cfg.CloudflareR2Endpoint == "" || cfg.CloudflareBucketName == "" {
		return nil
	}
	cloudflareClient, err := client.NewCloudflareClient(ctx, cfg.CloudflareAccessKeyID, cfg.CloudflareSecretKey, cfg.CloudflareR2Endpoint, cfg.CloudflareBucketName, "")
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize cloudflare r2 client, continuing without it")
		return nil
	}
	return cloudflareClient
}

func buildPubSubClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) *client.PubSubClient {
	if cfg.PubSubProjectID == "" || cfg.PubSubTopic == "" {
		return nil
	}
	pubsubClient, err := client.NewPubSubClient(ctx, cfg.PubSubProjectID, cfg.PubSubTopic)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize pubsub client, continuing without it")
		return nil
	}
	return pubsubClient
}

func buildProgressService(cfg *config.Config, log zerolog.Logger) *service.BatchService {
	if cfg.RedisURL == "" {
		return nil
	}
	redisClient, err := client.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize redis client, continuing without progress mirror")
		return nil
	}
	return service.NewBatchService(redisClient, log)
}

func archiveLanguageConfig(targets []string, summaryLanguage, sourceLanguage, bilingualMode, strategy, subtitleFormat string) archive.LanguageConfig {
	return archive.LanguageConfig{
		SubtitleTargetLanguages: targets,
		SummaryLanguage:         summaryLanguage,
		SourceLanguage:          sourceLanguage,
		BilingualMode:           bilingualMode,
		TranslationStrategy:     strategy,
		SubtitleFormat:          subtitleFormat,
	}
}

func printStats(stats pipeline.Stats) {
	fmt.Printf("total=%d succeeded=%d failed=%d skipped=%d\n", stats.Total, stats.Succeeded, stats.Failed, stats.Skipped)
	for errType, count := range stats.ErrorCounts {
		fmt.Printf("  %s: %d\n", errType, count)
	}
}
