// Package config loads the pipeline's runtime configuration from the
// environment (via .env + envconfig, matching the teacher's ambient
// config-loading idiom) and resolves the OS-specific user-data directory
// the spec's persisted state layout is rooted at (§6.6).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration for a batch run.
type Config struct {
	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Output / state
	OutputDir   string `envconfig:"OUTPUT_DIR" default:"out"`
	UserDataDir string `envconfig:"USER_DATA_DIR"` // empty => OS default, see UserDataDirPath()

	// Stage concurrency (§4.8 default worker counts per stage)
	DetectWorkers    int `envconfig:"DETECT_WORKERS" default:"2"`
	DownloadWorkers  int `envconfig:"DOWNLOAD_WORKERS" default:"2"`
	TranslateWorkers int `envconfig:"TRANSLATE_WORKERS" default:"1"`
	SummarizeWorkers int `envconfig:"SUMMARIZE_WORKERS" default:"1"`
	OutputWorkers    int `envconfig:"OUTPUT_WORKERS" default:"2"`

	// Retry / backoff knobs
	MaxShareViolationAttempts int           `envconfig:"MAX_SHARE_VIOLATION_ATTEMPTS" default:"5"`
	MaxStageTimeout           time.Duration `envconfig:"MAX_STAGE_TIMEOUT" default:"5m"`

	// Resource management (§4.9)
	KeepTempOnError bool `envconfig:"KEEP_TEMP_ON_ERROR" default:"true"`

	// Proxy pool (§4.5)
	Proxies                 []string      `envconfig:"PROXIES"`
	ProxyFailureThreshold    int           `envconfig:"PROXY_FAILURE_THRESHOLD" default:"3"`
	ProxyCooldown            time.Duration `envconfig:"PROXY_COOLDOWN" default:"10m"`
	AllowDirectWhenProxiesDead bool        `envconfig:"ALLOW_DIRECT_CONNECTION" default:"true"`

	// Cookie passed through to the subtitle catalog adapter
	Cookie string `envconfig:"YOUTUBE_COOKIE"`

	// AI
	AIProfilesPath string `envconfig:"AI_PROFILES_PATH"` // empty => <user_data>/ai_profiles.json
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	GoogleAIAPIKey string `envconfig:"GOOGLE_AI_API_KEY"`

	// Cloud storage (optional output backends, additive to local disk)
	GCSBucket string `envconfig:"GCS_BUCKET"`

	CloudflareAccessKeyID string `envconfig:"CLOUDFLARE_ACCESS_KEY_ID"`
	CloudflareSecretKey   string `envconfig:"CLOUDFLARE_SECRET_ACCESS_KEY"`
	CloudflareR2Endpoint  string `envconfig:"CLOUDFLARE_R2_ENDPOINT"`
	CloudflareBucketName  string `envconfig:"CLOUDFLARE_BUCKET_NAME"`

	// Redis progress mirror (additive, non-authoritative — §ambient stack)
	RedisURL string `envconfig:"REDIS_URL"`

	// Pub/Sub completion events (optional)
	PubSubProjectID string `envconfig:"PUBSUB_PROJECT_ID"`
	PubSubTopic     string `envconfig:"PUBSUB_TOPIC"`
}

// Load reads a .env file if present (ignored if missing) then populates
// Config from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	return &cfg, nil
}

// UserDataDirPath resolves the OS-specific user data directory (§6.6),
// creating it if it does not yet exist. Honors UserDataDir if explicitly
// set, for tests and containerized deployments that want a fixed path.
func (c *Config) UserDataDirPath() (string, error) {
	dir := c.UserDataDir
	if dir == "" {
		dir = defaultUserDataDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create user data dir: %w", err)
	}
	return dir, nil
}

// defaultUserDataDir mirrors the Python original's per-OS convention:
// Windows %APPDATA%, macOS ~/Library/Application Support, else
// ~/.config, all under a "ytsubs" subdirectory.
func defaultUserDataDir() string {
	const appName = "ytsubs"

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", appName)
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// ArchivesDir returns <user_data>/archives (§6.6).
func (c *Config) ArchivesDir() (string, error) {
	dataDir, err := c.UserDataDirPath()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(dataDir, "archives")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archives dir: %w", err)
	}
	return dir, nil
}

// AIProfilesFilePath resolves where ai_profiles.json lives, defaulting to
// <user_data>/ai_profiles.json.
func (c *Config) AIProfilesFilePath() (string, error) {
	if c.AIProfilesPath != "" {
		return c.AIProfilesPath, nil
	}
	dataDir, err := c.UserDataDirPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "ai_profiles.json"), nil
}

// StateDir returns <output_dir>/.state, where batch manifests live (§6.6).
func (c *Config) StateDir() string {
	return filepath.Join(c.OutputDir, ".state")
}

// VideosDir returns <output_dir>/videos, where final per-video artifacts
// land (§6.6).
func (c *Config) VideosDir() string {
	return filepath.Join(c.OutputDir, "videos")
}

// IsDevelopment reports whether LOG_FORMAT requests the human-readable
// console writer rather than structured JSON.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.LogFormat, "console") || strings.EqualFold(c.LogFormat, "text")
}
