// Package profile resolves which AI provider/model/timeout/retry settings
// a given pipeline task (translation, summarization) should use, loaded
// from a JSON profile file with a built-in fallback when the file is
// absent or a task has no mapping (spec §6.3).
package profile

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"
)

// Config is one AI profile's resolved settings — provider/model selection
// plus the call-shaping knobs the LLM adapter needs.
type Config struct {
	Provider       string            `json:"provider"`
	Model          string            `json:"model"`
	BaseURL        string            `json:"base_url,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	MaxRetries     int               `json:"max_retries"`
	MaxConcurrency int               `json:"max_concurrency"`
	APIKeys        map[string]string `json:"api_keys,omitempty"`
}

type namedProfile struct {
	Config
	Enabled bool `json:"enabled"`
}

type profileFile struct {
	Profiles    map[string]namedProfile `json:"profiles"`
	TaskMapping map[string]string       `json:"task_mapping"`
}

// Task identifies which pipeline operation needs an AI profile.
type Task string

const (
	TaskTranslate Task = "subtitle_translate"
	TaskSummarize Task = "subtitle_summarize"
)

// Resolver looks up the Config to use for a given Task, loaded once from
// disk (or a built-in default set if the file is missing/invalid).
type Resolver struct {
	profiles    map[string]namedProfile
	taskMapping map[string]string
	log         zerolog.Logger
}

// Load reads path (typically <user_data>/ai_profiles.json). A missing or
// unparseable file is not an error: the resolver falls back to
// DefaultConfig per task.
func Load(path string, log zerolog.Logger) (*Resolver, error) {
	r := &Resolver{log: log}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debug().Str("path", path).Msg("ai profile file not found, using defaults")
		return r, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to read ai profile file, using defaults")
		return r, nil
	}

	var pf profileFile
	if err := json.Unmarshal(data, &pf); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ai profile file malformed, using defaults")
		return r, nil
	}

	r.profiles = pf.Profiles
	r.taskMapping = pf.TaskMapping
	log.Info().Int("profiles", len(pf.Profiles)).Int("task_mappings", len(pf.TaskMapping)).Msg("loaded ai profiles")
	return r, nil
}

// ForTask resolves the Config to use for task: the profile named by the
// task_mapping entry, if present and enabled, else the built-in default
// for that task.
func (r *Resolver) ForTask(task Task) Config {
	if name, ok := r.taskMapping[string(task)]; ok {
		if p, ok := r.profiles[name]; ok && p.Enabled {
			return p.Config
		}
	}
	return DefaultConfig(task)
}

// DefaultConfig is the built-in fallback per task, matching the defaults
// ai_profiles.json would otherwise declare.
func DefaultConfig(task Task) Config {
	switch task {
	case TaskTranslate:
		return Config{
			Provider: "openai", Model: "gpt-4o-mini",
			TimeoutSeconds: 30, MaxRetries: 2, MaxConcurrency: 5,
			APIKeys: map[string]string{"openai": "env:YTSUBS_API_KEY"},
		}
	case TaskSummarize:
		return Config{
			Provider: "openai", Model: "gpt-4o-mini",
			TimeoutSeconds: 60, MaxRetries: 2, MaxConcurrency: 3,
			APIKeys: map[string]string{"openai": "env:YTSUBS_API_KEY"},
		}
	default:
		return Config{Provider: "openai", Model: "gpt-4o-mini", TimeoutSeconds: 30, MaxRetries: 2, MaxConcurrency: 1}
	}
}
