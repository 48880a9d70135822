package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "nope.json"), zerolog.Nop())
	require.NoError(t, err)

	cfg := r.ForTask(TaskTranslate)
	assert.Equal(t, DefaultConfig(TaskTranslate), cfg)
}

func TestLoadResolvesConfiguredProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai_profiles.json")
	doc := `{
		"profiles": {
			"fast_translate": {
				"provider": "openai", "model": "gpt-4o-mini",
				"timeout_seconds": 15, "max_retries": 1, "max_concurrency": 8,
				"enabled": true
			}
		},
		"task_mapping": { "subtitle_translate": "fast_translate" }
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	r, err := Load(path, zerolog.Nop())
	require.NoError(t, err)

	cfg := r.ForTask(TaskTranslate)
	assert.Equal(t, 15, cfg.TimeoutSeconds)
	assert.Equal(t, 8, cfg.MaxConcurrency)
}

func TestLoadDisabledProfileFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai_profiles.json")
	doc := `{
		"profiles": { "off": { "provider": "openai", "model": "x", "enabled": false } },
		"task_mapping": { "subtitle_summarize": "off" }
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	r, err := Load(path, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(TaskSummarize), r.ForTask(TaskSummarize))
}

func TestLoadMalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai_profiles.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	r, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(TaskTranslate), r.ForTask(TaskTranslate))
}
