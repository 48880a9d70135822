package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := New(filepath.Join(t.TempDir(), "UCxxxx.txt"))
	require.NoError(t, err)
	return a
}

func TestConfigHashStableAndOrderIndependent(t *testing.T) {
	a := LanguageConfig{
		SubtitleTargetLanguages: []string{"zh-CN", "ja"},
		SummaryLanguage:         "en",
		TranslationStrategy:     "AI_ONLY",
		SubtitleFormat:          "srt",
	}
	b := LanguageConfig{
		SubtitleTargetLanguages: []string{"ja", "zh-CN"},
		SummaryLanguage:         "en",
		TranslationStrategy:     "AI_ONLY",
		SubtitleFormat:          "srt",
	}
	assert.Equal(t, ConfigHash(a), ConfigHash(b))
	assert.Len(t, ConfigHash(a), 16)
}

func TestConfigHashChangesWithRelevantField(t *testing.T) {
	a := LanguageConfig{SummaryLanguage: "en", SubtitleFormat: "srt"}
	b := LanguageConfig{SummaryLanguage: "zh-CN", SubtitleFormat: "srt"}
	assert.NotEqual(t, ConfigHash(a), ConfigHash(b))
}

func TestMarkAsProcessedAndIsProcessed(t *testing.T) {
	a := newTestArchive(t)

	ok, err := a.IsProcessed("vid1", "")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.MarkAsProcessed("vid1", ""))

	ok, err = a.IsProcessed("vid1", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsProcessedWithLangHashMismatchReprocesses(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.MarkAsProcessed("vid1", "abc1234567890def"))

	ok, err := a.IsProcessed("vid1", "abc1234567890def")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.IsProcessed("vid1", "changed00000000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsProcessedLegacyLineNeverMatchesHash(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.MarkAsProcessed("vid1", ""))

	ok, err := a.IsProcessed("vid1", "somehash0000000")
	require.NoError(t, err)
	assert.False(t, ok, "legacy entry with no lang_hash must not match a hash-aware lookup")
}

func TestFilterUnprocessed(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.MarkAsProcessed("vid1", ""))

	remaining, err := a.FilterUnprocessed([]string{"vid1", "vid2", "vid3"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"vid2", "vid3"}, remaining)
}

func TestFilterUnprocessedForceIgnoresArchive(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.MarkAsProcessed("vid1", ""))

	remaining, err := a.FilterUnprocessed([]string{"vid1", "vid2"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"vid1", "vid2"}, remaining)
}

func TestClearRemovesFile(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.MarkAsProcessed("vid1", ""))
	require.NoError(t, a.Clear())

	_, err := os.Stat(a.path)
	assert.True(t, os.IsNotExist(err))
}
