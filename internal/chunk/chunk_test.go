package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSRT(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		start := i * 2
		fmt.Fprintf(&b, "%d\n00:00:%02d,000 --> 00:00:%02d,500\nCue number %d\n\n", i+1, start, start+1, i)
	}
	return b.String()
}

func TestSplitByCueCount(t *testing.T) {
	srt := buildSRT(100)
	chunks, err := Split(srt, 40, 1_000_000)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Entries, 40)
	assert.Len(t, chunks[1].Entries, 40)
	assert.Len(t, chunks[2].Entries, 20)
}

func TestSplitByCharCount(t *testing.T) {
	srt := buildSRT(10)
	chunks, err := Split(srt, 1000, 40)
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
}

func TestSplitIsDeterministic(t *testing.T) {
	srt := buildSRT(77)
	a, err := Split(srt, DefaultMaxCues, DefaultMaxChars)
	require.NoError(t, err)
	b, err := Split(srt, DefaultMaxCues, DefaultMaxChars)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].StartSeconds, b[i].StartSeconds)
		assert.Equal(t, a[i].EndSeconds, b[i].EndSeconds)
		assert.Equal(t, len(a[i].Entries), len(b[i].Entries))
	}
}

func TestSplitCountsCodePointsNotBytes(t *testing.T) {
	// Multi-byte runes (e.g. CJK) must count as 1 char each, not as their
	// UTF-8 byte length, or translation chunks would under-fill for
	// non-Latin scripts.
	srt := "1\n00:00:01,000 --> 00:00:02,000\n你好世界\n\n" +
		"2\n00:00:03,000 --> 00:00:04,000\n你好世界\n\n"
	chunks, err := Split(srt, 1000, 8) // 4 runes per cue, 8 char budget
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0].Entries, 2)
}

func TestTrackerMarkCompletedIdempotentAndPersist(t *testing.T) {
	srt := buildSRT(100)
	dir := t.TempDir()

	tr, err := NewTracker(dir, "vid1", "zh-CN", srt, 40, 0)
	require.NoError(t, err)
	require.Equal(t, 3, tr.TotalChunks())

	tr.MarkChunkCompleted(0, "translated-0")
	tr.MarkChunkCompleted(0, "translated-0-again")
	assert.Equal(t, []int{1, 2}, tr.PendingChunks())
	assert.Equal(t, Status{TotalChunks: 3, Completed: 1}, tr.GetStatus())

	require.NoError(t, tr.Persist())

	restored, err := NewTracker(dir, "vid1", "zh-CN", srt, 40, 0)
	require.NoError(t, err)
	require.NoError(t, restored.Restore())
	assert.Equal(t, []int{1, 2}, restored.PendingChunks())
}

func TestTrackerConcatenatedInOrder(t *testing.T) {
	srt := buildSRT(3)
	dir := t.TempDir()
	tr, err := NewTracker(dir, "vid1", "es", srt, 1, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, 3, tr.TotalChunks())

	tr.MarkChunkCompleted(2, "c")
	tr.MarkChunkCompleted(0, "a")
	tr.MarkChunkCompleted(1, "b")
	require.True(t, tr.AllCompleted())
	assert.Equal(t, "abc", tr.Concatenated())
}
