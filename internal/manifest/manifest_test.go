package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoManifestStageTransitions(t *testing.T) {
	v := NewVideoManifest("abc123", "https://youtu.be/abc123", "Title")
	require.Equal(t, StagePending, v.Stage)
	require.Empty(t, v.StartedAt)

	v.UpdateStage(StageDetecting)
	assert.Equal(t, StageDetecting, v.Stage)
	assert.NotEmpty(t, v.StartedAt)
	started := v.StartedAt

	v.UpdateStage(StageDownloading)
	assert.Equal(t, started, v.StartedAt, "started_at must not change on later transitions")
}

func TestVideoManifestIsResumable(t *testing.T) {
	cases := []struct {
		stage     VideoStage
		errorType string
		want      bool
	}{
		{StagePending, "", true},
		{StageTranslating, "", true},
		{StageDone, "", false},
		{StageSkipped, "", false},
		{StageFailed, "NETWORK", true},
		{StageFailed, "AUTH", false},
		{StageFailed, "CONTENT", false},
		{StageFailed, "INVALID_INPUT", false},
	}
	for _, c := range cases {
		v := NewVideoManifest("id", "url", "")
		v.Stage = c.stage
		v.ErrorType = c.errorType
		assert.Equal(t, c.want, v.IsResumable(), "stage=%s errorType=%s", c.stage, c.errorType)
	}
}

func TestVideoManifestAddCompletedChunkIdempotent(t *testing.T) {
	v := NewVideoManifest("id", "url", "")
	v.AddCompletedChunk(2)
	v.AddCompletedChunk(0)
	v.AddCompletedChunk(2)
	assert.Equal(t, []int{2, 0}, v.CompletedChunks)
}

func TestBatchManifestAddVideoIsIdempotent(t *testing.T) {
	b := NewBatchManifest("20260731_120000", "https://www.youtube.com/@channel")
	v1 := b.AddVideo("id1", "url1", "t1")
	v2 := b.AddVideo("id1", "url-changed", "t2")
	assert.Same(t, v1, v2)
	assert.Equal(t, 1, b.TotalVideos)
}

func TestBatchManifestStatistics(t *testing.T) {
	b := NewBatchManifest("batch", "source")
	b.AddVideo("a", "u1", "")
	v2 := b.AddVideo("b", "u2", "")
	v2.UpdateStage(StageDone)

	stats := b.Statistics()
	assert.Equal(t, 1, stats[StagePending])
	assert.Equal(t, 1, stats[StageDone])
}

func TestBatchManifestResumableVideos(t *testing.T) {
	b := NewBatchManifest("batch", "source")
	b.AddVideo("a", "u1", "")
	done := b.AddVideo("b", "u2", "")
	done.UpdateStage(StageDone)

	resumable := b.ResumableVideos()
	require.Len(t, resumable, 1)
	assert.Equal(t, "a", resumable[0].VideoID)
}
