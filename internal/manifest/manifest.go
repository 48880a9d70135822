// Package manifest implements the resumable state machine for batch and
// video processing (spec §4.1 Manifest store): VideoStage transitions,
// BatchManifest/VideoManifest data models, and a Store that persists them
// with atomic writes and dirty-flag batched flushing.
package manifest

import "time"

// VideoStage is a video's position in the DETECT→DOWNLOAD→TRANSLATE→
// SUMMARIZE→OUTPUT pipeline.
type VideoStage string

const (
	StagePending     VideoStage = "pending"
	StageDetecting   VideoStage = "detecting"
	StageDownloading VideoStage = "downloading"
	StageTranslating VideoStage = "translating"
	StageSummarizing VideoStage = "summarizing"
	StageOutputting  VideoStage = "outputting"
	StageDone        VideoStage = "done"
	StageFailed      VideoStage = "failed"
	StageSkipped     VideoStage = "skipped"
)

// nonRetryableErrorTypes mirrors internal/errors' non-retryable set; kept
// as plain strings here so this package has no import-cycle dependency on
// internal/errors for what is otherwise a pure data model.
var nonRetryableErrorTypes = map[string]bool{
	"AUTH":          true,
	"CONTENT":       true,
	"INVALID_INPUT": true,
	"PARSE":         true,
}

// VideoManifest is the persisted state of a single video.
type VideoManifest struct {
	VideoID         string            `json:"video_id"`
	URL             string            `json:"url"`
	Title           string            `json:"title,omitempty"`
	Stage           VideoStage        `json:"stage"`
	Error           string            `json:"error,omitempty"`
	ErrorType       string            `json:"error_type,omitempty"`
	Retries         int               `json:"retries"`
	CompletedChunks []int             `json:"completed_chunks,omitempty"`
	OutputFiles     map[string]string `json:"output_files,omitempty"`
	StartedAt       string            `json:"started_at,omitempty"`
	UpdatedAt       string            `json:"updated_at,omitempty"`
}

// NewVideoManifest returns a PENDING manifest for a video.
func NewVideoManifest(videoID, url, title string) *VideoManifest {
	return &VideoManifest{
		VideoID: videoID,
		URL:     url,
		Title:   title,
		Stage:   StagePending,
	}
}

// nowFn is a package-level clock, overridable in tests.
var nowFn = func() string { return time.Now().Format(time.RFC3339Nano) }

// UpdateStage moves the video to a new stage and stamps UpdatedAt (and
// StartedAt, on first transition).
func (v *VideoManifest) UpdateStage(stage VideoStage) {
	v.Stage = stage
	v.UpdatedAt = nowFn()
	if v.StartedAt == "" {
		v.StartedAt = v.UpdatedAt
	}
}

// MarkFailed records a terminal failure.
func (v *VideoManifest) MarkFailed(errMsg, errType string) {
	v.Stage = StageFailed
	v.Error = errMsg
	v.ErrorType = errType
	v.UpdatedAt = nowFn()
}

// MarkSkipped records a non-failure skip (e.g. no subtitles available).
func (v *VideoManifest) MarkSkipped(reason string) {
	v.Stage = StageSkipped
	v.Error = reason
	v.UpdatedAt = nowFn()
}

// AddCompletedChunk idempotently records a completed translation chunk.
func (v *VideoManifest) AddCompletedChunk(index int) {
	for _, c := range v.CompletedChunks {
		if c == index {
			return
		}
	}
	v.CompletedChunks = append(v.CompletedChunks, index)
	v.UpdatedAt = nowFn()
}

// IsResumable reports whether this video should be picked up by a resumed
// batch run: not DONE/SKIPPED, and if FAILED, only when the recorded error
// type is one the pipeline retries.
func (v *VideoManifest) IsResumable() bool {
	switch v.Stage {
	case StageDone, StageSkipped:
		return false
	case StageFailed:
		return !nonRetryableErrorTypes[v.ErrorType]
	default:
		return true
	}
}

// BatchManifest is the persisted state of an entire batch run (a channel,
// playlist, or explicit URL list).
type BatchManifest struct {
	BatchID      string                    `json:"batch_id"`
	Source       string                    `json:"source"`
	TotalVideos  int                       `json:"total_videos"`
	Videos       map[string]*VideoManifest `json:"videos"`
	CreatedAt    string                    `json:"created_at,omitempty"`
	UpdatedAt    string                    `json:"updated_at,omitempty"`
}

// NewBatchManifest creates an empty batch manifest, stamped with the
// current time.
func NewBatchManifest(batchID, source string) *BatchManifest {
	now := nowFn()
	return &BatchManifest{
		BatchID:   batchID,
		Source:    source,
		Videos:    make(map[string]*VideoManifest),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddVideo inserts a new PENDING video if not already present, returning
// its manifest either way.
func (b *BatchManifest) AddVideo(videoID, url, title string) *VideoManifest {
	if v, ok := b.Videos[videoID]; ok {
		return v
	}
	v := NewVideoManifest(videoID, url, title)
	if b.Videos == nil {
		b.Videos = make(map[string]*VideoManifest)
	}
	b.Videos[videoID] = v
	b.TotalVideos = len(b.Videos)
	return v
}

// GetVideo looks up a video by ID.
func (b *BatchManifest) GetVideo(videoID string) (*VideoManifest, bool) {
	v, ok := b.Videos[videoID]
	return v, ok
}

// ResumableVideos returns every video eligible to be resumed.
func (b *BatchManifest) ResumableVideos() []*VideoManifest {
	out := make([]*VideoManifest, 0, len(b.Videos))
	for _, v := range b.Videos {
		if v.IsResumable() {
			out = append(out, v)
		}
	}
	return out
}

// Statistics returns a count of videos per stage.
func (b *BatchManifest) Statistics() map[VideoStage]int {
	stats := map[VideoStage]int{
		StagePending: 0, StageDetecting: 0, StageDownloading: 0,
		StageTranslating: 0, StageSummarizing: 0, StageOutputting: 0,
		StageDone: 0, StageFailed: 0, StageSkipped: 0,
	}
	for _, v := range b.Videos {
		stats[v.Stage]++
	}
	return stats
}

// Touch stamps UpdatedAt to now; callers invoke it after any mutation that
// should be reflected in the persisted timestamp.
func (b *BatchManifest) Touch() {
	b.UpdatedAt = nowFn()
}
