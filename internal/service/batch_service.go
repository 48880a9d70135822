// Package service mirrors pipeline progress into Redis for a live
// dashboard. It is purely additive: the manifest store in internal/manifest
// is the durable source of truth, and a nil/unreachable Redis client just
// means the mirror is unavailable, not an error (spec.md's Non-goals
// exclude a web dashboard, but the ambient progress-mirror mechanism the
// teacher already built is worth carrying for any future UI).
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytsubs/core/internal/client"
)

const batchTTL = 24 * time.Hour

// stageNames is the fixed DETECT→OUTPUT pipeline, in display order.
var stageNames = []string{"detect", "download", "translate", "summarize", "output"}

// StageStatus holds the mirrored status of one pipeline stage for one video.
type StageStatus struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // pending, processing, completed, failed, skipped
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

// VideoProgress is the combined status of one video's run through every
// pipeline stage.
type VideoProgress struct {
	BatchID       string        `json:"batch_id"`
	VideoID       string        `json:"video_id"`
	Status        string        `json:"status"` // processing, completed, failed, skipped
	TotalStages   int           `json:"total_stages"`
	CompletedStages int         `json:"completed_stages"`
	Stages        []StageStatus `json:"stages"`
	CreatedAt     string        `json:"created_at"`
}

// BatchService mirrors per-video, per-stage progress into Redis hashes
// (`batch:<id>:<video_id>`, `batch:<id>:<video_id>:stages`).
type BatchService struct {
	redis *client.RedisClient
	log   zerolog.Logger
}

// NewBatchService creates a new BatchService. redis may be nil, in which
// case every method is a silent no-op.
func NewBatchService(redis *client.RedisClient, log zerolog.Logger) *BatchService {
	return &BatchService{redis: redis, log: log}
}

func batchKey(batchID, videoID string) string  { return fmt.Sprintf("batch:%s:%s", batchID, videoID) }
func stagesKey(batchID, videoID string) string { return fmt.Sprintf("batch:%s:%s:stages", batchID, videoID) }

// StartVideo registers a video as entering the pipeline, with every stage
// pending except detect, which starts immediately.
func (s *BatchService) StartVideo(ctx context.Context, batchID, videoID, url string) error {
	if s.redis == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.redis.HSet(ctx, batchKey(batchID, videoID),
		"video_id", videoID,
		"url", url,
		"status", "processing",
		"created_at", now,
		"total_stages", strconv.Itoa(len(stageNames)),
		"completed_stages", "0",
	); err != nil {
		return fmt.Errorf("mirror start video: %w", err)
	}

	key := stagesKey(batchID, videoID)
	for _, name := range stageNames {
		st := StageStatus{Name: name, Status: "pending"}
		if name == stageNames[0] {
			st.Status = "processing"
			st.StartedAt = now
		}
		raw, _ := json.Marshal(st)
		if err := s.redis.HSet(ctx, key, name, string(raw)); err != nil {
			return fmt.Errorf("mirror stage %s: %w", name, err)
		}
	}

	_ = s.redis.SetExpiry(ctx, batchKey(batchID, videoID), batchTTL)
	_ = s.redis.SetExpiry(ctx, key, batchTTL)

	s.log.Debug().Str("batch_id", batchID).Str("video_id", videoID).Msg("progress mirror: video started")
	return nil
}

// UpdateStage mirrors one stage transition. status is one of "processing",
// "completed", "failed", "skipped".
func (s *BatchService) UpdateStage(ctx context.Context, batchID, videoID, stage, status, errMsg string) error {
	if s.redis == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	st := StageStatus{Name: stage, Status: status}
	switch status {
	case "processing":
		st.StartedAt = now
	case "completed", "failed", "skipped":
		st.CompletedAt = now
		st.Error = errMsg
	}

	raw, _ := json.Marshal(st)
	if err := s.redis.HSet(ctx, stagesKey(batchID, videoID), stage, string(raw)); err != nil {
		return fmt.Errorf("mirror update stage %s: %w", stage, err)
	}

	return s.recalculate(ctx, batchID, videoID)
}

// recalculate derives the video's overall status from its mirrored stages.
func (s *BatchService) recalculate(ctx context.Context, batchID, videoID string) error {
	fields, err := s.redis.HGetAll(ctx, stagesKey(batchID, videoID))
	if err != nil {
		return err
	}

	completed := 0
	failed := false
	skipped := false
	for _, raw := range fields {
		var st StageStatus
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			continue
		}
		switch st.Status {
		case "completed":
			completed++
		case "failed":
			failed = true
		case "skipped":
			skipped = true
		}
	}

	status := "processing"
	switch {
	case failed:
		status = "failed"
	case skipped:
		status = "skipped"
	case completed == len(stageNames):
		status = "completed"
	}

	return s.redis.HSet(ctx, batchKey(batchID, videoID), "status", status, "completed_stages", strconv.Itoa(completed))
}

// GetVideoProgress returns the full mirrored progress for one video, or nil
// if nothing has been mirrored for it (no Redis configured, or not found).
func (s *BatchService) GetVideoProgress(ctx context.Context, batchID, videoID string) (*VideoProgress, error) {
	if s.redis == nil {
		return nil, nil
	}

	fields, err := s.redis.HGetAll(ctx, batchKey(batchID, videoID))
	if err != nil {
		return nil, fmt.Errorf("get video progress: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	total, _ := strconv.Atoi(fields["total_stages"])
	done, _ := strconv.Atoi(fields["completed_stages"])

	progress := &VideoProgress{
		BatchID:         batchID,
		VideoID:         videoID,
		Status:          fields["status"],
		TotalStages:     total,
		CompletedStages: done,
		CreatedAt:       fields["created_at"],
	}

	stageFields, err := s.redis.HGetAll(ctx, stagesKey(batchID, videoID))
	if err != nil {
		return nil, fmt.Errorf("get video stages: %w", err)
	}
	for _, name := range stageNames {
		raw, ok := stageFields[name]
		if !ok {
			progress.Stages = append(progress.Stages, StageStatus{Name: name, Status: "unknown"})
			continue
		}
		var st StageStatus
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			progress.Stages = append(progress.Stages, StageStatus{Name: name, Status: "unknown"})
			continue
		}
		progress.Stages = append(progress.Stages, st)
	}

	return progress, nil
}
