package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ytsubs/core/internal/adapter"
	apperrors "github.com/ytsubs/core/internal/errors"
)

// VideoWriter implements adapter.Writer (§6.4): atomically persists a
// video's artifacts under <output_dir>/videos/<video_id>/, optionally
// mirroring each file to GCS and/or Cloudflare R2, and publishing one
// Pub/Sub completion event per video when configured. Every backend
// beyond local disk is best-effort: a mirror failure is logged but never
// fails the write, since local disk is the durable source of truth.
type VideoWriter struct {
	videosDir  string
	storage    *StorageClient
	cloudflare *CloudflareClient
	pubsub     *PubSubClient
	batchID    string
	log        zerolog.Logger
}

// NewVideoWriter returns a Writer rooted at videosDir. storage, cloudflare
// and pubsub may each be nil, in which case that backend is skipped.
func NewVideoWriter(videosDir string, storage *StorageClient, cloudflare *CloudflareClient, pubsub *PubSubClient, batchID string, log zerolog.Logger) *VideoWriter {
	return &VideoWriter{
		videosDir:  videosDir,
		storage:    storage,
		cloudflare: cloudflare,
		pubsub:     pubsub,
		batchID:    batchID,
		log:        log,
	}
}

// WriteVideoArtifacts implements adapter.Writer.
func (w *VideoWriter) WriteVideoArtifacts(ctx context.Context, videoID string, artifacts adapter.WriterArtifacts) (map[string]string, error) {
	dir := filepath.Join(w.videosDir, videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.FileIOErr("create video output dir", err)
	}

	outputFiles := make(map[string]string, len(artifacts))
	for name, data := range artifacts {
		path := filepath.Join(dir, name)
		if err := atomicWriteFile(path, data); err != nil {
			return nil, err
		}
		outputFiles[name] = path

		objectName := fmt.Sprintf("videos/%s/%s", videoID, name)
		if w.storage != nil {
			if _, err := w.storage.Upload(ctx, objectName, data); err != nil {
				w.log.Warn().Err(err).Str("video_id", videoID).Str("file", name).Msg("failed to mirror artifact to gcs")
			}
		}
		if w.cloudflare != nil {
			if _, err := w.cloudflare.UploadR2Object(ctx, objectName, data, contentTypeFor(name)); err != nil {
				w.log.Warn().Err(err).Str("video_id", videoID).Str("file", name).Msg("failed to mirror artifact to r2")
			}
		}
	}

	if w.pubsub != nil {
		event := map[string]string{"video_id": videoID, "batch_id": w.batchID, "stage": "output"}
		if err := w.pubsub.Publish(ctx, event); err != nil {
			w.log.Warn().Err(err).Str("video_id", videoID).Msg("failed to publish completion event")
		}
	}

	return outputFiles, nil
}

// contentTypeFor picks a MIME type for an output artifact by extension, for
// backends that want it (R2's PutObject).
func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".srt":
		return "application/x-subrip"
	case ".md":
		return "text/markdown"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// atomicWriteFile writes data to a unique tmp file alongside path then
// renames it into place (§6.4: "atomically (tmp+rename)").
func atomicWriteFile(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.New().String()[:8])
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.FileIOErr("write tmp artifact "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.FileIOErr("rename artifact into place", err)
	}
	return nil
}
