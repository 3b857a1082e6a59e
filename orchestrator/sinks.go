package orchestrator

import (
	"context"
	"log/slog"

	"github.com/keyseek/harvest/models"
)

// JobSink receives job lifecycle updates. Implementations live outside
// this module (job tracking is an external collaborator).
type JobSink interface {
	UpdateStatus(ctx context.Context, jobID string, status models.JobStatus) error
	UpdateProgress(ctx context.Context, jobID string, processed, total, failed int) error
}

// StorageSink persists validated content and returns an artifact id.
type StorageSink interface {
	Store(ctx context.Context, jobID, userID string, content *models.ExtractedContent) (string, error)
}

// KeywordExpander is the optional best-effort expansion sink. On any
// error the orchestrator proceeds with the original keyword list.
type KeywordExpander interface {
	Expand(ctx context.Context, keywords []string, maxExpansions int) ([]string, error)
}

// LogJobSink is the default job sink when no webhook endpoint is
// configured: updates go to the structured log only.
type LogJobSink struct{}

func (LogJobSink) UpdateStatus(_ context.Context, jobID string, status models.JobStatus) error {
	slog.Info("job status", "job_id", jobID, "status", status)
	return nil
}

func (LogJobSink) UpdateProgress(_ context.Context, jobID string, processed, total, failed int) error {
	slog.Info("job progress",
		"job_id", jobID, "processed", processed, "total", total, "failed", failed)
	return nil
}

// LogStorageSink is the default storage sink when no storage endpoint is
// configured: content is logged and its hash doubles as the artifact id.
type LogStorageSink struct{}

func (LogStorageSink) Store(_ context.Context, jobID, _ string, content *models.ExtractedContent) (string, error) {
	slog.Info("content stored",
		"job_id", jobID, "url", content.URL,
		"words", content.WordCount, "hash", content.ContentHash)
	return content.ContentHash, nil
}
