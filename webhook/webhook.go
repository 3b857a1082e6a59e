// Package webhook delivers job lifecycle events and validated content to
// the external tracking and storage collaborators over signed HTTP.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/keyseek/harvest/models"
)

// Event is the payload sent to the job-tracking endpoint.
type Event struct {
	Type      string      `json:"type"` // "job.status" or "job.progress"
	JobID     string      `json:"job_id"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// statusData is the body of a "job.status" event.
type statusData struct {
	Status models.JobStatus `json:"status"`
}

// progressData is the body of a "job.progress" event.
type progressData struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Failed    int `json:"failed"`
}

// JobSink reports job status and progress to a webhook endpoint.
// The request body is signed with HMAC-SHA256 when a secret is set.
// Header: X-Harvest-Signature: sha256=<hex>
type JobSink struct {
	url    string
	secret string
	client *http.Client
}

// NewJobSink creates a JobSink for the given endpoint.
func NewJobSink(url, secret string) *JobSink {
	return &JobSink{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// UpdateStatus delivers a job.status event.
func (s *JobSink) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	return s.deliver(ctx, &Event{
		Type:      "job.status",
		JobID:     jobID,
		Timestamp: time.Now().Unix(),
		Data:      statusData{Status: status},
	})
}

// UpdateProgress delivers a job.progress event.
func (s *JobSink) UpdateProgress(ctx context.Context, jobID string, processed, total, failed int) error {
	return s.deliver(ctx, &Event{
		Type:      "job.progress",
		JobID:     jobID,
		Timestamp: time.Now().Unix(),
		Data:      progressData{Processed: processed, Total: total, Failed: failed},
	})
}

func (s *JobSink) deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Harvest-Webhook/1.0")
	sign(req, s.secret, body)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// storeRequest is the payload sent to the storage endpoint.
type storeRequest struct {
	JobID   string                   `json:"job_id"`
	UserID  string                   `json:"user_id"`
	Content *models.ExtractedContent `json:"content"`
}

// storeResponse carries the artifact id assigned by the collaborator.
type storeResponse struct {
	ArtifactID string `json:"artifact_id"`
}

// StorageSink persists validated content via the external storage/indexing
// collaborator and returns the assigned artifact id.
type StorageSink struct {
	url    string
	secret string
	client *http.Client
}

// NewStorageSink creates a StorageSink for the given endpoint.
func NewStorageSink(url, secret string) *StorageSink {
	return &StorageSink{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Store posts the content and returns the collaborator's artifact id.
func (s *StorageSink) Store(ctx context.Context, jobID, userID string, content *models.ExtractedContent) (string, error) {
	body, err := json.Marshal(storeRequest{JobID: jobID, UserID: userID, Content: content})
	if err != nil {
		return "", models.NewHarvestError(models.ErrCodeStore, "marshal content", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", models.NewHarvestError(models.ErrCodeStore, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Harvest-Webhook/1.0")
	sign(req, s.secret, body)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", models.NewHarvestError(models.ErrCodeStore, "store request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", models.NewHarvestError(models.ErrCodeStore,
			fmt.Sprintf("storage endpoint returned status %d", resp.StatusCode), nil)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", models.NewHarvestError(models.ErrCodeStore, "read storage response", err)
	}
	var sr storeResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return "", models.NewHarvestError(models.ErrCodeStore, "decode storage response", err)
	}
	return sr.ArtifactID, nil
}

// sign attaches the HMAC-SHA256 signature header when a secret is set.
func sign(req *http.Request, secret string, body []byte) {
	if secret == "" {
		return
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	req.Header.Set("X-Harvest-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
}
