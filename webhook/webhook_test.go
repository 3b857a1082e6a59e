package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keyseek/harvest/models"
)

func TestJobSink_UpdateStatus(t *testing.T) {
	var received Event
	var gotSignature string
	var body []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Harvest-Signature")
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("bad event payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewJobSink(srv.URL, "topsecret")
	if err := sink.UpdateStatus(context.Background(), "job-1", models.JobRunning); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	if received.Type != "job.status" || received.JobID != "job-1" {
		t.Errorf("event = %+v", received)
	}

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSignature != want {
		t.Errorf("signature = %q, want %q", gotSignature, want)
	}
}

func TestJobSink_UpdateProgress(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewJobSink(srv.URL, "")
	if err := sink.UpdateProgress(context.Background(), "job-2", 3, 10, 1); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if received.Type != "job.progress" {
		t.Errorf("type = %q", received.Type)
	}
	data, _ := received.Data.(map[string]interface{})
	if data["processed"] != float64(3) || data["total"] != float64(10) || data["failed"] != float64(1) {
		t.Errorf("progress data = %v", data)
	}
}

func TestJobSink_NoSignatureWithoutSecret(t *testing.T) {
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Harvest-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewJobSink(srv.URL, "")
	if err := sink.UpdateStatus(context.Background(), "job-3", models.JobCompleted); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if gotSignature != "" {
		t.Errorf("unexpected signature header %q without a secret", gotSignature)
	}
}

func TestJobSink_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewJobSink(srv.URL, "")
	if err := sink.UpdateStatus(context.Background(), "job-4", models.JobRunning); err == nil {
		t.Error("expected error for 5xx endpoint response")
	}
}

func TestStorageSink_Store(t *testing.T) {
	var received storeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(storeResponse{ArtifactID: "art-42"})
	}))
	defer srv.Close()

	sink := NewStorageSink(srv.URL, "")
	content := &models.ExtractedContent{URL: "https://example.com", Title: "t", Text: "body"}

	id, err := sink.Store(context.Background(), "job-5", "user-9", content)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if id != "art-42" {
		t.Errorf("artifact id = %q", id)
	}
	if received.JobID != "job-5" || received.UserID != "user-9" {
		t.Errorf("request = %+v", received)
	}
	if received.Content == nil || received.Content.URL != "https://example.com" {
		t.Errorf("content not delivered: %+v", received.Content)
	}
}

func TestStorageSink_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewStorageSink(srv.URL, "")
	_, err := sink.Store(context.Background(), "job-6", "", &models.ExtractedContent{})

	var he *models.HarvestError
	if !errors.As(err, &he) || he.Code != models.ErrCodeStore {
		t.Errorf("expected %s, got %v", models.ErrCodeStore, err)
	}
}
