package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keyseek/harvest/config"
	"github.com/keyseek/harvest/models"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(baseURL string) *Client {
	return NewClient(nil, config.SinkConfig{
		LLMBaseURL: baseURL,
		LLMAPIKey:  "test-key",
		LLMModel:   "test-model",
	})
}

func TestExpand_SeedsFirstThenExpansions(t *testing.T) {
	srv := completionServer(t, `{"keywords": ["golang testing patterns", "go table driven tests"]}`)
	defer srv.Close()

	out, err := testClient(srv.URL).Expand(context.Background(), []string{"go testing"}, 10)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	want := []string{"go testing", "golang testing patterns", "go table driven tests"}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %q, want %q", i, out[i], want[i])
		}
	}
}

func TestExpand_DedupsAgainstSeeds(t *testing.T) {
	srv := completionServer(t, `{"keywords": ["Go Testing", "go benchmarks", "go benchmarks"]}`)
	defer srv.Close()

	out, err := testClient(srv.URL).Expand(context.Background(), []string{"go testing"}, 10)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("case-insensitive duplicates should be dropped, got %v", out)
	}
}

func TestExpand_CapsExpansions(t *testing.T) {
	srv := completionServer(t, `{"keywords": ["a", "b", "c", "d", "e"]}`)
	defer srv.Close()

	out, err := testClient(srv.URL).Expand(context.Background(), []string{"seed"}, 2)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(out) != 3 {
		t.Errorf("got %d keywords, want seed plus 2 expansions", len(out))
	}
}

func TestExpand_MalformedCompletion(t *testing.T) {
	srv := completionServer(t, `these are not the droids`)
	defer srv.Close()

	_, err := testClient(srv.URL).Expand(context.Background(), []string{"seed"}, 10)
	var he *models.HarvestError
	if !errors.As(err, &he) || he.Code != models.ErrCodeExpansion {
		t.Errorf("expected %s, got %v", models.ErrCodeExpansion, err)
	}
}

func TestExpand_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Expand(context.Background(), []string{"seed"}, 10)
	var he *models.HarvestError
	if !errors.As(err, &he) || he.Code != models.ErrCodeExpansion {
		t.Errorf("expected %s, got %v", models.ErrCodeExpansion, err)
	}
}
