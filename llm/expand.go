// Package llm implements the optional keyword-expansion sink against an
// OpenAI-compatible chat completion API. It uses net/http directly — no
// third-party SDK needed. Expansion is best-effort; callers fall back to
// the original keyword list on any error.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/keyseek/harvest/config"
	"github.com/keyseek/harvest/models"
)

// Client is a lightweight chat-completion client for keyword expansion.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient creates a new expansion client with the given http.Client.
// Pass nil to use a default client.
func NewClient(httpClient *http.Client, cfg config.SinkConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.LLMBaseURL, "/"),
		apiKey:     cfg.LLMAPIKey,
		model:      cfg.LLMModel,
	}
}

// chatRequest is the chat completion request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// expansion is the JSON object the model is asked to produce.
type expansion struct {
	Keywords []string `json:"keywords"`
}

const systemPrompt = `You expand search keywords. Given a JSON array of seed keywords, reply with a JSON object {"keywords": [...]} containing related search queries a researcher would also try. Keep each query under six words. Do not repeat the seeds.`

// Expand asks the model for related search queries. The returned list
// contains the seeds followed by up to maxExpansions new queries.
func (c *Client) Expand(ctx context.Context, keywords []string, maxExpansions int) ([]string, error) {
	seeds, err := json.Marshal(keywords)
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodeExpansion, "marshal seeds", err)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(seeds)},
		},
		Temperature:    0.3,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodeExpansion, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodeExpansion, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodeExpansion, "expansion request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodeExpansion, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, models.NewHarvestError(models.ErrCodeExpansion,
			fmt.Sprintf("provider returned status %d", resp.StatusCode), nil)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return nil, models.NewHarvestError(models.ErrCodeExpansion, "decode response", err)
	}
	if len(cr.Choices) == 0 {
		return nil, models.NewHarvestError(models.ErrCodeExpansion, "empty completion", nil)
	}

	var exp expansion
	if err := json.Unmarshal([]byte(cr.Choices[0].Message.Content), &exp); err != nil {
		return nil, models.NewHarvestError(models.ErrCodeExpansion, "malformed expansion JSON", err)
	}

	out := make([]string, 0, len(keywords)+maxExpansions)
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		out = append(out, k)
		seen[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}
	added := 0
	for _, k := range exp.Keywords {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if maxExpansions > 0 && added >= maxExpansions {
			break
		}
		seen[key] = struct{}{}
		out = append(out, k)
		added++
	}
	return out, nil
}
