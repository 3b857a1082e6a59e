package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// EngineKey identifies a search engine adapter.
type EngineKey string

// Supported search engines.
const (
	EngineGoogle     EngineKey = "google"
	EngineBing       EngineKey = "bing"
	EngineDuckDuckGo EngineKey = "duckduckgo"
	EngineYahoo      EngineKey = "yahoo"
	EngineBrave      EngineKey = "brave"
)

// SearchResult is a single entry scraped from an engine's result page.
// Immutable once created.
type SearchResult struct {
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Snippet  string    `json:"snippet"`
	Position int       `json:"position"`
	Source   EngineKey `json:"source"`
}

// ContentMetadata holds the independently-optional page metadata fields.
type ContentMetadata struct {
	Domain          string   `json:"domain"`
	Language        string   `json:"language"`
	Author          string   `json:"author,omitempty"`
	PublishedDate   string   `json:"published_date,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	CanonicalURL    string   `json:"canonical_url,omitempty"`
	RobotsDirective string   `json:"robots_directive,omitempty"`
}

// Image is an image reference extracted from a page, with its URL resolved
// to absolute form.
type Image struct {
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
	Title  string `json:"title,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Link is an outgoing hyperlink extracted from a page, with its URL resolved
// to absolute form.
type Link struct {
	URL   string   `json:"url"`
	Text  string   `json:"text,omitempty"`
	Title string   `json:"title,omitempty"`
	Rel   []string `json:"rel,omitempty"`
}

// ExtractedContent is the structured output of the content extractor.
// Immutable once created. ContentHash is a pure function of Text, so
// downstream consumers can use it for dedup and versioning.
type ExtractedContent struct {
	URL         string          `json:"url"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Text        string          `json:"text"`
	Markdown    string          `json:"markdown,omitempty"`
	ContentHash string          `json:"content_hash"`
	WordCount   int             `json:"word_count"`
	Metadata    ContentMetadata `json:"metadata"`
	Images      []Image         `json:"images,omitempty"`
	Links       []Link          `json:"links,omitempty"`
	ExtractedAt time.Time       `json:"extracted_at"`
}

// IsEmpty reports whether the content is the sentinel empty value produced
// by a failed extraction. Sentinel content always fails validation.
func (c *ExtractedContent) IsEmpty() bool {
	return c == nil || (c.URL == "" && c.Title == "" && c.Text == "")
}

// HashText computes the canonical SHA-256 hex digest of extracted text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CountWords counts whitespace-delimited tokens in extracted text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
