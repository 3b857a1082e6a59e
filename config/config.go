package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/keyseek/harvest/models"
)

// Config holds all application configuration. It is constructed once at
// startup and passed by reference into the pool, rate limiter, adapters,
// extractor, and orchestrator; nothing mutates it afterwards.
type Config struct {
	Browser   BrowserConfig
	Search    SearchConfig
	Extract   ExtractConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Sinks     SinkConfig
	Log       LogConfig
}

// BrowserConfig controls the browser instance pool.
type BrowserConfig struct {
	// Headless controls whether browsers run headless.
	Headless bool // default: true

	// MaxBrowsers is the pool capacity (max concurrent instances).
	MaxBrowsers int // default: 3

	// AcquireTimeout bounds how long an Acquire call may queue under
	// sustained pool exhaustion. Zero means no pool-imposed bound.
	AcquireTimeout time.Duration // default: 60s

	// PageTimeout is the per-page navigation timeout.
	PageTimeout time.Duration // default: 30s

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// UserAgents is the pool of user agents drawn from at random per page.
	UserAgents []string

	// BlockedResourceTypes lists resource types blocked per page.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// SearchConfig controls the engine adapters.
type SearchConfig struct {
	// Engines lists the engines queried for each keyword.
	Engines []models.EngineKey // default: [google bing duckduckgo]

	// MaxResultsPerKeyword caps results returned per engine per keyword.
	MaxResultsPerKeyword int // default: 10

	// SearchDelay is the minimum spacing between consecutive requests to
	// the same engine.
	SearchDelay time.Duration // default: 2s

	// BlockedDomains are hosts filtered out of every engine's results,
	// on top of each engine's own domains.
	BlockedDomains []string
}

// ExtractConfig controls content extraction.
type ExtractConfig struct {
	// ExtractImages toggles image collection.
	ExtractImages bool // default: true

	// ExtractLinks toggles link collection.
	ExtractLinks bool // default: true

	// MinContentLength is the minimum extracted text length (in bytes)
	// for content to pass validation.
	MinContentLength int // default: 50

	// MaxConcurrent bounds parallel extraction fetches per job.
	MaxConcurrent int // default: MaxBrowsers
}

// RateLimitConfig is reserved for future per-host extraction limits; the
// per-engine search spacing lives in SearchConfig.SearchDelay.
type RateLimitConfig struct {
	// Burst is the token bucket burst per engine key.
	Burst int // default: 1
}

// CacheConfig controls the extracted-content cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached pages.
	MaxEntries int // default: 1000

	// TTL is how long a cached page stays valid.
	TTL time.Duration // default: 1h
}

// SinkConfig wires the external collaborators.
type SinkConfig struct {
	// JobWebhookURL receives job status/progress events. Empty means
	// events are only logged.
	JobWebhookURL string

	// StorageURL receives validated content and returns artifact ids.
	StorageURL string

	// WebhookSecret signs webhook payloads (HMAC-SHA256) when non-empty.
	WebhookSecret string

	// LLM settings for the optional keyword-expansion sink.
	LLMBaseURL string // default: "https://api.openai.com/v1"
	LLMAPIKey  string
	LLMModel   string // default: "gpt-4o-mini"

	// MaxExpansions caps keyword expansion output.
	MaxExpansions int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// defaultUserAgents is used when HARVEST_USER_AGENTS is unset.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

// defaultBlockedDomains filters out search engines and social platforms
// whose pages are never useful acquisition targets.
var defaultBlockedDomains = []string{
	"facebook.com", "twitter.com", "x.com", "instagram.com",
	"linkedin.com", "youtube.com", "tiktok.com", "pinterest.com",
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       envBoolOr("HARVEST_HEADLESS", true),
			MaxBrowsers:    envIntOr("HARVEST_MAX_BROWSERS", 3),
			AcquireTimeout: envDurationOr("HARVEST_ACQUIRE_TIMEOUT", 60*time.Second),
			PageTimeout:    envDurationOr("HARVEST_PAGE_TIMEOUT", 30*time.Second),
			NoSandbox:      envBoolOr("HARVEST_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("HARVEST_BROWSER_BIN"),
			UserAgents:     envSliceOr("HARVEST_USER_AGENTS", defaultUserAgents),
			BlockedResourceTypes: envSliceOr("HARVEST_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Search: SearchConfig{
			Engines:              envEnginesOr("HARVEST_ENGINES", []models.EngineKey{models.EngineGoogle, models.EngineBing, models.EngineDuckDuckGo}),
			MaxResultsPerKeyword: envIntOr("HARVEST_MAX_RESULTS", 10),
			SearchDelay:          envDurationOr("HARVEST_SEARCH_DELAY", 2*time.Second),
			BlockedDomains:       envSliceOr("HARVEST_BLOCKED_DOMAINS", defaultBlockedDomains),
		},
		Extract: ExtractConfig{
			ExtractImages:    envBoolOr("HARVEST_EXTRACT_IMAGES", true),
			ExtractLinks:     envBoolOr("HARVEST_EXTRACT_LINKS", true),
			MinContentLength: envIntOr("HARVEST_MIN_CONTENT_LENGTH", 50),
			MaxConcurrent:    envIntOr("HARVEST_EXTRACT_CONCURRENCY", 0),
		},
		RateLimit: RateLimitConfig{
			Burst: envIntOr("HARVEST_RATE_BURST", 1),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("HARVEST_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("HARVEST_CACHE_TTL", time.Hour),
		},
		Sinks: SinkConfig{
			JobWebhookURL: os.Getenv("HARVEST_JOB_WEBHOOK_URL"),
			StorageURL:    os.Getenv("HARVEST_STORAGE_URL"),
			WebhookSecret: os.Getenv("HARVEST_WEBHOOK_SECRET"),
			LLMBaseURL:    envOr("HARVEST_LLM_BASE_URL", "https://api.openai.com/v1"),
			LLMAPIKey:     os.Getenv("HARVEST_LLM_API_KEY"),
			LLMModel:      envOr("HARVEST_LLM_MODEL", "gpt-4o-mini"),
			MaxExpansions: envIntOr("HARVEST_MAX_EXPANSIONS", 10),
		},
		Log: LogConfig{
			Level:  envOr("HARVEST_LOG_LEVEL", "info"),
			Format: envOr("HARVEST_LOG_FORMAT", "json"),
		},
	}
}

// Validate checks the configuration before any job transitions to RUNNING.
// Invalid configuration is fatal to the whole job.
func (c *Config) Validate() error {
	if c.Browser.MaxBrowsers < 1 {
		return models.NewHarvestError(models.ErrCodeInvalidConfig,
			fmt.Sprintf("maxBrowsers must be >= 1, got %d", c.Browser.MaxBrowsers), nil)
	}
	if c.Search.MaxResultsPerKeyword < 1 {
		return models.NewHarvestError(models.ErrCodeInvalidConfig,
			fmt.Sprintf("maxResultsPerKeyword must be >= 1, got %d", c.Search.MaxResultsPerKeyword), nil)
	}
	if c.Search.SearchDelay < 0 {
		return models.NewHarvestError(models.ErrCodeInvalidConfig,
			fmt.Sprintf("searchDelay must be >= 0, got %s", c.Search.SearchDelay), nil)
	}
	if c.Browser.PageTimeout <= 0 {
		return models.NewHarvestError(models.ErrCodeInvalidConfig,
			fmt.Sprintf("pageTimeout must be > 0, got %s", c.Browser.PageTimeout), nil)
	}
	if len(c.Browser.UserAgents) == 0 {
		return models.NewHarvestError(models.ErrCodeInvalidConfig,
			"userAgents pool must not be empty", nil)
	}
	if len(c.Search.Engines) == 0 {
		return models.NewHarvestError(models.ErrCodeInvalidConfig,
			"at least one search engine must be configured", nil)
	}
	for _, e := range c.Search.Engines {
		switch e {
		case models.EngineGoogle, models.EngineBing, models.EngineDuckDuckGo,
			models.EngineYahoo, models.EngineBrave:
		default:
			return models.NewHarvestError(models.ErrCodeInvalidConfig,
				fmt.Sprintf("unknown engine %q", e), nil)
		}
	}
	return nil
}

// ExtractConcurrency returns the effective bounded-parallel extraction
// width: the configured value, or the pool size when unset.
func (c *Config) ExtractConcurrency() int {
	if c.Extract.MaxConcurrent > 0 {
		return c.Extract.MaxConcurrent
	}
	return c.Browser.MaxBrowsers
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func envEnginesOr(key string, fallback []models.EngineKey) []models.EngineKey {
	raw := envSliceOr(key, nil)
	if len(raw) == 0 {
		return fallback
	}
	engines := make([]models.EngineKey, 0, len(raw))
	for _, r := range raw {
		engines = append(engines, models.EngineKey(strings.ToLower(r)))
	}
	return engines
}
