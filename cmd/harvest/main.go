package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/keyseek/harvest/browser"
	"github.com/keyseek/harvest/cache"
	"github.com/keyseek/harvest/config"
	"github.com/keyseek/harvest/extract"
	"github.com/keyseek/harvest/fetch"
	"github.com/keyseek/harvest/llm"
	"github.com/keyseek/harvest/models"
	"github.com/keyseek/harvest/orchestrator"
	"github.com/keyseek/harvest/ratelimit"
	"github.com/keyseek/harvest/serp"
	"github.com/keyseek/harvest/webhook"
)

func main() {
	var (
		keywordsFlag = flag.String("keywords", "", "comma-separated seed keywords (required)")
		enginesFlag  = flag.String("engines", "", "comma-separated engines, overrides HARVEST_ENGINES")
		userFlag     = flag.String("user", "", "user id attached to stored artifacts")
		expandFlag   = flag.Bool("expand", false, "expand seed keywords via the LLM sink")
	)
	flag.Parse()

	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	keywords := splitFlag(*keywordsFlag)
	if len(keywords) == 0 {
		fmt.Fprintln(os.Stderr, "usage: harvest -keywords <kw1,kw2,...> [-engines google,bing] [-expand]")
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("harvest starting",
		"keywords", len(keywords),
		"maxBrowsers", cfg.Browser.MaxBrowsers,
		"engines", cfg.Search.Engines,
	)

	// ── 3. Initialise browser pool ──────────────────────────────────
	pool, err := browser.NewPool(cfg.Browser, browser.Launch(cfg.Browser))
	if err != nil {
		slog.Error("failed to initialise browser pool", "error", err)
		os.Exit(1)
	}

	// ── 4. Wire the pipeline ────────────────────────────────────────
	limiter := ratelimit.New(cfg.Search.SearchDelay, cfg.RateLimit.Burst)
	registry := serp.NewRegistry(cfg, pool, limiter)
	fetcher := fetch.NewClient(cfg, pool)
	extractor := extract.New(cfg.Extract)
	contentCache := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer contentCache.Close()

	params := orchestrator.Params{
		Config:    cfg,
		Registry:  registry,
		Fetcher:   fetcher,
		Extractor: extractor,
		Cache:     contentCache,
	}
	if cfg.Sinks.JobWebhookURL != "" {
		params.Jobs = webhook.NewJobSink(cfg.Sinks.JobWebhookURL, cfg.Sinks.WebhookSecret)
	}
	if cfg.Sinks.StorageURL != "" {
		params.Store = webhook.NewStorageSink(cfg.Sinks.StorageURL, cfg.Sinks.WebhookSecret)
	}
	if *expandFlag && cfg.Sinks.LLMAPIKey != "" {
		params.Expander = llm.NewClient(&http.Client{Timeout: 30 * time.Second}, cfg.Sinks)
	}

	orch, err := orchestrator.New(params)
	if err != nil {
		slog.Error("failed to initialise orchestrator", "error", err)
		os.Exit(1)
	}

	// ── 5. Run the job, cancellable via SIGINT/SIGTERM ──────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := orchestrator.JobRequest{
		JobID:    uuid.NewString(),
		UserID:   *userFlag,
		Keywords: keywords,
		Engines:  parseEngines(*enginesFlag),
	}

	result, runErr := orch.Run(ctx, req)

	// ── 6. Drain the pool before reporting ──────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		slog.Warn("pool shutdown incomplete", "error", err)
	}

	// ── 7. Emit the run summary ─────────────────────────────────────
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		slog.Error("failed to encode result", "error", err)
	}

	if runErr != nil {
		slog.Error("job failed", "job_id", req.JobID, "error", runErr)
		os.Exit(1)
	}
	slog.Info("harvest stopped", "job_id", req.JobID)
}

func splitFlag(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseEngines(v string) []models.EngineKey {
	parts := splitFlag(v)
	engines := make([]models.EngineKey, 0, len(parts))
	for _, p := range parts {
		engines = append(engines, models.EngineKey(strings.ToLower(p)))
	}
	return engines
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
