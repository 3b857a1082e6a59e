// Package serp implements the per-engine search adapters. Every adapter
// shares one contract: a query in, a possibly-empty list of results out.
// Adapters never propagate errors — any failure (navigation timeout,
// selector mismatch, automation-layer error) is logged and normalized to
// an empty result list, so no single flaky engine can abort a job.
package serp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/keyseek/harvest/browser"
	"github.com/keyseek/harvest/config"
	"github.com/keyseek/harvest/models"
	"github.com/keyseek/harvest/ratelimit"
)

// Adapter is the engine-specific strategy implementing the common query
// contract. Adding an engine means adding a Rules set; the orchestrator
// never changes.
type Adapter interface {
	Key() models.EngineKey
	Query(ctx context.Context, terms string, maxResults int) []models.SearchResult
}

// Rules captures everything that differs between engines: the search URL
// template and the CSS selectors locating result nodes. Engine result
// pages are uncontrolled external surfaces and change shape without
// notice; selector mismatch degrades to an empty list, never an error.
type Rules struct {
	Key             models.EngineKey
	SearchURL       string // expects one %s verb for the escaped query
	ResultSelector  string
	TitleSelector   string
	LinkSelector    string
	SnippetSelector string

	// OwnDomains are the engine's own hosts, excluded from results.
	OwnDomains []string

	// RewriteURL unwraps engine redirect URLs (e.g. DuckDuckGo's /l/
	// indirection). Nil when the engine links targets directly.
	RewriteURL func(string) string
}

// engineAdapter runs one engine's query through a leased browser page.
type engineAdapter struct {
	rules          Rules
	pool           *browser.Pool
	limiter        *ratelimit.Limiter
	blockedDomains []string
}

// NewAdapter builds an adapter for the given rules, backed by the shared
// pool and rate limiter.
func NewAdapter(rules Rules, pool *browser.Pool, limiter *ratelimit.Limiter, blockedDomains []string) Adapter {
	return &engineAdapter{
		rules:          rules,
		pool:           pool,
		limiter:        limiter,
		blockedDomains: blockedDomains,
	}
}

func (a *engineAdapter) Key() models.EngineKey { return a.rules.Key }

func (a *engineAdapter) Query(ctx context.Context, terms string, maxResults int) []models.SearchResult {
	if err := a.limiter.Wait(ctx, a.rules.Key); err != nil {
		a.logFailure(terms, "rate limit wait interrupted", err)
		return nil
	}

	h, err := a.pool.Acquire(ctx)
	if err != nil {
		a.logFailure(terms, "browser acquisition failed", err)
		return nil
	}
	defer a.pool.Release(h)

	page, err := a.pool.CreatePage(h)
	if err != nil {
		a.logFailure(terms, "page creation failed", err)
		return nil
	}
	defer page.Close()

	searchURL := fmt.Sprintf(a.rules.SearchURL, url.QueryEscape(terms))
	html, _, err := page.Navigate(ctx, searchURL)
	if err != nil {
		h.RecordNavFailure(err)
		a.logFailure(terms, "search navigation failed", err)
		return nil
	}
	h.RecordSuccess()

	raw, err := parseResults(html, a.rules)
	if err != nil {
		a.logFailure(terms, "result parsing failed", err)
		return nil
	}

	results := filterResults(raw, a.rules, a.blockedDomains, maxResults)
	slog.Debug("engine query complete",
		"engine", a.rules.Key, "terms", terms,
		"raw", len(raw), "kept", len(results),
	)
	return results
}

// logFailure records an adapter failure without surfacing it; the contract
// converts every failure into an empty result list.
func (a *engineAdapter) logFailure(terms, msg string, err error) {
	adapterErr := models.NewHarvestError(models.ErrCodeAdapter, msg, err)
	slog.Warn("engine query failed",
		"engine", a.rules.Key, "terms", terms, "error", adapterErr,
	)
}

// Registry maps engine keys to adapters. Lookup is read-only after
// construction.
type Registry struct {
	adapters map[models.EngineKey]Adapter
	order    []models.EngineKey
}

// NewRegistry builds adapters for every configured engine.
func NewRegistry(cfg *config.Config, pool *browser.Pool, limiter *ratelimit.Limiter) *Registry {
	r := &Registry{adapters: make(map[models.EngineKey]Adapter)}
	for _, key := range cfg.Search.Engines {
		rules, ok := engineRules[key]
		if !ok {
			slog.Warn("no rules for engine, skipping", "engine", key)
			continue
		}
		r.Register(NewAdapter(rules, pool, limiter, cfg.Search.BlockedDomains))
	}
	return r
}

// NewRegistryOf builds a registry from explicit adapters.
func NewRegistryOf(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.EngineKey]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter; later registrations for the same key replace
// earlier ones.
func (r *Registry) Register(a Adapter) {
	if _, exists := r.adapters[a.Key()]; !exists {
		r.order = append(r.order, a.Key())
	}
	r.adapters[a.Key()] = a
}

// Get returns the adapter for the given engine key.
func (r *Registry) Get(key models.EngineKey) (Adapter, bool) {
	a, ok := r.adapters[key]
	return a, ok
}

// Keys returns the registered engine keys in registration order.
func (r *Registry) Keys() []models.EngineKey {
	return r.order
}
