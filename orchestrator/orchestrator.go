package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/keyseek/harvest/cache"
	"github.com/keyseek/harvest/config"
	"github.com/keyseek/harvest/extract"
	"github.com/keyseek/harvest/models"
	"github.com/keyseek/harvest/serp"
	"github.com/keyseek/harvest/simhash"
)

// Fetcher retrieves rendered page HTML for a URL. The fetch client
// satisfies this; tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (html, finalURL string, err error)
}

// JobRequest describes one acquisition job. Zero-valued knobs fall back
// to the configured defaults.
type JobRequest struct {
	JobID    string
	UserID   string
	Keywords []string

	// Engines overrides the configured engine list when non-empty.
	Engines []models.EngineKey

	// MaxResultsPerKeyword overrides the configured cap when > 0.
	MaxResultsPerKeyword int
}

// Params collects the orchestrator's collaborators. Registry, Fetcher,
// and Extractor are required; the sinks default to log-backed stand-ins
// and the expander and cache may be nil.
type Params struct {
	Config    *config.Config
	Registry  *serp.Registry
	Fetcher   Fetcher
	Extractor *extract.Extractor
	Cache     *cache.Cache
	Jobs      JobSink
	Store     StorageSink
	Expander  KeywordExpander
}

// Orchestrator drives a job end to end: expand keywords, query the
// engines, dedup URLs, extract content in bounded parallel, and persist
// what validates.
type Orchestrator struct {
	cfg       *config.Config
	registry  *serp.Registry
	fetcher   Fetcher
	extractor *extract.Extractor
	cache     *cache.Cache
	jobs      JobSink
	store     StorageSink
	expander  KeywordExpander
}

// New validates the configuration and wires the orchestrator. A config
// error here is fatal: no job may transition to RUNNING with an invalid
// configuration.
func New(p Params) (*Orchestrator, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	if p.Jobs == nil {
		p.Jobs = LogJobSink{}
	}
	if p.Store == nil {
		p.Store = LogStorageSink{}
	}
	return &Orchestrator{
		cfg:       p.Config,
		registry:  p.Registry,
		fetcher:   p.Fetcher,
		extractor: p.Extractor,
		cache:     p.Cache,
		jobs:      p.Jobs,
		store:     p.Store,
		expander:  p.Expander,
	}, nil
}

// jobRun is the mutable state of one Run call. The mutex guards the
// result and the near-duplicate index, both touched from extraction
// goroutines.
type jobRun struct {
	mu       sync.Mutex
	result   *models.JobRunResult
	dupIndex *simhash.Index
	fatal    error
}

func (r *jobRun) recordFailure() {
	r.mu.Lock()
	r.result.FailedCount++
	r.mu.Unlock()
}

// recordFatal keeps the first pool-fatal error for the run loop to
// abort on.
func (r *jobRun) recordFatal(err error) {
	r.mu.Lock()
	if r.fatal == nil {
		r.fatal = err
	}
	r.mu.Unlock()
}

// Run executes the job and returns its result. The result is returned
// for every outcome; the error is non-nil only when the job aborted
// (FAILED). Cancellation via ctx yields CANCELLED with a nil error and
// whatever was completed so far.
func (o *Orchestrator) Run(ctx context.Context, req JobRequest) (*models.JobRunResult, error) {
	run := &jobRun{
		result: &models.JobRunResult{
			JobID:   req.JobID,
			Results: []*models.ExtractedContent{},
		},
		dupIndex: simhash.NewIndex(simhash.DefaultThreshold),
	}

	keywords := o.expandKeywords(ctx, req.Keywords)
	engines := req.Engines
	if len(engines) == 0 {
		engines = o.cfg.Search.Engines
	}
	maxResults := req.MaxResultsPerKeyword
	if maxResults <= 0 {
		maxResults = o.cfg.Search.MaxResultsPerKeyword
	}

	o.setStatus(ctx, req.JobID, models.JobRunning)
	slog.Info("job started",
		"job_id", req.JobID, "keywords", len(keywords), "engines", len(engines))

	seen := newDedupSet()
	sem := semaphore.NewWeighted(int64(o.cfg.ExtractConcurrency()))

	for i, keyword := range keywords {
		if ctx.Err() != nil {
			o.setStatus(ctx, req.JobID, models.JobCancelled)
			return run.result, nil
		}

		merged := o.searchKeyword(ctx, keyword, engines, maxResults)
		run.result.TotalResults += len(merged)

		var fresh []string
		for _, r := range merged {
			if _, isNew := seen.add(r.URL); isNew {
				fresh = append(fresh, r.URL)
			}
		}

		var wg sync.WaitGroup
		for _, u := range fresh {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
			wg.Add(1)
			go func(pageURL string) {
				defer wg.Done()
				defer sem.Release(1)
				o.processURL(ctx, req, pageURL, run)
			}(u)
		}
		wg.Wait()

		if run.fatal != nil {
			o.setStatus(ctx, req.JobID, models.JobFailed)
			return run.result, run.fatal
		}

		run.result.KeywordsProcessed = i + 1
		if err := o.jobs.UpdateProgress(ctx, req.JobID,
			run.result.KeywordsProcessed, len(keywords), run.result.FailedCount); err != nil {
			slog.Warn("progress update failed", "job_id", req.JobID, "error", err)
		}
	}

	if ctx.Err() != nil {
		o.setStatus(ctx, req.JobID, models.JobCancelled)
		return run.result, nil
	}

	o.setStatus(ctx, req.JobID, models.JobCompleted)
	slog.Info("job completed",
		"job_id", req.JobID,
		"stored", len(run.result.Results),
		"failed", run.result.FailedCount,
		"duplicates", run.result.DuplicateCount)
	return run.result, nil
}

// searchKeyword fans the keyword out to every engine in parallel and
// merges the responses in configured engine order. Engine failures have
// already been converted to empty lists by the adapters.
func (o *Orchestrator) searchKeyword(ctx context.Context, keyword string, engines []models.EngineKey, maxResults int) []models.SearchResult {
	buckets := make([][]models.SearchResult, len(engines))
	var wg sync.WaitGroup
	for i, key := range engines {
		adapter, ok := o.registry.Get(key)
		if !ok {
			slog.Warn("no adapter registered", "engine", key)
			continue
		}
		wg.Add(1)
		go func(i int, a serp.Adapter) {
			defer wg.Done()
			buckets[i] = a.Query(ctx, keyword, maxResults)
		}(i, adapter)
	}
	wg.Wait()

	var merged []models.SearchResult
	for _, b := range buckets {
		merged = append(merged, b...)
	}
	return merged
}

// processURL runs the per-document pipeline: cache lookup, fetch,
// extract, validate, near-duplicate check, store. Per-document failures
// are counted, never propagated; pool-fatal errors abort the run.
func (o *Orchestrator) processURL(ctx context.Context, req JobRequest, pageURL string, run *jobRun) {
	norm, err := NormalizeURL(pageURL)
	if err != nil {
		norm = pageURL
	}

	var content *models.ExtractedContent
	if o.cache != nil {
		if cached, ok := o.cache.Get(norm); ok {
			content = cached
		}
	}

	if content == nil {
		html, finalURL, err := o.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			run.recordFailure()
			if isPoolFatal(err) {
				run.recordFatal(err)
			} else {
				slog.Warn("fetch failed", "job_id", req.JobID, "url", pageURL, "error", err)
			}
			return
		}

		content = o.extractor.Extract(html, finalURL)
		if !o.extractor.Validate(content) {
			run.recordFailure()
			slog.Debug("content rejected", "job_id", req.JobID, "url", pageURL)
			return
		}
		if o.cache != nil {
			o.cache.Put(norm, content)
		}
	}

	run.mu.Lock()
	if run.dupIndex.Add(content.Text) {
		run.result.DuplicateCount++
		run.mu.Unlock()
		slog.Debug("near-duplicate skipped", "job_id", req.JobID, "url", pageURL)
		return
	}
	run.mu.Unlock()

	artifactID, err := o.store.Store(ctx, req.JobID, req.UserID, content)
	if err != nil {
		run.recordFailure()
		slog.Warn("store failed", "job_id", req.JobID, "url", pageURL, "error", err)
		return
	}

	run.mu.Lock()
	run.result.Results = append(run.result.Results, content)
	run.mu.Unlock()
	slog.Debug("content stored",
		"job_id", req.JobID, "url", content.URL, "artifact_id", artifactID)
}

// expandKeywords applies the optional expansion sink. Any failure or
// empty response falls back to the original keywords; expansion is
// never fatal to the job.
func (o *Orchestrator) expandKeywords(ctx context.Context, keywords []string) []string {
	if o.expander == nil {
		return keywords
	}
	expanded, err := o.expander.Expand(ctx, keywords, o.cfg.Sinks.MaxExpansions)
	if err != nil {
		slog.Warn("keyword expansion failed, using original keywords", "error", err)
		return keywords
	}
	if len(expanded) == 0 {
		return keywords
	}
	return expanded
}

func (o *Orchestrator) setStatus(ctx context.Context, jobID string, status models.JobStatus) {
	if err := o.jobs.UpdateStatus(ctx, jobID, status); err != nil {
		slog.Warn("status update failed", "job_id", jobID, "status", status, "error", err)
	}
}

// Pool exhaustion means the pool could not create a single browser
// instance; no document in the job can ever succeed, so the whole job
// aborts.
func isPoolFatal(err error) bool {
	var he *models.HarvestError
	if !errors.As(err, &he) {
		return false
	}
	return he.Code == models.ErrCodePoolExhausted || he.Code == models.ErrCodePoolClosed
}
