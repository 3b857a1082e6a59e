package browser

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/keyseek/harvest/config"
	"github.com/keyseek/harvest/models"
)

// Handle is an exclusive lease on one browser-engine instance. Between
// Acquire and Release it is owned by exactly one caller; it is never
// duplicated and never idle and leased at the same time.
type Handle struct {
	id      int64
	b       Browser
	mu      sync.Mutex
	errScore float64
	useCount int
	created  time.Time
	broken   bool
}

// RecordSuccess decreases the error score (min 0).
func (h *Handle) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	if h.errScore > 0.5 {
		h.errScore -= 0.5
	} else {
		h.errScore = 0
	}
}

// RecordFailure increases the error score.
func (h *Handle) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	h.errScore += 1.0
}

// MarkBroken flags the instance as crashed; Release will dispose it
// rather than returning it to the idle set.
func (h *Handle) MarkBroken() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broken = true
}

// RecordNavFailure updates the handle after a failed navigation. A forced
// abort (cancellation or deadline expiry) leaves the instance with an
// in-flight load in an unknown state, so the handle is marked broken and
// Release disposes it; any other failure only raises the error score.
func (h *Handle) RecordNavFailure(err error) {
	if Aborted(err) {
		h.MarkBroken()
		return
	}
	h.RecordFailure()
}

// stats snapshots the health counters for logging.
func (h *Handle) stats() (errScore float64, useCount int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errScore, h.useCount
}

// shouldRetire reports whether the instance has degraded enough to be
// replaced rather than reused.
func (h *Handle) shouldRetire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.broken {
		return true
	}
	if h.errScore >= 3.0 {
		return true
	}
	if h.useCount >= 200 {
		return true
	}
	return time.Since(h.created) >= time.Hour
}

// Pool is the bounded browser instance pool. All jobs share one Pool; its
// idle/leased bookkeeping is the only mutable shared state, guarded by a
// single mutex plus the idle channel.
type Pool struct {
	cfg    config.BrowserConfig
	launch LaunchFunc

	idle    chan *Handle
	mu      sync.Mutex
	all     map[int64]*Handle
	nextID  atomic.Int64
	leased  atomic.Int32
	waiters atomic.Int32

	closed    chan struct{}
	closeOnce sync.Once
}

// NewPool creates a Pool that lazily launches instances up to
// cfg.MaxBrowsers using the given launch function.
func NewPool(cfg config.BrowserConfig, launch LaunchFunc) (*Pool, error) {
	if cfg.MaxBrowsers < 1 {
		return nil, models.NewHarvestError(models.ErrCodeInvalidConfig,
			"maxBrowsers must be >= 1", nil)
	}
	return &Pool{
		cfg:    cfg,
		launch: launch,
		idle:   make(chan *Handle, cfg.MaxBrowsers),
		all:    make(map[int64]*Handle),
		closed: make(chan struct{}),
	}, nil
}

// Acquire returns an idle handle if one exists, launches a new instance if
// the pool is under capacity, and otherwise suspends the caller until a
// handle is released. The configured AcquireTimeout bounds queueing under
// sustained exhaustion; the caller's context can impose a tighter bound.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	select {
	case <-p.closed:
		return nil, models.NewHarvestError(models.ErrCodePoolClosed,
			"pool is shut down", nil)
	default:
	}

	// Fast path: reuse an idle instance, skipping any that degraded or
	// aged out while idle.
	for {
		select {
		case h := <-p.idle:
			if h.shouldRetire() {
				p.dispose(h)
				continue
			}
			p.leased.Add(1)
			return h, nil
		default:
		}
		break
	}

	// Register as a waiter before the capacity check, so a concurrent
	// Release that disposes its handle between our check and the wait
	// still sees us and launches a replacement.
	p.waiters.Add(1)
	defer p.waiters.Add(-1)

	// Launch a new instance if under capacity. Launch failures surface
	// to the caller; they are not retried here.
	p.mu.Lock()
	if len(p.all) < p.cfg.MaxBrowsers {
		h, err := p.createLocked()
		p.mu.Unlock()
		if err != nil {
			return nil, err
		}
		p.leased.Add(1)
		return h, nil
	}
	p.mu.Unlock()

	// At capacity: queue until a release.
	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	for {
		select {
		case h := <-p.idle:
			if h.shouldRetire() {
				p.dispose(h)
				p.replaceForWaiters()
				continue
			}
			p.leased.Add(1)
			return h, nil
		case <-p.closed:
			return nil, models.NewHarvestError(models.ErrCodePoolClosed,
				"pool is shut down", nil)
		case <-ctx.Done():
			return nil, models.NewHarvestError(models.ErrCodeAcquireTimeout,
				"pool capacity not obtained within deadline", ctx.Err())
		}
	}
}

// Release returns the handle to the idle set, or disposes of it when the
// instance is crashed, degraded, or the pool is shutting down. Every
// Acquire must be paired with exactly one Release on all exit paths.
func (p *Pool) Release(h *Handle) {
	p.leased.Add(-1)

	select {
	case <-p.closed:
		p.dispose(h)
		return
	default:
	}

	if h.shouldRetire() || h.b.Healthy() != nil {
		errScore, useCount := h.stats()
		slog.Debug("pool: retiring browser", "id", h.id,
			"errScore", errScore, "useCount", useCount)
		p.dispose(h)
		p.replaceForWaiters()
		return
	}

	if err := h.b.ResetPages(); err != nil {
		slog.Warn("pool: page reset failed, disposing browser",
			"id", h.id, "error", err)
		p.dispose(h)
		p.replaceForWaiters()
		return
	}

	select {
	case p.idle <- h:
	default:
		// Idle set already at capacity.
		p.dispose(h)
	}
}

// CreatePage opens a fingerprinted page on the leased instance, with a
// randomized user agent from the configured pool, a fixed viewport,
// resource blocking, and the per-page navigation timeout.
func (p *Pool) CreatePage(h *Handle) (*Page, error) {
	fp := Fingerprint{
		UserAgent:      p.cfg.UserAgents[rand.Intn(len(p.cfg.UserAgents))],
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	}
	page, err := h.b.NewPage(fp, p.cfg.BlockedResourceTypes, p.cfg.PageTimeout)
	if err != nil {
		h.RecordFailure()
		return nil, err
	}
	return page, nil
}

// State returns a read-only snapshot of pool occupancy.
func (p *Pool) State() models.PoolState {
	return models.PoolState{
		Leased: int(p.leased.Load()),
		Idle:   len(p.idle),
		Max:    p.cfg.MaxBrowsers,
	}
}

// Shutdown drains the pool: idle instances are disposed immediately,
// leased ones are waited for until ctx expires and then force-disposed.
// Subsequent Acquire calls fail fast. Returns ctx.Err() when leased
// instances had to be force-closed.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() { close(p.closed) })

	p.drainIdle()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for p.leased.Load() > 0 {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			for id, h := range p.all {
				_ = h.b.Close()
				delete(p.all, id)
			}
			p.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			p.drainIdle()
		}
	}
	p.drainIdle()

	// Anything still tracked was never released; close it anyway.
	p.mu.Lock()
	for id, h := range p.all {
		_ = h.b.Close()
		delete(p.all, id)
	}
	p.mu.Unlock()
	return nil
}

func (p *Pool) drainIdle() {
	for {
		select {
		case h := <-p.idle:
			p.dispose(h)
		default:
			return
		}
	}
}

// createLocked launches a new instance. Caller must hold p.mu.
func (p *Pool) createLocked() (*Handle, error) {
	b, err := p.launch()
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodePoolExhausted,
			"browser instantiation failed", err)
	}
	h := &Handle{
		id:      p.nextID.Add(1),
		b:       b,
		created: time.Now(),
	}
	p.all[h.id] = h
	return h, nil
}

// dispose removes the handle from tracking and closes the instance.
func (p *Pool) dispose(h *Handle) {
	p.mu.Lock()
	delete(p.all, h.id)
	p.mu.Unlock()
	if err := h.b.Close(); err != nil {
		slog.Debug("pool: browser close failed", "id", h.id, "error", err)
	}
}

// replaceForWaiters launches a fresh instance when a disposal would leave
// queued Acquire callers with nothing to wake them.
func (p *Pool) replaceForWaiters() {
	if p.waiters.Load() == 0 {
		return
	}
	select {
	case <-p.closed:
		return
	default:
	}
	p.mu.Lock()
	if len(p.all) >= p.cfg.MaxBrowsers {
		p.mu.Unlock()
		return
	}
	h, err := p.createLocked()
	p.mu.Unlock()
	if err != nil {
		slog.Warn("pool: failed to replace retired browser", "error", err)
		return
	}
	p.idle <- h
}
