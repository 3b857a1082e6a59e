package browser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/keyseek/harvest/models"
)

// Page is a short-lived, fingerprinted browser tab. It is owned by the
// caller of CreatePage and must be closed before the owning handle is
// released back to the pool.
type Page struct {
	p       *rod.Page
	router  *rod.HijackRouter
	timeout time.Duration
}

// newRodPage applies the fingerprint and resource blocking to a freshly
// created tab. Stealth injection and the hijack router are both installed
// before any navigation; they only take effect for navigations that happen
// after they are in place.
func newRodPage(page *rod.Page, fp Fingerprint, blockedResources []string, timeout time.Duration) (*Page, error) {
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth",
			"error", err,
		)
	}

	if fp.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: fp.UserAgent,
		}); err != nil {
			_ = page.Close()
			return nil, models.NewHarvestError(
				models.ErrCodeNavigation,
				"failed to apply user agent",
				err,
			)
		}
	}

	width, height := fp.ViewportWidth, fp.ViewportHeight
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = page.Close()
		return nil, models.NewHarvestError(
			models.ErrCodeNavigation,
			"failed to apply viewport",
			err,
		)
	}

	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		}),
	}.Call(page)

	router := setupHijack(page, blockedResources)

	return &Page{p: page, router: router, timeout: timeout}, nil
}

// Navigate loads the URL and waits for the DOM to settle, bounded by the
// page's navigation timeout. It returns the fully-rendered HTML and the
// final URL after redirects.
//
// Job cancellation does not cut an in-flight navigation short: the page
// timeout is the grace period, after which the abort is forced and the
// owning handle is disposed by the caller (see Handle.RecordNavFailure).
//
// NOTE: WaitRequestIdle uses the Fetch domain, which conflicts with the
// hijack router on recent Chromium; WaitDOMStable is the reliable wait.
func (pg *Page) Navigate(ctx context.Context, url string) (html string, finalURL string, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", "", categorizeNavError(ctxErr, "navigation not started")
	}

	navCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pg.timeout)
	defer cancel()

	p := pg.p.Context(navCtx)

	if navErr := p.Navigate(url); navErr != nil {
		return "", "", categorizeNavError(navErr, "navigation to target URL failed")
	}

	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"url", url, "error", stableErr,
		)
	}

	html, htmlErr := p.HTML()
	if htmlErr != nil {
		return "", "", categorizeNavError(htmlErr, "failed to extract page HTML")
	}

	finalURL = evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = url
	}
	return html, finalURL, nil
}

// Close stops the hijack router and closes the tab. Safe to call once per
// page; the owning handle must not be released before this.
func (pg *Page) Close() {
	if pg.router != nil {
		_ = pg.router.Stop()
	}
	if err := pg.p.Close(); err != nil {
		slog.Debug("page close failed", "error", err)
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string
// result, swallowing any errors (used for optional metadata only).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// Aborted reports whether an error stems from cancellation or deadline
// expiry rather than from the page itself.
func Aborted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// categorizeNavError wraps raw errors into typed HarvestErrors so callers
// can distinguish timeouts from navigation failures.
func categorizeNavError(err error, msg string) *models.HarvestError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewHarvestError(models.ErrCodeNavTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewHarvestError(models.ErrCodeNavigation, "navigation canceled", err)
	default:
		return models.NewHarvestError(models.ErrCodeNavigation, msg, err)
	}
}
