// Package fetch retrieves target pages for extraction. It tries a cheap
// TLS-fingerprinted HTTP request first and escalates to a pool-guarded
// browser page only when the response looks like it needs JS rendering.
package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/keyseek/harvest/browser"
	"github.com/keyseek/harvest/config"
)

// Client fetches fully-rendered page HTML.
type Client struct {
	pool        *browser.Pool
	httpf       *httpFetcher
	httpTimeout time.Duration
}

// NewClient creates a Client backed by the shared browser pool.
func NewClient(cfg *config.Config, pool *browser.Pool) *Client {
	ua := cfg.Browser.UserAgents[0]
	return &Client{
		pool:        pool,
		httpf:       newHTTPFetcher(ua),
		httpTimeout: cfg.Browser.PageTimeout / 3,
	}
}

// Fetch returns the rendered HTML and the final URL after redirects.
func (c *Client) Fetch(ctx context.Context, url string) (string, string, error) {
	httpCtx, cancel := context.WithTimeout(ctx, c.httpTimeout)
	body, err := c.httpf.fetch(httpCtx, url)
	cancel()
	if err == nil && !needsBrowser(body) {
		return string(body), url, nil
	}
	if err != nil {
		slog.Debug("http fetch failed, escalating to browser", "url", url, "error", err)
	} else {
		slog.Debug("page needs rendering, escalating to browser", "url", url)
	}

	return c.fetchWithBrowser(ctx, url)
}

// fetchWithBrowser renders the page on a leased browser instance. The
// lease is released on every exit path; an ordinary navigation failure
// raises the handle's error score, a forced abort marks it for disposal.
func (c *Client) fetchWithBrowser(ctx context.Context, url string) (string, string, error) {
	h, err := c.pool.Acquire(ctx)
	if err != nil {
		return "", "", err
	}
	defer c.pool.Release(h)

	page, err := c.pool.CreatePage(h)
	if err != nil {
		return "", "", err
	}
	defer page.Close()

	html, finalURL, err := page.Navigate(ctx, url)
	if err != nil {
		h.RecordNavFailure(err)
		return "", "", err
	}
	h.RecordSuccess()
	return html, finalURL, nil
}
