// Package browser owns the bounded pool of browser-engine instances and
// the fingerprinted pages created on them. The pool is the single
// synchronization point shared by concurrently running jobs.
package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/keyseek/harvest/config"
	"github.com/keyseek/harvest/models"
)

// Fingerprint is the set of randomized page-level attributes used to
// reduce automation detectability.
type Fingerprint struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

// Browser abstracts one underlying browser-engine instance so the pool can
// be exercised in tests without launching real processes.
type Browser interface {
	// NewPage opens a fingerprinted page with resource blocking and a
	// navigation timeout.
	NewPage(fp Fingerprint, blockedResources []string, timeout time.Duration) (*Page, error)

	// ResetPages closes every open page beyond one and resets the
	// survivor to about:blank, preparing the instance for reuse.
	ResetPages() error

	// Healthy returns an error when the instance is crashed or
	// unresponsive.
	Healthy() error

	// Close disposes of the underlying instance.
	Close() error
}

// LaunchFunc instantiates a new browser engine. Injected into the pool so
// tests can substitute stub instances.
type LaunchFunc func() (Browser, error)

// rodBrowser backs a pool slot with a dedicated Chromium process.
type rodBrowser struct {
	browser *rod.Browser
	l       *launcher.Launcher
}

// Launch starts a Chromium instance with the hardened flag set and
// connects to it. The returned LaunchFunc is what the pool calls for each
// new slot.
func Launch(cfg config.BrowserConfig) LaunchFunc {
	return func() (Browser, error) {
		l := launcher.New().
			Headless(cfg.Headless).
			NoSandbox(cfg.NoSandbox)

		if cfg.BrowserBin != "" {
			l = l.Bin(cfg.BrowserBin)
		}

		// ── Stealth flags ────────────────────────────────────────────
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
		l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
		l.Set(flags.Flag("disable-popup-blocking"))
		l.Set(flags.Flag("disable-renderer-backgrounding"))
		l.Set(flags.Flag("disable-background-timer-throttling"))
		l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
		l.Set(flags.Flag("disable-component-update"))
		l.Set(flags.Flag("disable-default-apps"))
		l.Set(flags.Flag("disable-dev-shm-usage"))
		l.Set(flags.Flag("disable-extensions"))
		l.Set(flags.Flag("no-first-run"))

		controlURL, err := l.Launch()
		if err != nil {
			return nil, models.NewHarvestError(
				models.ErrCodePoolExhausted,
				"failed to launch browser",
				err,
			)
		}

		b := rod.New().ControlURL(controlURL)
		if err := b.Connect(); err != nil {
			l.Kill()
			return nil, models.NewHarvestError(
				models.ErrCodePoolExhausted,
				"failed to connect to browser",
				err,
			)
		}

		return &rodBrowser{browser: b, l: l}, nil
	}
}

func (b *rodBrowser) NewPage(fp Fingerprint, blockedResources []string, timeout time.Duration) (*Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewHarvestError(
			models.ErrCodeNavigation,
			"failed to create page",
			err,
		)
	}
	return newRodPage(page, fp, blockedResources, timeout)
}

func (b *rodBrowser) ResetPages() error {
	pages, err := b.browser.Pages()
	if err != nil {
		return fmt.Errorf("browser: list pages: %w", err)
	}
	for i, p := range pages {
		if i == 0 {
			// Keep one tab alive; about:blank drops its DOM.
			_ = p.Navigate("about:blank")
			continue
		}
		_ = p.Close()
	}
	return nil
}

func (b *rodBrowser) Healthy() error {
	_, err := proto.BrowserGetVersion{}.Call(b.browser)
	return err
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.l.Kill()
	return err
}
