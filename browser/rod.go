package browser

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/flowscout/config"
	"github.com/use-agent/flowscout/models"
	"github.com/ysmood/gson"
)

// RodDriver owns the long-lived Chromium process. Every session gets its
// own incognito browser context so cookies and storage never leak between
// harvests. It is safe for concurrent use.
type RodDriver struct {
	browser *rod.Browser
}

// Launch starts a headless browser with the configured flags.
func Launch(cfg config.BrowserConfig) (*RodDriver, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
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
		return nil, models.NewSearchError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewSearchError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}
	return &RodDriver{browser: b}, nil
}

// NewSession opens an incognito context and one page inside it.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Incognito context   – isolated cookies/storage
//  2. Page                – the single tab of the session
//  3. Stealth injection   – must precede any navigation
//  4. Identity            – user agent, accept-language, viewport
//  5. Hijack mount        – block images/fonts/media and trackers
//
// Any failure tears down what was already created.
func (d *RodDriver) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	// ── 1. Incognito context ──────────────────────────────────────────
	if err := ctx.Err(); err != nil {
		return nil, crashError(err, "session not started")
	}
	incognito, err := d.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, crashError(err, "failed to create browser context")
	}

	// ── 2. Page ───────────────────────────────────────────────────────
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Context(context.Background()).Close()
		return nil, crashError(err, "failed to open page")
	}

	// Both handles outlive ctx: every later call supplies its own context
	// and the hijack router runs until Close.
	s := &rodSession{
		incognito: incognito.Context(context.Background()),
		page:      page.Context(context.Background()),
	}

	// ── 3. Stealth injection ──────────────────────────────────────────
	if opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 4. Identity ───────────────────────────────────────────────────
	if opts.UserAgent != "" {
		if uaErr := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      opts.UserAgent,
			AcceptLanguage: opts.AcceptLanguage,
		}); uaErr != nil {
			slog.Warn("failed to override user agent", "error", uaErr)
		}
	}
	if opts.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Accept-Language": opts.AcceptLanguage}),
		}.Call(page)
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		if vpErr := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.ViewportWidth,
			Height:            opts.ViewportHeight,
			DeviceScaleFactor: 1,
		}); vpErr != nil {
			_ = s.Close()
			return nil, crashError(vpErr, "failed to set viewport")
		}
	}

	// ── 5. Hijack mount ───────────────────────────────────────────────
	s.router = setupHijack(s.page, opts.BlockedResourceTypes)

	return s, nil
}

// Close kills the browser process.
func (d *RodDriver) Close() error {
	slog.Info("browser shutting down")
	return d.browser.Close()
}

type rodSession struct {
	incognito *rod.Browser
	page      *rod.Page
	router    *rod.HijackRouter
	once      sync.Once
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	if err := s.page.Context(ctx).Navigate(url); err != nil {
		return categorizeError(err, "navigation failed")
	}
	return nil
}

// WaitNetworkIdle waits for the page to quiesce, bounded by timeout.
// WaitRequestIdle relies on the Fetch domain, which conflicts with the
// hijack router, so a hijacked page waits for DOM stability instead.
func (s *rodSession) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := s.page.Context(ctx)
	if s.router != nil {
		if err := p.WaitDOMStable(500*time.Millisecond, 0.1); err != nil {
			return categorizeError(err, "page did not settle")
		}
		return nil
	}

	p.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	if err := ctx.Err(); err != nil {
		return categorizeError(err, "network did not go idle")
	}
	return nil
}

func (s *rodSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, categorizeError(err, "element query failed")
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = rodElement{el: el}
	}
	return out, nil
}

func (s *rodSession) Evaluate(ctx context.Context, js string) error {
	_, err := s.page.Context(ctx).Eval(js)
	return err
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

func (s *rodSession) Location(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// closeTimeout bounds session teardown against a wedged browser.
const closeTimeout = 5 * time.Second

// Close stops the hijack router, closes the page and disposes the
// incognito context. Teardown runs on its own deadline, so it works after
// the harvest context expired and never blocks longer than closeTimeout.
func (s *rodSession) Close() error {
	var err error
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		if s.router != nil {
			_ = s.router.Stop()
		}
		if closeErr := s.page.Context(ctx).Close(); closeErr != nil {
			slog.Debug("cleanup: failed to close page", "error", closeErr)
		}
		err = s.incognito.Context(ctx).Close()
	})
	return err
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil || v == nil {
		return "", false, err
	}
	return *v, true, nil
}

func (e rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
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
