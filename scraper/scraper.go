package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/flowscout/browser"
	"github.com/use-agent/flowscout/config"
	"github.com/use-agent/flowscout/engine"
	"github.com/use-agent/flowscout/extract"
	"github.com/use-agent/flowscout/models"
)

// Plan is one vendor harvest request.
type Plan struct {
	Vendor   models.Vendor
	StartURL string

	// Target and Species are copied onto every extracted record.
	Target  string
	Species string
}

// Harvest is the raw outcome of driving one vendor catalog.
type Harvest struct {
	Records []models.RawRecord

	// Visited lists the catalog pages whose snapshots were extracted.
	Visited []string

	// Strategy is the extraction strategy that matched first.
	Strategy string

	// Truncated is set when the aggregate watchdog fired before the
	// harvest finished on its own.
	Truncated bool

	Elapsed time.Duration
}

// DefaultProfiles returns the interaction profile of every vendor.
func DefaultProfiles() map[models.Vendor]Profile {
	return map[models.Vendor]Profile{
		models.VendorBioLegend: {
			Paginated:    true,
			IdleTimeout:  15 * time.Second,
			SettleDelay:  400 * time.Millisecond,
			ScrollPasses: 4,
			ScrollPause:  500 * time.Millisecond,
		},
		models.VendorThermo: {
			ProductsTab:      true,
			IdleTimeout:      20 * time.Second,
			SettleDelay:      600 * time.Millisecond,
			ScrollPasses:     6,
			ScrollPause:      500 * time.Millisecond,
			LoadMoreAttempts: 6,
			LoadMorePause:    1200 * time.Millisecond,
		},
		models.VendorBD: {
			IdleTimeout:      25 * time.Second,
			SettleDelay:      600 * time.Millisecond,
			ScrollPasses:     4,
			ScrollPause:      500 * time.Millisecond,
			LoadMoreAttempts: 8,
			LoadMorePause:    1200 * time.Millisecond,
		},
	}
}

// Scraper drives vendor catalogs through the shared browser. It is safe
// for concurrent use; the gate bounds how many harvests run at once.
type Scraper struct {
	driver     browser.Driver
	gate       *engine.Gate
	extractors extract.Registry
	interactor *Interactor
	cfg        config.ScraperConfig
	session    browser.SessionOptions
	profiles   map[models.Vendor]Profile
}

// New creates a Scraper.
func New(
	driver browser.Driver,
	gate *engine.Gate,
	extractors extract.Registry,
	cfg config.ScraperConfig,
	session browser.SessionOptions,
) *Scraper {
	return &Scraper{
		driver:     driver,
		gate:       gate,
		extractors: extractors,
		interactor: NewInteractor(cfg.ClickTimeout),
		cfg:        cfg,
		session:    session,
		profiles:   DefaultProfiles(),
	}
}

// SetProfile replaces the interaction profile of one vendor. Not safe to
// call concurrently with Harvest.
func (s *Scraper) SetProfile(v models.Vendor, p Profile) {
	s.profiles[v] = p
}

// Stats reports the admission gate.
func (s *Scraper) Stats() models.GateStats {
	return s.gate.Stats()
}

// Degraded reports whether recent harvests kept failing.
func (s *Scraper) Degraded() bool {
	return s.gate.Degraded()
}

func (s *Scraper) profile(v models.Vendor) Profile {
	p := s.profiles[v]
	if s.cfg.ScrollPasses > 0 {
		p.ScrollPasses = s.cfg.ScrollPasses
	}
	if s.cfg.LoadMoreAttempts > 0 && p.LoadMoreAttempts > 0 {
		p.LoadMoreAttempts = s.cfg.LoadMoreAttempts
	}
	return p
}

// Harvest drives one vendor catalog and extracts its raw records.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Admission       – wait for a gate slot (context-aware)
//  2. Watchdog        – aggregate deadline for the whole harvest
//  3. Session         – isolated browser context + page
//  4. DEFER: cleanup  – session closed on every exit path
//  5. Walk            – single page or paginated walk
//
// When the watchdog fires, whatever was collected is returned with
// Truncated set. Cancellation of ctx itself is an error.
func (s *Scraper) Harvest(ctx context.Context, plan Plan) (*Harvest, error) {
	start := time.Now()

	ex, ok := s.extractors.For(plan.Vendor)
	if !ok {
		return nil, models.NewSearchError(
			models.ErrCodeUnsupported,
			fmt.Sprintf("no extractor for vendor %q", plan.Vendor),
			nil,
		)
	}

	// ── 1. Admission ──────────────────────────────────────────────────
	if err := s.gate.Acquire(ctx); err != nil {
		return nil, categorizeError(err, "timed out waiting for a browser slot")
	}
	outcome := engine.Abandoned
	defer func() { s.gate.Release(outcome) }()

	// ── 2. Watchdog ───────────────────────────────────────────────────
	hctx, cancel := context.WithTimeout(ctx, s.cfg.HarvestTimeout)
	defer cancel()

	// ── 3. Session ────────────────────────────────────────────────────
	sess, err := s.driver.NewSession(hctx, s.session)
	if err != nil {
		err = asSearchError(err, models.ErrCodeBrowserCrash, "failed to open browser session")
		outcome = outcomeOf(err)
		return nil, err
	}

	// ── 4. CRITICAL DEFER: release the browser context ────────────────
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to close browser session",
				"vendor", plan.Vendor,
				"error", closeErr,
			)
		}
	}()

	// ── 5. Walk ───────────────────────────────────────────────────────
	prof := s.profile(plan.Vendor)
	var h *Harvest
	if prof.Paginated {
		h, err = s.walkPages(ctx, hctx, sess, ex, plan, prof)
	} else {
		h, err = s.single(ctx, hctx, sess, ex, plan, prof)
	}
	if err != nil {
		slog.Warn("harvest failed", "vendor", plan.Vendor, "url", plan.StartURL, "error", err)
		outcome = outcomeOf(err)
		return nil, err
	}
	outcome = engine.Succeeded
	h.Elapsed = time.Since(start)

	slog.Info("harvest complete",
		"vendor", plan.Vendor,
		"records", len(h.Records),
		"pages", len(h.Visited),
		"strategy", h.Strategy,
		"truncated", h.Truncated,
		"elapsed", h.Elapsed,
	)
	return h, nil
}

// single harvests a vendor whose results accumulate on one page.
func (s *Scraper) single(
	ctx, hctx context.Context,
	sess browser.Session,
	ex extract.Extractor,
	plan Plan,
	prof Profile,
) (*Harvest, error) {
	navErr := s.navigate(hctx, sess, plan.StartURL)
	if err := s.ensureCommitted(ctx, sess, navErr); err != nil {
		return nil, err
	}

	s.interactor.Settle(hctx, sess, prof, true)
	if err := ctx.Err(); err != nil {
		return nil, categorizeError(err, "search canceled")
	}

	res, err := s.snapshot(ctx, sess, ex, plan)
	if err != nil {
		return nil, err
	}
	return &Harvest{
		Records:   res.Records,
		Visited:   []string{plan.StartURL},
		Strategy:  res.Strategy,
		Truncated: hctx.Err() != nil,
	}, nil
}

// navigate loads url with its own bounded timeout. The error is returned
// for the caller to inspect but is otherwise non-fatal: slow catalogs
// often time out while the result DOM is already usable.
func (s *Scraper) navigate(ctx context.Context, sess browser.Session, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	err := sess.Navigate(navCtx, url)
	if err != nil {
		slog.Debug("navigation did not complete cleanly", "url", url, "error", err)
	}
	return err
}

// ensureCommitted fails the harvest when the first navigation never left
// about:blank or landed on a browser error page.
func (s *Scraper) ensureCommitted(ctx context.Context, sess browser.Session, navErr error) error {
	if err := ctx.Err(); err != nil {
		return categorizeError(err, "search canceled")
	}

	lctx, cancel := s.detached(ctx)
	defer cancel()
	loc, err := sess.Location(lctx)
	if err == nil && browser.Committed(loc) {
		return nil
	}
	if navErr == nil {
		navErr = err
	}
	return categorizeError(navErr, "catalog page never loaded")
}

// snapshot captures the rendered DOM and runs the extractor. It runs on a
// fresh deadline so a fired watchdog still yields what is on the page.
func (s *Scraper) snapshot(ctx context.Context, sess browser.Session, ex extract.Extractor, plan Plan) (extract.Result, error) {
	sctx, cancel := s.detached(ctx)
	defer cancel()

	raw, err := sess.HTML(sctx)
	if err != nil {
		return extract.Result{}, models.NewSearchError(
			models.ErrCodeFetchFailed,
			"failed to capture page snapshot",
			err,
		)
	}
	doc, err := extract.Parse(raw)
	if err != nil {
		return extract.Result{}, models.NewSearchError(
			models.ErrCodeFetchFailed,
			"failed to parse page snapshot",
			err,
		)
	}
	return ex.Extract(doc, plan.Target, plan.Species), nil
}

// detached returns a context that ignores the harvest watchdog but keeps
// ctx's values, bounded by SnapshotTimeout.
func (s *Scraper) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SnapshotTimeout)
}

// outcomeOf reports a failed harvest to the gate. Only browser,
// navigation and snapshot failures count against browser health.
func outcomeOf(err error) engine.Outcome {
	var se *models.SearchError
	if !errors.As(err, &se) {
		return engine.Abandoned
	}
	switch se.Code {
	case models.ErrCodeBrowserCrash, models.ErrCodeNavigation, models.ErrCodeFetchFailed:
		return engine.Failed
	default:
		return engine.Abandoned
	}
}

// categorizeError wraps raw errors into typed SearchErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.SearchError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewSearchError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewSearchError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewSearchError(models.ErrCodeNavigation, msg, err)
	}
}

// asSearchError keeps an existing SearchError, categorizes context errors
// and wraps anything else with code.
func asSearchError(err error, code, msg string) *models.SearchError {
	var se *models.SearchError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return categorizeError(err, msg)
	default:
		return models.NewSearchError(code, msg, err)
	}
}
