package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/flowscout/browser"
)

// Candidate locates a clickable control: every element matching Selector,
// optionally narrowed to those whose text contains Text (case-insensitive)
// or, with Exact, equals it.
type Candidate struct {
	Selector string
	Text     string
	Exact    bool
}

func (c Candidate) matches(text string) bool {
	if c.Text == "" {
		return true
	}
	text = strings.TrimSpace(text)
	if c.Exact {
		return text == c.Text
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(c.Text))
}

// ConsentCandidates dismiss cookie/consent overlays. Every candidate is
// tried in order, so stacked overlays are all dismissed.
var ConsentCandidates = []Candidate{
	{Selector: "#onetrust-accept-btn-handler"},
	{Selector: "#truste-consent-button"},
	{Selector: `button[aria-label*="Accept"]`},
	{Selector: "button", Text: "Accept All"},
	{Selector: "button", Text: "I Accept"},
	{Selector: "button", Text: "Got it"},
	{Selector: "button", Text: "OK", Exact: true},
}

// ProductsTabCandidates switch a mixed results page to its product list.
var ProductsTabCandidates = []Candidate{
	{Selector: `a[role="tab"]`, Text: "Products"},
	{Selector: `button[role="tab"]`, Text: "Products"},
	{Selector: "a", Text: "Products", Exact: true},
}

// LoadMoreCandidates reveal further results on infinite-list vendors.
var LoadMoreCandidates = []Candidate{
	{Selector: "button", Text: "Load more"},
	{Selector: "button", Text: "Load 25 more results"},
	{Selector: "button", Text: "Show more"},
}

const scrollJS = `() => window.scrollBy(0, window.innerHeight * 1.25)`

// Profile describes how one vendor's results page is brought to a
// fully-populated state.
type Profile struct {
	ProductsTab      bool
	SettleDelay      time.Duration // pause after consent, before scrolling
	IdleTimeout      time.Duration // 0 skips the network-idle wait
	ScrollPasses     int
	ScrollPause      time.Duration
	LoadMoreAttempts int
	LoadMorePause    time.Duration

	// Paginated vendors are walked page by page with PageURL.
	Paginated bool
}

// Interactor performs the page-interaction steps. Every step is bounded
// and non-fatal: failures are logged at debug level and the next step runs.
type Interactor struct {
	ClickTimeout time.Duration
	ClickPause   time.Duration
}

// NewInteractor creates an Interactor with the given per-click timeout.
func NewInteractor(clickTimeout time.Duration) *Interactor {
	return &Interactor{
		ClickTimeout: clickTimeout,
		ClickPause:   300 * time.Millisecond,
	}
}

// Settle brings a navigated page to a state where all obtainable result
// DOM is present. consent is false on follow-up pages of a paginated walk.
//
// Steps (numbered to match the inline comments):
//
//  1. Consent overlays
//  2. Products tab
//  3. Network idle
//  4. Scroll passes
//  5. Load-more attempts
func (in *Interactor) Settle(ctx context.Context, s browser.Session, p Profile, consent bool) {
	// ── 1. Consent overlays ───────────────────────────────────────────
	if consent {
		in.DismissConsent(ctx, s)
	}

	// ── 2. Products tab ───────────────────────────────────────────────
	if p.ProductsTab {
		in.SelectProductsTab(ctx, s)
	}

	// ── 3. Network idle ───────────────────────────────────────────────
	if p.IdleTimeout > 0 {
		if err := s.WaitNetworkIdle(ctx, p.IdleTimeout); err != nil {
			slog.Debug("network idle wait did not converge", "error", err)
		}
	}
	pause(ctx, p.SettleDelay)

	// ── 4. Scroll passes ──────────────────────────────────────────────
	in.Scroll(ctx, s, p.ScrollPasses, p.ScrollPause)

	// ── 5. Load-more attempts ─────────────────────────────────────────
	if p.LoadMoreAttempts > 0 {
		in.LoadMore(ctx, s, p.LoadMoreAttempts, p.LoadMorePause, p.ScrollPause)
	}
}

// DismissConsent clicks at most one element per consent candidate and
// returns how many clicks landed.
func (in *Interactor) DismissConsent(ctx context.Context, s browser.Session) int {
	return in.clickEach(ctx, s, ConsentCandidates)
}

// SelectProductsTab clicks at most one element per products-tab candidate
// and returns how many clicks landed.
func (in *Interactor) SelectProductsTab(ctx context.Context, s browser.Session) int {
	return in.clickEach(ctx, s, ProductsTabCandidates)
}

// Scroll runs passes viewport-and-a-quarter scrolls with pauseFor between
// them.
func (in *Interactor) Scroll(ctx context.Context, s browser.Session, passes int, pauseFor time.Duration) {
	for i := 0; i < passes; i++ {
		if ctx.Err() != nil {
			return
		}
		if err := s.Evaluate(ctx, scrollJS); err != nil {
			slog.Debug("scroll pass failed", "pass", i, "error", err)
		}
		pause(ctx, pauseFor)
	}
}

// LoadMore makes up to attempts passes over LoadMoreCandidates. A pass
// that clicks nothing ends the loop; two scroll passes follow every
// productive one. Returns the number of productive passes.
func (in *Interactor) LoadMore(ctx context.Context, s browser.Session, attempts int, clickPause, scrollPause time.Duration) int {
	productive := 0
	for i := 0; i < attempts; i++ {
		clicked := false
		for _, c := range LoadMoreCandidates {
			if ctx.Err() != nil {
				return productive
			}
			if in.clickAny(ctx, s, c) {
				clicked = true
				pause(ctx, clickPause)
			}
		}
		if !clicked {
			break
		}
		productive++
		in.Scroll(ctx, s, 2, scrollPause)
	}
	return productive
}

// clickEach walks every candidate in order, clicking the first matching
// element of each, with ClickPause after every click that lands.
func (in *Interactor) clickEach(ctx context.Context, s browser.Session, candidates []Candidate) int {
	clicked := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		if in.clickAny(ctx, s, c) {
			clicked++
			pause(ctx, in.ClickPause)
		}
	}
	return clicked
}

// clickAny clicks the first element matching c. Each click is bounded by
// ClickTimeout.
func (in *Interactor) clickAny(ctx context.Context, s browser.Session, c Candidate) bool {
	els, err := s.QueryAll(ctx, c.Selector)
	if err != nil {
		slog.Debug("candidate query failed", "selector", c.Selector, "error", err)
		return false
	}
	for _, el := range els {
		if c.Text != "" {
			text, err := el.Text(ctx)
			if err != nil || !c.matches(text) {
				continue
			}
		}

		clickCtx, cancel := context.WithTimeout(ctx, in.ClickTimeout)
		err := el.Click(clickCtx)
		cancel()
		if err != nil {
			slog.Debug("click failed", "selector", c.Selector, "text", c.Text, "error", err)
			continue
		}
		return true
	}
	return false
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
