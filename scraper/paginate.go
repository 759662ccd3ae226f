package scraper

import (
	"context"
	"log/slog"

	"github.com/use-agent/flowscout/browser"
	"github.com/use-agent/flowscout/extract"
	"github.com/use-agent/flowscout/query"
)

// walkPages harvests a paginated catalog: page 1, 2, ... until a page
// yields no link that was not already seen, or the page ceiling is hit.
func (s *Scraper) walkPages(
	ctx, hctx context.Context,
	sess browser.Session,
	ex extract.Extractor,
	plan Plan,
	prof Profile,
) (*Harvest, error) {
	maxPages := s.cfg.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	h := &Harvest{}
	seen := make(map[string]struct{})
	for n := 1; n <= maxPages; n++ {
		pageURL := query.PageURL(plan.StartURL, n)

		// ── 1. Navigate ──────────────────────────────────────────────
		navErr := s.navigate(hctx, sess, pageURL)
		if n == 1 {
			if err := s.ensureCommitted(ctx, sess, navErr); err != nil {
				return nil, err
			}
		} else if hctx.Err() != nil {
			h.Truncated = true
			break
		}

		// ── 2. Interact ──────────────────────────────────────────────
		s.interactor.Settle(hctx, sess, prof, n == 1)
		if err := ctx.Err(); err != nil {
			return nil, categorizeError(err, "search canceled")
		}

		// ── 3. Extract ───────────────────────────────────────────────
		res, err := s.snapshot(ctx, sess, ex, plan)
		if err != nil {
			if n == 1 {
				return nil, err
			}
			slog.Warn("page snapshot failed, keeping earlier pages",
				"vendor", plan.Vendor,
				"page", n,
				"error", err,
			)
			break
		}
		h.Visited = append(h.Visited, pageURL)
		if h.Strategy == "" {
			h.Strategy = res.Strategy
		}

		// ── 4. Keep only links not seen on earlier pages ─────────────
		added := 0
		for _, r := range res.Records {
			if _, dup := seen[r.Link]; dup {
				continue
			}
			seen[r.Link] = struct{}{}
			h.Records = append(h.Records, r)
			added++
		}
		slog.Debug("page harvested",
			"vendor", plan.Vendor,
			"page", n,
			"records", len(res.Records),
			"new", added,
		)

		// A page cut short by the watchdog may simply not have rendered
		// its results yet.
		if hctx.Err() != nil {
			h.Truncated = true
			break
		}
		if added == 0 {
			break
		}
		if n == maxPages {
			slog.Warn("page ceiling reached", "vendor", plan.Vendor, "maxPages", maxPages)
		}
	}
	return h, nil
}
