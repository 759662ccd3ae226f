// Package search runs the full pipeline for one query: normalize, build the
// catalog URL, consult the cache, harvest, reconcile and page the result.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/use-agent/flowscout/cache"
	"github.com/use-agent/flowscout/models"
	"github.com/use-agent/flowscout/query"
	"github.com/use-agent/flowscout/reconcile"
	"github.com/use-agent/flowscout/scraper"
)

// Cache statuses reported on every response.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
)

// Harvester drives one vendor catalog. *scraper.Scraper implements it.
type Harvester interface {
	Harvest(ctx context.Context, plan scraper.Plan) (*scraper.Harvest, error)
}

// Service is the search pipeline. It is safe for concurrent use.
type Service struct {
	normalizer *query.Normalizer
	harvester  Harvester
	reconciler *reconcile.Engine
	cache      *cache.Cache // nil disables caching
	now        func() time.Time
}

// New creates a Service. cc may be nil.
func New(n *query.Normalizer, h Harvester, cc *cache.Cache) *Service {
	return &Service{
		normalizer: n,
		harvester:  h,
		reconciler: reconcile.New(reconcile.Options{SquashNearDuplicates: true}),
		cache:      cc,
		now:        time.Now,
	}
}

// Search answers one query.
//
// Orchestration flow (numbered steps match the inline comments):
//
//  1. Normalize the raw parameters and apply paging defaults.
//  2. Resolve the start URL (built, or the validated override).
//  3. Cache lookup, skipped for override URLs.
//  4. Harvest + reconcile on a miss.
//  5. Cache store, skipped for truncated or override results.
//  6. Page the squashed (or, in audit mode, exact) list.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()

	// ── 1. Normalize ──────────────────────────────────────────────────
	req.Defaults()
	q, err := s.normalizer.Normalize(req.Vendor, req.Target, req.Species, req.Laser)
	if err != nil {
		return nil, err
	}
	q.OverrideURL = req.OverrideURL

	// ── 2. Start URL ──────────────────────────────────────────────────
	startURL, err := query.StartURL(q)
	if err != nil {
		return nil, err
	}

	// ── 3. Cache lookup ───────────────────────────────────────────────
	key := cache.KeyFor(q)
	status := CacheBypass
	if s.cache != nil && q.OverrideURL == "" {
		status = CacheMiss
	}

	var (
		set       *models.ResultSet
		harvestMs int64
	)
	if status == CacheMiss {
		if cached, ok := s.cache.Get(key); ok {
			set, status = cached, CacheHit
		}
	}

	// ── 4. Harvest + reconcile ────────────────────────────────────────
	if set == nil {
		harvestStart := time.Now()
		set, err = s.run(ctx, q, startURL)
		harvestMs = time.Since(harvestStart).Milliseconds()
		if err != nil {
			return nil, err
		}

		// ── 5. Cache store ────────────────────────────────────────────
		if status == CacheMiss && !set.Truncated {
			s.cache.Set(key, set)
		}
	}

	// ── 6. Page ───────────────────────────────────────────────────────
	rows := set.Records
	if req.Audit {
		rows = set.Exact
	}
	resp := &models.SearchResponse{
		Total:       len(rows),
		Limit:       req.Limit,
		Offset:      req.Offset,
		Rows:        Paginate(rows, req.Limit, req.Offset),
		CacheStatus: status,
	}
	if req.Debug {
		resp.Debug = &models.DebugInfo{
			StartURL:   startURL,
			SourceURLs: set.SourceURLs,
			Strategy:   set.Strategy,
			Squashed:   set.Squashed,
			Audit:      req.Audit,
			Truncated:  set.Truncated,
			Timing: models.TimingInfo{
				TotalMs:   time.Since(start).Milliseconds(),
				HarvestMs: harvestMs,
			},
		}
	}

	slog.Info("search served",
		"vendor", q.Vendor,
		"target", q.Target,
		"species", q.Species,
		"laser", q.Laser,
		"cache", status,
		"total", resp.Total,
		"rows", len(resp.Rows),
	)
	return resp, nil
}

// run harvests and reconciles one query into a fresh ResultSet.
func (s *Service) run(ctx context.Context, q models.Query, startURL string) (*models.ResultSet, error) {
	h, err := s.harvester.Harvest(ctx, scraper.Plan{
		Vendor:   q.Vendor,
		StartURL: startURL,
		Target:   q.Target,
		Species:  q.Species,
	})
	if err != nil {
		return nil, err
	}

	out := s.reconciler.Reconcile(h.Records)
	if out.Rejected > 0 {
		slog.Debug("records rejected by reconciliation",
			"vendor", q.Vendor,
			"rejected", out.Rejected,
			"duplicates", out.Duplicates,
		)
	}
	return &models.ResultSet{
		Records:    out.Records,
		Exact:      out.Exact,
		SourceURLs: h.Visited,
		Strategy:   h.Strategy,
		Squashed:   out.Squashed,
		Truncated:  h.Truncated,
		CreatedAt:  s.now(),
	}, nil
}

// SearchAll runs the same target/species/laser against every vendor
// concurrently. A vendor's failure is reported in its own slot; an error is
// returned only when every vendor rejected the parameters.
func (s *Service) SearchAll(ctx context.Context, req models.MultiSearchRequest) (*models.MultiSearchResponse, error) {
	var (
		mu   sync.Mutex
		resp = &models.MultiSearchResponse{
			Vendors: make(map[models.Vendor]*models.SearchResponse, len(models.Vendors)),
		}
		clientErrs []error
	)

	var g errgroup.Group
	for _, v := range models.Vendors {
		g.Go(func() error {
			r, err := s.Search(ctx, models.SearchRequest{
				Vendor:  string(v),
				Target:  req.Target,
				Species: req.Species,
				Laser:   req.Laser,
				Limit:   req.Limit,
				Audit:   req.Audit,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r = &models.SearchResponse{Error: detailOf(err)}
				var se *models.SearchError
				if errors.As(err, &se) && se.IsClientError() {
					clientErrs = append(clientErrs, err)
				}
			}
			resp.Vendors[v] = r
			resp.Total += r.Total
			return nil
		})
	}
	_ = g.Wait()

	if len(clientErrs) == len(models.Vendors) {
		return nil, clientErrs[0]
	}
	return resp, nil
}

func detailOf(err error) *models.ErrorDetail {
	var se *models.SearchError
	if errors.As(err, &se) {
		return se.ToDetail()
	}
	return models.NewSearchError(models.ErrCodeInternal, err.Error(), err).ToDetail()
}

// Paginate returns records[offset : offset+limit], clamped to the slice.
// limit is clamped to [models.MinLimit, models.MaxLimit] and a negative
// offset is treated as zero. The result is never nil.
func Paginate(records []models.Record, limit, offset int) []models.Record {
	limit = models.ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []models.Record{}
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	page := make([]models.Record, end-offset)
	copy(page, records[offset:end])
	return page
}
