package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/flowscout/api/middleware"
	"github.com/use-agent/flowscout/config"
	"github.com/use-agent/flowscout/models"
	"github.com/use-agent/flowscout/render"
)

type stubSearcher struct {
	last models.SearchRequest
	err  error
}

func (s *stubSearcher) Search(_ context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.SearchResponse{
		Total:  3,
		Limit:  req.Limit,
		Offset: req.Offset,
		Rows: []models.Record{{
			Vendor: "BioLegend", ProductName: "FITC anti-human CD3 Antibody",
			Target: req.Target, Species: "Human", Conjugate: "FITC",
			Link: "https://www.biolegend.com/en-us/products/fitc-cd3",
		}},
		CacheStatus: "miss",
	}, nil
}

func (s *stubSearcher) SearchAll(_ context.Context, req models.MultiSearchRequest) (*models.MultiSearchResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.MultiSearchResponse{
		Total: 1,
		Vendors: map[models.Vendor]*models.SearchResponse{
			models.VendorBD: {Total: 1},
			models.VendorThermo: {Error: &models.ErrorDetail{
				Code: models.ErrCodeNavigation, Message: "catalog page never loaded",
			}},
		},
	}, nil
}

type stubGate struct {
	stats    models.GateStats
	degraded bool
}

func (g stubGate) Stats() models.GateStats { return g.stats }
func (g stubGate) Degraded() bool          { return g.degraded }

type stubCache int

func (c stubCache) Len() int { return int(c) }

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	return cfg
}

func newTestRouter(cfg *config.Config, s *stubSearcher, g stubGate) *gin.Engine {
	return NewRouter(cfg, Deps{
		Searcher:  s,
		Gate:      g,
		Cache:     stubCache(7),
		Limiter:   middleware.NewLimiter(config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}),
		Renderer:  render.New(),
		StartTime: time.Now(),
	})
}

func get(r http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *models.ErrorDetail {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error
}

func TestSearch_BindsQuery(t *testing.T) {
	s := &stubSearcher{}
	w := get(newTestRouter(testConfig(), s, stubGate{}),
		"/api/v1/search?vendor=BioLegend&target=CD3&species=Human&laser=Blue&limit=20&offset=40&debug=1&audit=true&override_url=https%3A%2F%2Fwww.biolegend.com%2Fx")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SearchRequest{
		Vendor: "BioLegend", Target: "CD3", Species: "Human", Laser: "Blue",
		Limit: 20, Offset: 40, Debug: true, Audit: true,
		OverrideURL: "https://www.biolegend.com/x",
	}, s.last)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Rows, 1)
	assert.Nil(t, resp.Error)
}

func TestSearch_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"bad params", models.NewSearchError(models.ErrCodeBadParams, "unknown vendor", nil), http.StatusBadRequest, models.ErrCodeBadParams},
		{"unsupported", models.NewSearchError(models.ErrCodeUnsupported, "no url", nil), http.StatusBadRequest, models.ErrCodeUnsupported},
		{"fetch failed", models.NewSearchError(models.ErrCodeFetchFailed, "snapshot", errors.New("target closed")), http.StatusBadGateway, models.ErrCodeFetchFailed},
		{"navigation", models.NewSearchError(models.ErrCodeNavigation, "never loaded", nil), http.StatusBadGateway, models.ErrCodeNavigation},
		{"crash", models.NewSearchError(models.ErrCodeBrowserCrash, "session", nil), http.StatusBadGateway, models.ErrCodeBrowserCrash},
		{"timeout", models.NewSearchError(models.ErrCodeTimeout, "slot", nil), http.StatusGatewayTimeout, models.ErrCodeTimeout},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, models.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newTestRouter(testConfig(), &stubSearcher{err: tt.err}, stubGate{}),
				"/api/v1/search?vendor=bd&target=CD3&laser=red")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestSearch_FetchFailureCarriesDetail(t *testing.T) {
	err := models.NewSearchError(models.ErrCodeFetchFailed, "failed to capture page snapshot", errors.New("target closed"))
	w := get(newTestRouter(testConfig(), &stubSearcher{err: err}, stubGate{}), "/api/v1/search?vendor=bd&target=CD3&laser=red")

	detail := decodeError(t, w)
	assert.Equal(t, "target closed", detail.Detail)
}

func TestSearch_MalformedLimit(t *testing.T) {
	s := &stubSearcher{}
	w := get(newTestRouter(testConfig(), s, stubGate{}), "/api/v1/search?vendor=bd&target=CD3&laser=red&limit=ten")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrCodeBadParams, decodeError(t, w).Code)
	assert.Empty(t, s.last.Vendor, "searcher never called")
}

func TestSearchAll(t *testing.T) {
	w := get(newTestRouter(testConfig(), &stubSearcher{}, stubGate{}), "/api/v1/search/all?target=CD3&laser=blue")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.MultiSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ErrCodeNavigation, resp.Vendors[models.VendorThermo].Error.Code)
	assert.Equal(t, 1, resp.Vendors[models.VendorBD].Total)
}

func TestTable(t *testing.T) {
	r := newTestRouter(testConfig(), &stubSearcher{}, stubGate{})

	w := get(r, "/api/v1/table?vendor=BioLegend&target=CD3&laser=Blue&limit=20")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<table")
	assert.Contains(t, w.Body.String(), "FITC anti-human CD3 Antibody")

	w = get(r, "/api/v1/table?vendor=BioLegend&target=CD3&laser=Blue&format=markdown")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.NotContains(t, w.Body.String(), "<table")

	w = get(r, "/api/v1/table?vendor=BioLegend&target=CD3&laser=Blue&format=pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		gate   stubGate
		status string
	}{
		{"idle", stubGate{stats: models.GateStats{Capacity: 4}}, "healthy"},
		{"busy but not queued", stubGate{stats: models.GateStats{Capacity: 4, Active: 4}}, "healthy"},
		{"saturated", stubGate{stats: models.GateStats{Capacity: 4, Active: 4, Waiting: 2}}, "degraded"},
		{"failing", stubGate{stats: models.GateStats{Capacity: 4}, degraded: true}, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newTestRouter(testConfig(), &stubSearcher{}, tt.gate), "/api/v1/health")
			require.Equal(t, http.StatusOK, w.Code)

			var resp models.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, 7, resp.CacheSize)
			assert.Equal(t, tt.gate.stats, resp.GateStats)
		})
	}
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"k1", "k2"}
	r := newTestRouter(cfg, &stubSearcher{}, stubGate{})
	const q = "/api/v1/search?vendor=bd&target=CD3&laser=red"

	w := get(r, q)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrCodeUnauthorized, decodeError(t, w).Code)

	assert.Equal(t, http.StatusUnauthorized, get(r, q, "X-API-Key", "nope").Code)
	assert.Equal(t, http.StatusOK, get(r, q, "X-API-Key", "k2").Code)
	assert.Equal(t, http.StatusOK, get(r, q, "Authorization", "Bearer k1").Code)

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/health").Code, "health stays open")
	assert.Equal(t, http.StatusOK, get(r, "/").Code)
}

func TestUsage(t *testing.T) {
	w := get(newTestRouter(testConfig(), &stubSearcher{}, stubGate{}), "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/search?vendor=BioLegend")
}
