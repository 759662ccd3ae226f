package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/flowscout/models"
)

// Searcher runs the search pipeline. *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
	SearchAll(ctx context.Context, req models.MultiSearchRequest) (*models.MultiSearchResponse, error)
}

// Search returns a handler for GET /api/v1/search.
//
// Orchestration flow:
//  1. Bind query parameters.
//  2. Searcher.Search → normalized, reconciled, paged response.
//  3. Respond 200, or map the error code to a status.
func Search(s Searcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.SearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, models.NewSearchError(models.ErrCodeBadParams, "invalid query parameters", err))
			return
		}

		// ── 2. Search ───────────────────────────────────────────────
		resp, err := s.Search(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		c.JSON(http.StatusOK, resp)
	}
}

// SearchAll returns a handler for GET /api/v1/search/all.
func SearchAll(s Searcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MultiSearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, models.NewSearchError(models.ErrCodeBadParams, "invalid query parameters", err))
			return
		}

		resp, err := s.SearchAll(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a SearchError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var searchErr *models.SearchError
	if !errors.As(err, &searchErr) {
		searchErr = models.NewSearchError(models.ErrCodeInternal, "internal error", err)
	}

	c.JSON(mapErrorToStatus(searchErr), models.ErrorResponse{
		Error: searchErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.SearchError) int {
	switch e.Code {
	case models.ErrCodeBadParams, models.ErrCodeUnsupported:
		return http.StatusBadRequest // 400
	case models.ErrCodeFetchFailed, models.ErrCodeNavigation, models.ErrCodeBrowserCrash:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
