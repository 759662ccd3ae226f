package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/flowscout/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// GateReporter exposes the browser admission gate. *scraper.Scraper
// implements it.
type GateReporter interface {
	Stats() models.GateStats
	Degraded() bool
}

// Sizer reports how many result sets are cached. *cache.Cache implements it.
type Sizer interface {
	Len() int
}

// Health returns a handler for GET /api/v1/health.
//
// Status is "degraded" when recent harvests kept failing or every browser
// slot is busy with callers still queued.
func Health(g GateReporter, cc Sizer, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := g.Stats()

		status := "healthy"
		if g.Degraded() || (stats.Active >= stats.Capacity && stats.Waiting > 0) {
			status = "degraded"
		}

		size := 0
		if cc != nil {
			size = cc.Len()
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			GateStats: stats,
			CacheSize: size,
			Version:   Version,
		})
	}
}

// Usage returns a handler for GET / that prints example requests.
func Usage() gin.HandlerFunc {
	const text = "flowscout is running.\nTry:\n" +
		"/api/v1/search?vendor=BioLegend&target=CD3&species=Human&laser=Blue&limit=20&offset=0\n" +
		"/api/v1/table?vendor=BioLegend&target=CD3&species=Human&laser=Blue&limit=20&offset=0\n" +
		"/api/v1/search/all?target=CD3&species=Human&laser=Blue\n"
	return func(c *gin.Context) {
		c.String(http.StatusOK, text)
	}
}
