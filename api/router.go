package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/flowscout/api/handler"
	"github.com/use-agent/flowscout/api/middleware"
	"github.com/use-agent/flowscout/config"
	"github.com/use-agent/flowscout/render"
)

// Deps are the collaborators the routes are wired to.
type Deps struct {
	Searcher  handler.Searcher
	Gate      handler.GateReporter
	Cache     handler.Sizer
	Limiter   *middleware.Limiter
	Renderer  *render.Renderer
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and the usage hint are outside auth so monitoring probes always work.
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/", handler.Usage())

	v1 := r.Group("/api/v1")

	// Health, no auth required.
	v1.GET("/health", handler.Health(d.Gate, d.Cache, d.StartTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	if d.Limiter != nil {
		protected.Use(d.Limiter.Middleware())
	}

	protected.GET("/search", handler.Search(d.Searcher))
	protected.GET("/search/all", handler.SearchAll(d.Searcher))
	protected.GET("/table", handler.Table(d.Searcher, d.Renderer))

	return r
}
