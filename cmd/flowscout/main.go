package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/flowscout/api"
	"github.com/use-agent/flowscout/api/middleware"
	"github.com/use-agent/flowscout/browser"
	"github.com/use-agent/flowscout/cache"
	"github.com/use-agent/flowscout/config"
	"github.com/use-agent/flowscout/engine"
	"github.com/use-agent/flowscout/extract"
	"github.com/use-agent/flowscout/query"
	"github.com/use-agent/flowscout/render"
	"github.com/use-agent/flowscout/scraper"
	"github.com/use-agent/flowscout/search"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("flowscout starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxConcurrency", cfg.Browser.MaxConcurrency,
	)

	// ── 3. Query normalizer (optional alias file) ───────────────────
	aliases, err := config.LoadTargetAliases(cfg.Query.TargetAliasesFile)
	if err != nil {
		slog.Error("failed to load target aliases", "error", err)
		os.Exit(1)
	}
	normalizer := query.NewNormalizer(aliases)
	if len(aliases) > 0 {
		slog.Info("target aliases loaded", "file", cfg.Query.TargetAliasesFile, "count", len(aliases))
	}

	// ── 4. Launch the shared browser ────────────────────────────────
	driver, err := browser.Launch(cfg.Browser)
	if err != nil {
		slog.Error("failed to launch browser", "error", err)
		os.Exit(1)
	}
	defer driver.Close()

	// ── 5. Scraper behind the admission gate ────────────────────────
	gate := engine.NewGate(cfg.Browser.MaxConcurrency)
	sc := scraper.New(driver, gate, extract.DefaultRegistry(), cfg.Scraper, browser.SessionOptions{
		UserAgent:            cfg.Browser.UserAgent,
		AcceptLanguage:       cfg.Browser.AcceptLanguage,
		ViewportWidth:        cfg.Browser.ViewportWidth,
		ViewportHeight:       cfg.Browser.ViewportHeight,
		BlockedResourceTypes: cfg.Browser.BlockedResourceTypes,
		Stealth:              true,
	})

	// ── 6. Cache + search service ───────────────────────────────────
	cc := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	svc := search.New(normalizer, sc, cc)

	// ── 7. Setup router ─────────────────────────────────────────────
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	limiter := middleware.NewLimiter(cfg.RateLimit)
	go limiter.Run(rootCtx, 5*time.Minute)

	router := api.NewRouter(cfg, api.Deps{
		Searcher:  svc,
		Gate:      sc,
		Cache:     cc,
		Limiter:   limiter,
		Renderer:  render.New(),
		StartTime: time.Now(),
	})

	// ── 8. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 9. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight harvests may hold the browser for a while; give them
	// the harvest budget before forcing the server down.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.HarvestTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// driver.Close() runs via defer and kills Chrome.
	slog.Info("flowscout stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
