package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/config"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/health"
	middleware "github.com/mohammed-shakir/climate-risk-cache/internal/core/middleware"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/router"
)

// Deps are the pieces the HTTP surface is built from. A nil Metrics handler
// falls back to the default Prometheus registry.
type Deps struct {
	Handlers *router.Handlers
	Metrics  http.Handler
	Ready    map[string]health.ReadinessReporter
}

// NewHandler builds the full route table.
func NewHandler(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	metrics := d.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(d.Ready))
	r.Method(http.MethodGet, "/metrics", metrics)

	h := d.Handlers
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/risk", h.AssessRisk)
		r.Get("/risk/indices", h.RiskIndices)
		r.Get("/data/{category}", h.EnvData)
		r.Get("/interventions", h.InterventionCatalog)
		r.Get("/interventions/{type}/impact", h.InterventionImpact)

		r.Get("/cache/stats", h.CacheStats)
		r.Delete("/cache", h.FlushAll)
		r.Delete("/cache/{partition}", h.FlushPartition)
		r.Delete("/cache/{partition}/{key}", h.DeleteKey)
	})
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg, logger, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
