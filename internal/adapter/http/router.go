package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/trychlos/openbook-sub016/internal/adapter/http/handler"
	"github.com/trychlos/openbook-sub016/internal/adapter/http/middleware"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	EntryHandler     *handler.EntryHandler
	BalanceHandler   *handler.BalanceHandler
	ReferenceHandler *handler.ReferenceHandler
	HealthHandler    *handler.HealthHandler
	Logger           zerolog.Logger
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Operational endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Entries
		r.Route("/entries", func(r chi.Router) {
			r.Post("/validate", cfg.EntryHandler.Validate)
			r.Post("/", cfg.EntryHandler.Save)
			r.Get("/", cfg.EntryHandler.List)
			r.Get("/summary", cfg.EntryHandler.Summarize)
			r.Get("/{id}", cfg.EntryHandler.Get)
			r.Delete("/{id}", cfg.EntryHandler.Delete)
		})

		// Aggregate maintenance
		r.Post("/balances/recompute", cfg.BalanceHandler.Recompute)

		// Reference directories
		r.Route("/ledgers", func(r chi.Router) {
			r.Get("/", cfg.ReferenceHandler.ListLedgers)
			r.Get("/{mnemo}", cfg.ReferenceHandler.GetLedger)
			r.Get("/{mnemo}/consistency", cfg.BalanceHandler.Consistency)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", cfg.ReferenceHandler.ListAccounts)
			r.Get("/{number}", cfg.ReferenceHandler.GetAccount)
		})

		r.Get("/currencies", cfg.ReferenceHandler.ListCurrencies)
	})

	return r
}
