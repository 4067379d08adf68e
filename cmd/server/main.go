package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpAdapter "github.com/trychlos/openbook-sub016/internal/adapter/http"
	"github.com/trychlos/openbook-sub016/internal/adapter/http/handler"
	"github.com/trychlos/openbook-sub016/internal/adapter/http/middleware"
	postgresRepo "github.com/trychlos/openbook-sub016/internal/adapter/repository/postgres"
	redisRepo "github.com/trychlos/openbook-sub016/internal/adapter/repository/redis"
	"github.com/trychlos/openbook-sub016/internal/infrastructure/bus"
	"github.com/trychlos/openbook-sub016/internal/infrastructure/config"
	"github.com/trychlos/openbook-sub016/internal/infrastructure/logger"
	"github.com/trychlos/openbook-sub016/internal/infrastructure/metrics"
	"github.com/trychlos/openbook-sub016/internal/infrastructure/postgres"
	"github.com/trychlos/openbook-sub016/internal/infrastructure/redis"
	"github.com/trychlos/openbook-sub016/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	if cfg.MigrationsPath != "" {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Repositories; reference lookups go through the redis read-through cache
	txManager := postgresRepo.NewTxManager(pool)
	cache := redisRepo.NewCache(redisClient)
	accountRepo := redisRepo.NewCachedAccountRepository(postgresRepo.NewAccountRepository(pool), cache)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	currencyRepo := redisRepo.NewCachedCurrencyRepository(postgresRepo.NewCurrencyRepository(pool), cache)
	dossierRepo := postgresRepo.NewDossierRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(log)

	eventBus := bus.New(log)
	defer eventBus.Close()

	engineMetrics := metrics.New()

	// Use cases
	validationUC := usecase.NewValidationUseCase(accountRepo, ledgerRepo, currencyRepo, cfg.DisplayDateFormat)
	balanceUC := usecase.NewBalanceUseCase(
		accountRepo, ledgerRepo, entryRepo, txManager,
		auditRepo, eventBus, idGen, log, engineMetrics,
	)
	entryUC := usecase.NewEntryUseCase(
		txManager, entryRepo, ledgerRepo, dossierRepo,
		validationUC, balanceUC, auditRepo, eventBus, idGen, retrier, log, engineMetrics,
	)
	cascadeUC := usecase.NewCascadeUseCase(
		txManager, entryRepo, balanceUC, auditRepo, eventBus, idGen, retrier, log, engineMetrics,
	)
	summaryUC := usecase.NewSummaryUseCase(currencyRepo)

	// Handlers and router
	routerCfg := httpAdapter.RouterConfig{
		EntryHandler:     handler.NewEntryHandler(entryUC, cascadeUC, summaryUC),
		BalanceHandler:   handler.NewBalanceHandler(balanceUC),
		ReferenceHandler: handler.NewReferenceHandler(accountRepo, ledgerRepo, currencyRepo),
		HealthHandler:    handler.NewHealthHandler(pool, redisClient),
		Logger:           log,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
	}
	if cfg.RateLimitPerSecond > 0 {
		routerCfg.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}
	router := httpAdapter.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
