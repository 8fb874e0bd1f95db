package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/config"
	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/handler"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/backend"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/cache"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/observability"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("backend_api_url", cfg.BackendAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Bool("redis", cfg.RedisURL != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "flatwise-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Backend client ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("society-backend", backend.IsClientError)
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	api := backend.NewClient(httpClient, cfg.BackendAPIURL, cb, resilienceCfg, logger)

	checks := map[string]handler.HealthCheck{}

	// --- Cache ---
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.Connect(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, falling back to in-memory cache", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}
	catalogCache := newCache[[]domain.PredefinedServiceCharge](rdb, "catalog:", cfg.CacheTTL, logger)
	partiesCache := newCache[domain.FlatParties](rdb, "parties:", cfg.CacheTTL, logger)
	billsCache := newCache[[]domain.Bill](rdb, "", cfg.CacheTTL, logger)

	// --- Invitation batches ---
	store, err := sqlite.New(cfg.BatchDBPath)
	if err != nil {
		logger.Fatal("failed to open batch store", zap.String("path", cfg.BatchDBPath), zap.Error(err))
	}
	defer store.Close()
	checks["sqlite"] = store.Ping

	// --- Services ---
	state := service.NewStateStore()
	state.Subscribe(func(e service.Event) {
		logger.Debug("state changed",
			zap.String("kind", string(e.Kind)),
			zap.Int64("society_id", e.SocietyID),
			zap.Int64("user_id", e.UserID),
		)
	})

	charges := service.NewChargeService(api, catalogCache, state, metrics, logger)
	bills := service.NewBillService(api, api, partiesCache, billsCache, state, metrics,
		service.NewStatementRenderer(cfg.CurrencySymbol), cfg.MaxConcurrency, logger)

	svcs := handler.Services{
		Auth:         service.NewAuthService(api, state, cfg.JWTSecret, cfg.SessionTTL, logger),
		Charges:      charges,
		Flats:        service.NewFlatService(api, charges, partiesCache, state, metrics, logger),
		Bills:        bills,
		Payments:     service.NewPaymentService(api, bills, logger),
		Invitations:  service.NewInvitationService(api, store, state, metrics, logger),
		Registration: service.NewRegistrationService(api, api, api, logger),
		Checks:       checks,
	}

	// --- Router ---
	router := handler.NewRouter(svcs, cfg.CORSAllowedOrigins, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// newCache returns a Redis cache when a client is connected, otherwise an
// in-process one.
func newCache[T any](rdb *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) port.Cache[T] {
	if rdb != nil {
		return cache.NewRedis[T](rdb, "flatwise:"+prefix, ttl, logger)
	}
	return cache.New[T](ttl)
}
