package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/config"
	dbRedis "github.com/kailas-cloud/facetdex/internal/db/redis"
	logpkg "github.com/kailas-cloud/facetdex/internal/logger"
	"github.com/kailas-cloud/facetdex/internal/metrics"
	indexrepo "github.com/kailas-cloud/facetdex/internal/repository/index"
	maintrepo "github.com/kailas-cloud/facetdex/internal/repository/maintenance"
	queuerepo "github.com/kailas-cloud/facetdex/internal/repository/queue"
	"github.com/kailas-cloud/facetdex/internal/repository/resultcache"
	sourcerepo "github.com/kailas-cloud/facetdex/internal/repository/source"
	chiTransport "github.com/kailas-cloud/facetdex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
	queryuc "github.com/kailas-cloud/facetdex/internal/usecase/query"
	reindexuc "github.com/kailas-cloud/facetdex/internal/usecase/reindex"
	syncuc "github.com/kailas-cloud/facetdex/internal/usecase/sync"
	"github.com/kailas-cloud/facetdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting facetdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register engine metrics explicitly (no init())
	metrics.RegisterEngineMetrics()

	// Create repositories
	idxRepo := indexrepo.New(store, logger)
	cacheRepo := resultcache.New(
		store,
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		metrics.ResultCacheTotal,
		logger,
	)
	queueRepo := queuerepo.New(store)
	maintRepo := maintrepo.New(store)
	srcRepo := sourcerepo.New(store)

	// Create use case services
	syncSvc := syncuc.New(srcRepo, idxRepo, maintRepo, cacheRepo).
		WithRetry(cfg.Sync.RetryMax, time.Duration(cfg.Sync.RetryBaseMs)*time.Millisecond)
	consumer := syncuc.NewConsumer(queueRepo, syncSvc, cfg.Sync.Workers).
		WithDequeueTimeout(time.Duration(cfg.Sync.DequeueTimeoutSec) * time.Second)
	querySvc := queryuc.New(idxRepo, srcRepo, srcRepo, cacheRepo).
		WithFacetBudget(time.Duration(cfg.Query.FacetBudgetMs) * time.Millisecond)
	reindexSvc := reindexuc.New(idxRepo, srcRepo, syncSvc, maintRepo).
		WithBatchSize(cfg.Sweeper.BatchSize).
		WithWorkers(cfg.Sweeper.Workers)
	healthSvc := healthuc.New(store, queueRepo)

	// Background workers share one cancellable context carrying the logger.
	runCtx, stopWorkers := context.WithCancel(logpkg.ContextWithLogger(ctx, logger))
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		consumer.Run(runCtx)
	}()
	go reindexSvc.Run(runCtx, time.Duration(cfg.Sweeper.IntervalSec)*time.Second)

	// Create chi server
	server := chiTransport.NewServer(querySvc, reindexSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Use(chiMiddleware.Timeout(time.Duration(cfg.Query.TimeoutSec) * time.Second))
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	stopWorkers()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		logger.Warn("Workers did not drain before shutdown deadline")
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			logger.Info("http_request",
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
