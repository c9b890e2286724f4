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
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/stormlens/tileindex/internal/config"
	dbRedis "github.com/stormlens/tileindex/internal/db/redis"
	logpkg "github.com/stormlens/tileindex/internal/logger"
	"github.com/stormlens/tileindex/internal/metrics"
	metadatarepo "github.com/stormlens/tileindex/internal/repository/metadata"
	vectorrepo "github.com/stormlens/tileindex/internal/repository/vector"
	chiTransport "github.com/stormlens/tileindex/internal/transport/chi"
	"github.com/stormlens/tileindex/internal/transport/fetch"
	openaiEmb "github.com/stormlens/tileindex/internal/transport/openai"
	healthuc "github.com/stormlens/tileindex/internal/usecase/health"
	indexinguc "github.com/stormlens/tileindex/internal/usecase/indexing"
	searchuc "github.com/stormlens/tileindex/internal/usecase/search"
	statsuc "github.com/stormlens/tileindex/internal/usecase/stats"
	"github.com/stormlens/tileindex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tileindex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIndexingMetrics()

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	fetcher := fetch.New(&fetch.Config{
		Timeout:    time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		MaxBytes:   cfg.Fetch.MaxBytes,
		Logger:     logger,
	})

	metaRepo := metadatarepo.New(store, cfg.Storage.KeyPrefix)
	vecRepo := vectorrepo.New(store, cfg.Storage.KeyPrefix)

	if err := metaRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure metadata index", zap.Error(err))
	}
	if err := vecRepo.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	logger.Info("Indexes ready")

	indexSvc := indexinguc.New(metaRepo, vecRepo, embedder, fetcher, cfg.Security.AllowedHosts)
	searchSvc := searchuc.New(vecRepo, embedder, searchuc.Config{
		MaxResults:    cfg.Search.MaxResults,
		DefaultK:      cfg.Search.DefaultK,
		ROIMultiplier: cfg.Search.ROIMultiplier,
	})
	healthSvc := healthuc.New(store, vecRepo, embedder)
	statsSvc := statsuc.New(vecRepo, metaRepo)

	server := chiTransport.NewServer(indexSvc, searchSvc, healthSvc, statsSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Index-Token"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware())

	opts := chiTransport.RouteOptions{
		IndexAuth: chiTransport.IndexAuthMiddleware(cfg.Security.IndexTokens),
	}
	if cfg.RateLimit.SearchPerMin > 0 {
		opts.SearchLimit = httprate.LimitByIP(cfg.RateLimit.SearchPerMin, time.Minute)
	}
	if cfg.RateLimit.IndexPerMin > 0 {
		opts.IndexLimit = httprate.LimitByIP(cfg.RateLimit.IndexPerMin, time.Minute)
	}
	server.RegisterRoutes(r, opts)

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
						"error": "internal error",
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

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
