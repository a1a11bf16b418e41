package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/config"
	dbRedis "github.com/kailas-cloud/pickpoint/internal/db/redis"
	logpkg "github.com/kailas-cloud/pickpoint/internal/logger"
	"github.com/kailas-cloud/pickpoint/internal/metrics"
	budgetrepo "github.com/kailas-cloud/pickpoint/internal/repository/budget"
	chiTransport "github.com/kailas-cloud/pickpoint/internal/transport/chi"
	"github.com/kailas-cloud/pickpoint/internal/transport/google"
	"github.com/kailas-cloud/pickpoint/internal/usecase/aggregate"
	budgetuc "github.com/kailas-cloud/pickpoint/internal/usecase/budget"
	discoveryuc "github.com/kailas-cloud/pickpoint/internal/usecase/discovery"
	healthuc "github.com/kailas-cloud/pickpoint/internal/usecase/health"
	provideruc "github.com/kailas-cloud/pickpoint/internal/usecase/provider"
	"github.com/kailas-cloud/pickpoint/internal/usecase/selection"
	sessionuc "github.com/kailas-cloud/pickpoint/internal/usecase/session"
	usageuc "github.com/kailas-cloud/pickpoint/internal/usecase/usage"
	"github.com/kailas-cloud/pickpoint/internal/version"
)

const providerName = "google"

func main() {
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

	logger.Info("Starting pickpoint API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("source", cfg.Search.Source),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterProviderMetrics()
	metrics.RegisterSessionMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Budget counters live in memory; redis only makes them survive restarts
	// and shared between instances.
	budget := budgetuc.NewTracker(
		providerName,
		cfg.Provider.Budget.DailyRequestLimit,
		cfg.Provider.Budget.MonthlyRequestLimit,
		budgetuc.Action(cfg.Provider.Budget.Action),
		logger,
	)

	var store *dbRedis.Store
	if len(cfg.Database.Addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")

		budget.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
	}

	// Provider chain: Google transport (metrics) -> Instrumented (budget, usage)
	client := google.NewClient(&google.Config{
		APIKey:        cfg.Provider.APIKey,
		BaseURL:       cfg.Provider.BaseURL,
		Region:        cfg.Provider.Region,
		Language:      cfg.Provider.Language,
		Country:       cfg.Provider.Country,
		GeocodeSuffix: cfg.Provider.GeocodeSuffix,
		Timeout:       time.Duration(cfg.Provider.TimeoutSec) * time.Second,
		Logger:        logger,
	})
	if !client.Configured() {
		logger.Warn("Places provider API key is not set, every search will return fallback suggestions")
	}
	provider := provideruc.NewInstrumented(client, providerName, budget, logger)

	search := cfg.SearchSettings()
	aggregator := aggregate.New(provider, search.NearbyRadiusM, search.MaxParallel, logger)
	discovery := discoveryuc.New(search, aggregator, provider, logger)
	validator := selection.New(provider, logger)

	sessions := sessionuc.NewRegistry(sessionuc.Deps{
		Searcher:  discovery,
		Validator: validator,
		Geocoder:  provider,
		Config:    search,
		Logger:    logger,
	}, time.Duration(cfg.Sessions.IdleTTLSec)*time.Second, cfg.Sessions.MaxSessions, logger)
	go sessions.Run(ctx, time.Minute)

	usageSvc := usageuc.New(budget)

	// Pass nil interface (not typed nil pointer!) when redis is off.
	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger, client, budget)

	server := chiTransport.NewServer(sessions, discovery, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
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
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits one canonical log line per request and echoes X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("provider_calls", ww.Header().Get("X-Provider-Calls")),
			)
		})
	}
}
