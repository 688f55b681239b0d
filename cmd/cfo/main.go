package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/app"
	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.Server.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Server.LogLevel),
		zap.String("xero_api_url", cfg.Xero.BaseURL),
		zap.Duration("xero_http_timeout", cfg.Xero.HTTPTimeout),
		zap.Bool("redis_cache", cfg.Redis.URL != ""),
		zap.Duration("report_cache_ttl", cfg.Redis.CacheTTL),
		zap.Int("max_retries", cfg.Resilience.MaxRetries),
		zap.Duration("initial_backoff", cfg.Resilience.InitialBackoff),
		zap.Int("api_keys", len(cfg.Auth.APIKeyHashes)),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Application ---
	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to start application", zap.Error(err))
	}
	defer application.Close()

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      application.Router(cfg.Auth),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.WriteTimeout,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
