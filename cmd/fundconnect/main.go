package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clive-Nyaga/Fund-Connect/internal/config"
	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
	"github.com/Clive-Nyaga/Fund-Connect/internal/handler"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/cache"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/fundapi"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/localstore"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/observability"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/resilience"
	"github.com/Clive-Nyaga/Fund-Connect/internal/ledger"
	"github.com/Clive-Nyaga/Fund-Connect/internal/session"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("trust_cached_identity", cfg.TrustCachedIdentity),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "fundconnect-client")
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Local storage ---
	local, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		logger.Fatal("failed to open local store", zap.Error(err))
	}
	defer local.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("fundconnect-api")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Gateway ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	credential := session.NewCredential()
	gateway := fundapi.NewClient(httpClient, cfg.APIBaseURL, credential, cb, resilienceCfg, logger)

	// --- Session store ---
	sessionStore := session.NewStore(gateway, credential, local, cfg.TrustCachedIdentity, logger)

	// --- Ledger ---
	detailCache := cache.New[domain.CampaignDetail](cfg.CacheTTL)
	led := ledger.New(gateway, sessionStore, detailCache, bulkhead, metrics, logger)

	// --- Startup warmup: restore session and load campaigns ---
	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout*2)
	g, gCtx := errgroup.WithContext(warmCtx)
	g.Go(func() error {
		if _, err := sessionStore.Restore(gCtx); err != nil {
			logger.Warn("session restore failed", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		if err := led.Refresh(gCtx); err != nil {
			logger.Warn("initial campaign refresh failed", zap.Error(err))
		}
		return nil
	})
	_ = g.Wait()
	warmCancel()

	// --- Router ---
	router := handler.NewRouter(led, sessionStore, metrics, logger)

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
