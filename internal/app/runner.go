// Package app wires configuration, collaborators and the HTTP surface into
// a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/curve-engine/internal/config"
	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/ledger"
	"github.com/rovshanmuradov/curve-engine/internal/metrics"
	"github.com/rovshanmuradov/curve-engine/internal/rail"
	"github.com/rovshanmuradov/curve-engine/internal/server"
	"github.com/rovshanmuradov/curve-engine/internal/settle"
	"github.com/rovshanmuradov/curve-engine/internal/storage"
	"github.com/rovshanmuradov/curve-engine/internal/storage/postgres"
)

// Runner owns the service lifecycle.
type Runner struct {
	logger *zap.Logger
	cfg    *config.Config
	store  storage.Storage
	srv    *http.Server
}

// NewRunner creates an uninitialized runner.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Initialize loads configuration and wires every component.
func (r *Runner) Initialize(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	r.cfg = cfg

	params, err := curve.ParamsFromDecimal(cfg.InitialPrice, cfg.Slope)
	if err != nil {
		return err
	}

	var paymentRail rail.PaymentRail
	if cfg.RailURL != "" {
		paymentRail = rail.NewHTTP(cfg.RailURL, r.logger)
	} else {
		r.logger.Warn("No rail_url configured, using in-memory payment rail")
		paymentRail = rail.NewMemory()
	}

	if cfg.PostgresURL != "" {
		store, err := postgres.New(cfg.PostgresURL, r.logger)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			return err
		}
		r.store = store
	} else {
		r.logger.Warn("No postgres_url configured, settlement history kept in memory")
		r.store = storage.NewMemory()
	}

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.New(registry)

	engine := settle.New(params, ledger.NewMemory(), paymentRail, r.logger,
		settle.WithStorage(r.store),
		settle.WithMetrics(engineMetrics))

	srv := server.New(engine, r.store, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), r.logger)
	r.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.logger.Info("Engine initialized",
		zap.String("initial_price", cfg.InitialPrice),
		zap.String("slope", cfg.Slope),
		zap.String("listen_addr", cfg.ListenAddr))
	return nil
}

// Run serves HTTP until the context is cancelled or a signal arrives, then
// shuts down within the configured grace period.
func (r *Runner) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		r.logger.Info("Listening", zap.String("addr", r.srv.Addr))
		if err := r.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		grace := time.Duration(r.cfg.ShutdownGrace) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		r.logger.Info("Shutting down", zap.Duration("grace", grace))
		return r.srv.Shutdown(shutdownCtx)
	})

	err := group.Wait()
	if closeErr := r.store.Close(); closeErr != nil {
		r.logger.Error("Failed to close storage", zap.Error(closeErr))
	}
	return err
}
