package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/db/postgres"
	"github.com/kailas-cloud/crossref/internal/metrics"
	"github.com/kailas-cloud/crossref/internal/repository/casedb"
	chiTransport "github.com/kailas-cloud/crossref/internal/transport/chi"
	natsTransport "github.com/kailas-cloud/crossref/internal/transport/nats"
	"github.com/kailas-cloud/crossref/internal/usecase/hashsync"
	healthuc "github.com/kailas-cloud/crossref/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/crossref/internal/usecase/ingest"
	occurrenceuc "github.com/kailas-cloud/crossref/internal/usecase/occurrence"
	publishuc "github.com/kailas-cloud/crossref/internal/usecase/publish"
	"github.com/kailas-cloud/crossref/internal/version"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingest and lookup HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply case database migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting crossref API server",
		zap.String("version", version.String()),
		zap.String("env", environment()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("correlation_driver", cfg.Correlation.Driver),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Correlation, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	corrRepo := newCorrelationRepo(store, cfg.Correlation)
	if err := corrRepo.EnsureTypes(ctx); err != nil {
		return fmt.Errorf("seed correlation types: %w", err)
	}

	if serveMigrate {
		if err := postgres.MigrateUp(cfg.CaseDB.DSN); err != nil {
			return err
		}
		logger.Info("Case database migrations applied")
	}
	pool, err := openCaseDB(ctx, cfg.CaseDB, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	caseRepo := casedb.New(pool)

	// Pass nil interfaces (not typed nil pointers) when notifications are off.
	var (
		notifier       publishuc.Notifier
		notifierHealth healthuc.Pinger
	)
	if cfg.Notifications.Enabled {
		nc, err := natsTransport.Connect(cfg.Notifications.NatsURL)
		if err != nil {
			return err
		}
		defer nc.Close()
		n := natsTransport.NewNotifier(nc, cfg.Notifications.Subject)
		notifier, notifierHealth = n, n
		logger.Info("Connected to notification bus", zap.String("subject", cfg.Notifications.Subject))
	}

	metrics.RegisterIngestMetrics()
	metrics.RegisterHTTPMetrics()

	occSvc := occurrenceuc.New(corrRepo)
	pubSvc := publishuc.New(caseRepo, notifier).WithModuleName(cfg.Ingest.ModuleName)
	hashSvc := hashsync.New(caseRepo, corrRepo)
	ingestSvc := ingestuc.New(corrRepo, occSvc, pubSvc, hashSvc, caseRepo)
	healthSvc := healthuc.New(store, pool, notifierHealth)

	server := chiTransport.NewServer(ingestSvc, occSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.Recoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.RequestLog(logger))
	r.Use(chiTransport.BearerAuth(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	// Workers still registered flush their buffered instances before the
	// stores are closed.
	server.Shutdown(shutdownCtx)

	logger.Info("Server stopped gracefully")
	return nil
}
