package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/config"
	"github.com/kailas-cloud/crossref/internal/db"
	dbBadger "github.com/kailas-cloud/crossref/internal/db/badger"
	"github.com/kailas-cloud/crossref/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/crossref/internal/db/redis"
	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/repository/correlation"
)

// openStore connects the correlation store backend selected by the config
// and waits until it answers.
func openStore(ctx context.Context, cfg config.CorrelationConfig, logger *zap.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	case config.DriverBadger:
		store, err = dbBadger.Open(dbBadger.Config{
			Dir:      cfg.DataDir,
			InMemory: cfg.InMemory,
		})
	default:
		return nil, fmt.Errorf("unknown correlation driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("correlation store not ready: %w", err)
	}
	logger.Info("Connected to correlation store",
		zap.String("driver", cfg.Driver),
		zap.Strings("addrs", cfg.Addrs),
		zap.String("data_dir", cfg.DataDir),
	)
	return store, nil
}

// newCorrelationRepo builds the correlation repository over store.
func newCorrelationRepo(store db.Store, cfg config.CorrelationConfig) *correlation.Repo {
	platform := domain.PlatformSingleUser
	if cfg.MultiUser() {
		platform = domain.PlatformMultiUser
	}
	return correlation.New(store, correlation.Options{
		KeyPrefix:     cfg.KeyPrefix,
		Platform:      platform,
		BulkThreshold: cfg.BulkThreshold,
	})
}

// openCaseDB connects to the case database.
func openCaseDB(ctx context.Context, cfg config.CaseDBConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := postgres.Connect(ctx, postgres.Config{
		DSN:         cfg.DSN,
		MaxConns:    cfg.MaxConns,
		ConnTimeout: time.Duration(cfg.ConnTimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connect case database: %w", err)
	}
	logger.Info("Connected to case database", zap.Int32("max_conns", cfg.MaxConns))
	return pool, nil
}
