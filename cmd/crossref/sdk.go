package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/config"
	"github.com/kailas-cloud/crossref/pkg/crossref"
)

// sdkOptions maps the correlation store config onto client options.
func sdkOptions(cfg config.CorrelationConfig, logger *zap.Logger) ([]crossref.Option, error) {
	opts := []crossref.Option{
		crossref.WithKeyPrefix(cfg.KeyPrefix),
		crossref.WithLogger(logger),
	}
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		if len(cfg.Addrs) == 0 {
			return nil, fmt.Errorf("correlation.addrs is required")
		}
		if cfg.Driver == config.DriverRedis {
			opts = append(opts, crossref.WithRedis(cfg.Addrs[0], cfg.Password))
		} else {
			opts = append(opts, crossref.WithValkey(cfg.Addrs[0], cfg.Password))
		}
	case config.DriverBadger:
		if cfg.InMemory {
			opts = append(opts, crossref.WithInMemory())
		} else {
			opts = append(opts, crossref.WithBadger(cfg.DataDir))
		}
	default:
		return nil, fmt.Errorf("unknown correlation driver %q", cfg.Driver)
	}
	return opts, nil
}

// openClient connects an SDK client to the configured correlation store
// only. Operator commands need no case database.
func openClient(ctx context.Context) (*crossref.Client, *zap.Logger, error) {
	cfg, logger, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}
	opts, err := sdkOptions(cfg.Correlation, logger)
	if err != nil {
		return nil, nil, err
	}
	client, err := crossref.New(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, logger, nil
}
