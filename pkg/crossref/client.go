package crossref

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/db"
	dbBadger "github.com/kailas-cloud/crossref/internal/db/badger"
	"github.com/kailas-cloud/crossref/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/crossref/internal/db/redis"
	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/datasource"
	"github.com/kailas-cloud/crossref/internal/repository/casedb"
	"github.com/kailas-cloud/crossref/internal/repository/correlation"
	natsTransport "github.com/kailas-cloud/crossref/internal/transport/nats"
	"github.com/kailas-cloud/crossref/internal/usecase/hashsync"
	healthuc "github.com/kailas-cloud/crossref/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/crossref/internal/usecase/ingest"
	occurrenceuc "github.com/kailas-cloud/crossref/internal/usecase/occurrence"
	publishuc "github.com/kailas-cloud/crossref/internal/usecase/publish"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "crossref:"
)

// Notifier delivers inbox messages for notable items.
type Notifier interface {
	PostMessage(ctx context.Context, msg InboxMessage) error
}

// caseDB is the case database as seen by the engine: the result blackboard
// plus the data source records.
type caseDB interface {
	publishuc.Blackboard
	DataSource(ctx context.Context, objID int64) (datasource.DataSource, error)
}

// Client is the crossref SDK entry point. It is safe for concurrent use.
type Client struct {
	store   db.Store
	closers []func()

	repo      *correlation.Repo
	occSvc    *occurrenceuc.Service
	ingestSvc *ingestuc.Service // nil without a case database
	healthSvc *healthuc.Service
	logger    *zap.Logger
	obs       *observer
}

// New creates a Client and connects to the correlation store, and to the
// case database and notification bus when configured. The provided context
// is used for the initial readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("crossref: correlation store required (use WithValkey, WithRedis, WithBadger or WithInMemory)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("crossref: correlation store not ready: %w", err)
	}

	var closers []func()
	fail := func(err error) (*Client, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		store.Close()
		return nil, err
	}

	var (
		cases  caseDB
		pinger healthuc.Pinger
	)
	if cfg.caseDBDSN != "" {
		pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.caseDBDSN})
		if err != nil {
			return fail(fmt.Errorf("crossref: connect case database: %w", err))
		}
		closers = append(closers, pool.Close)
		cases, pinger = casedb.New(pool), poolPinger{pool}
	}

	if cfg.notifier == nil && cfg.natsURL != "" {
		nc, err := natsTransport.Connect(cfg.natsURL)
		if err != nil {
			return fail(fmt.Errorf("crossref: %w", err))
		}
		closers = append(closers, nc.Close)
		cfg.notifier = natsTransport.NewNotifier(nc, cfg.natsSubject)
	}

	c, err := wireClient(ctx, store, cases, pinger, cfg, obs)
	if err != nil {
		return fail(err)
	}
	c.closers = closers
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case driverValkey, driverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("crossref: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case driverBadger:
		s, err := dbBadger.Open(dbBadger.Config{
			Dir:      cfg.dataDir,
			InMemory: cfg.inMemory,
		})
		if err != nil {
			return nil, fmt.Errorf("crossref: open badger store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("crossref: unknown driver %q", cfg.driver)
	}
}

// wireClient builds the services over an open store. cases and caseHealth
// can be nil.
func wireClient(
	ctx context.Context,
	store db.Store,
	cases caseDB,
	caseHealth healthuc.Pinger,
	cfg *clientConfig,
	obs *observer,
) (*Client, error) {
	platform := domain.PlatformMultiUser
	if cfg.driver == driverBadger {
		platform = domain.PlatformSingleUser
	}
	repo := correlation.New(store, correlation.Options{
		KeyPrefix: cfg.keyPrefix,
		Platform:  platform,
	})
	if err := repo.EnsureTypes(ctx); err != nil {
		return nil, fmt.Errorf("crossref: seed correlation types: %w", err)
	}

	occSvc := occurrenceuc.New(repo)

	var ingestSvc *ingestuc.Service
	if cases != nil {
		// Pass a nil interface (not a typed nil) when no notifier is set.
		var notifier publishuc.Notifier
		if cfg.notifier != nil {
			notifier = cfg.notifier
		}
		pubSvc := publishuc.New(cases, notifier).WithModuleName(cfg.moduleName)
		ingestSvc = ingestuc.New(repo, occSvc, pubSvc, hashsync.New(cases, repo), cases)
	}

	var notifierHealth healthuc.Pinger
	if p, ok := cfg.notifier.(healthuc.Pinger); ok {
		notifierHealth = p
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		store:     store,
		repo:      repo,
		occSvc:    occSvc,
		ingestSvc: ingestSvc,
		healthSvc: healthuc.New(store, caseHealth, notifierHealth),
		logger:    logger,
		obs:       obs,
	}, nil
}

// Close releases all resources. Workers must be closed first.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks correlation store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// poolPinger adapts the pgx pool to the health checker.
type poolPinger struct {
	pool *pgxpool.Pool
}

func (p poolPinger) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("case database ping: %w", err)
	}
	return nil
}
