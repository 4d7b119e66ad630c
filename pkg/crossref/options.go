package crossref

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	driverValkey = "valkey"
	driverRedis  = "redis"
	driverBadger = "badger"
)

type clientConfig struct {
	driver    string
	addrs     []string
	password  string
	dataDir   string
	inMemory  bool
	keyPrefix string

	caseDBDSN  string
	moduleName string

	notifier    Notifier
	natsURL     string
	natsSubject string

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithValkey stores correlations in a shared Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores correlations in a shared Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithBadger stores correlations in an embedded single-user store under dir.
func WithBadger(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverBadger
		c.dataDir = dir
		c.inMemory = false
	})
}

// WithInMemory keeps correlations in an embedded in-memory store. Nothing
// survives Close; meant for tests and dry runs.
func WithInMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverBadger
		c.dataDir = ""
		c.inMemory = true
	})
}

// WithKeyPrefix sets the key namespace in the correlation store.
// Default: "crossref:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithCaseDB connects the case database that receives analysis results.
// Required by StartWorker.
func WithCaseDB(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.caseDBDSN = dsn
	})
}

// WithModuleName sets the module name analysis results are posted under.
func WithModuleName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.moduleName = name
	})
}

// WithNotifier sends inbox messages for notable items through n.
func WithNotifier(n Notifier) Option {
	return optionFunc(func(c *clientConfig) {
		c.notifier = n
	})
}

// WithNATS publishes inbox messages for notable items to subject on a NATS
// server. An empty subject uses the default "crossref.inbox".
func WithNATS(url, subject string) Option {
	return optionFunc(func(c *clientConfig) {
		c.natsURL = url
		c.natsSubject = subject
	})
}

// WithLogger enables structured logging for the engine and SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
