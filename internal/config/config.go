package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the crossref service configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Correlation   CorrelationConfig   `yaml:"correlation"`
	CaseDB        CaseDBConfig        `yaml:"casedb"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Ingest        IngestConfig        `yaml:"ingest"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Correlation store drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverBadger = "badger"
)

// CorrelationConfig holds correlation store settings.
type CorrelationConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, badger (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DataDir          string   `yaml:"data_dir"`  // badger only
	InMemory         bool     `yaml:"in_memory"` // badger only
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	BulkThreshold    int      `yaml:"bulk_threshold"` // instances per flush pipeline; 0 uses the repository default
}

// MultiUser reports whether the driver is a shared network store. Embedded
// stores refuse jobs from multi-user cases.
func (c CorrelationConfig) MultiUser() bool {
	return c.Driver == DriverValkey || c.Driver == DriverRedis
}

// CaseDBConfig holds the case database connection. Analysis results and
// data source records are read from and written to it.
type CaseDBConfig struct {
	DSN            string `yaml:"dsn"`
	MaxConns       int32  `yaml:"max_conns"`
	ConnTimeoutSec int    `yaml:"conn_timeout_sec"`
}

// NotificationsConfig holds inbox notification settings.
type NotificationsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NatsURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// IngestConfig holds ingest module settings.
type IngestConfig struct {
	ModuleName string `yaml:"module_name"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, then
// applies defaults and validates the result.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Correlation.Driver == "" {
		c.Correlation.Driver = DriverValkey
	}
	if c.Correlation.ReadinessTimeout <= 0 {
		c.Correlation.ReadinessTimeout = 10
	}
	if c.Correlation.KeyPrefix == "" {
		c.Correlation.KeyPrefix = "crossref:"
	}
	if c.CaseDB.MaxConns <= 0 {
		c.CaseDB.MaxConns = 4
	}
	if c.CaseDB.ConnTimeoutSec <= 0 {
		c.CaseDB.ConnTimeoutSec = 5
	}
	if c.Notifications.Subject == "" {
		c.Notifications.Subject = "crossref.inbox"
	}
	if c.Ingest.ModuleName == "" {
		c.Ingest.ModuleName = "Central Repository"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Correlation.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Correlation.Addrs) == 0 {
			return fmt.Errorf("correlation.addrs is required for driver %q", c.Correlation.Driver)
		}
	case DriverBadger:
		if c.Correlation.DataDir == "" && !c.Correlation.InMemory {
			return fmt.Errorf("correlation.data_dir is required unless correlation.in_memory is set")
		}
	default:
		return fmt.Errorf(
			"correlation.driver must be %q, %q or %q, got %q",
			DriverValkey, DriverRedis, DriverBadger, c.Correlation.Driver,
		)
	}
	if c.Correlation.BulkThreshold < 0 {
		return fmt.Errorf("correlation.bulk_threshold must not be negative, got %d", c.Correlation.BulkThreshold)
	}
	if c.CaseDB.DSN == "" {
		return fmt.Errorf("casedb.dsn is required")
	}
	if c.Notifications.Enabled && c.Notifications.NatsURL == "" {
		return fmt.Errorf("notifications.nats_url is required when notifications are enabled")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
