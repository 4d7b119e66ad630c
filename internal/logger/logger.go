// Package logger builds the zap loggers used by the server, the CLI and the
// ingest workers, and carries them through context.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName tags every production log line.
const ServiceName = "crossref"

// environments maps a deployment name to its base zap configuration.
var environments = map[string]func() zap.Config{
	"prod":   productionConfig,
	"local":  zap.NewDevelopmentConfig,
	"dev":    zap.NewDevelopmentConfig,
	"docker": zap.NewDevelopmentConfig,
}

func productionConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.InitialFields = map[string]any{"service": ServiceName}
	// ingest emits one line per job event; sampling would drop claim failures
	cfg.Sampling = nil
	return cfg
}

// New builds a logger for env. prod writes JSON, the other environments
// write colored console output. A non-empty level (debug, info, warn,
// error) replaces the environment default.
func New(env, level string) (*zap.Logger, error) {
	base, ok := environments[env]
	if !ok {
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}
	cfg := base()

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
