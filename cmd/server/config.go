package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the server configuration. Flags win over environment variables.
type Config struct {
	Port        int
	DBPath      string // SQLite path, used when DatabaseURL is empty
	DatabaseURL string // PostgreSQL DSN

	LogLevel  string // debug, info, warn, error
	LogFormat string // json, console

	SchedulerEnabled  bool
	SchedulerInterval time.Duration
}

// loadConfig parses args (without the program name) on top of the environment.
func loadConfig(args []string) (Config, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	var cfg Config
	fs.IntVar(&cfg.Port, "port", 8080, "HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", "planner.db", "SQLite database path (\":memory:\" for in-memory)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (overrides -db)")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", envOr("LOG_FORMAT", "json"), "log format: json, console")
	fs.BoolVar(&cfg.SchedulerEnabled, "scheduler", true, "generate the current and next month in the background")
	fs.DurationVar(&cfg.SchedulerInterval, "scheduler-interval", time.Hour, "month scheduler check interval")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.SchedulerInterval <= 0 {
		return Config{}, fmt.Errorf("scheduler-interval must be positive, got %s", cfg.SchedulerInterval)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newLogger builds the process logger from the configured level and format.
func newLogger(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zc zap.Config
	switch cfg.LogFormat {
	case "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
