package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := loadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "planner.db", cfg.DBPath)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Equal(t, time.Hour, cfg.SchedulerInterval)
}

func TestLoadConfig_EnvironmentAndFlags(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://planner@localhost/planner")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	// Flags win over the environment
	cfg, err := loadConfig([]string{"-port=3000", "-log-format=console", "-scheduler=false", "-scheduler-interval=5m"})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "postgres://planner@localhost/planner", cfg.DatabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.False(t, cfg.SchedulerEnabled)
	assert.Equal(t, 5*time.Minute, cfg.SchedulerInterval)
}

func TestLoadConfig_RejectsNonPositiveInterval(t *testing.T) {
	_, err := loadConfig([]string{"-scheduler-interval=0s"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger(Config{LogLevel: "warn", LogFormat: "console"})
	assert.NoError(t, err)

	_, err = newLogger(Config{LogLevel: "loud", LogFormat: "json"})
	assert.Error(t, err)

	_, err = newLogger(Config{LogLevel: "info", LogFormat: "xml"})
	assert.Error(t, err)
}
