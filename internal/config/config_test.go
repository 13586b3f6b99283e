package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("ADMIN_TOKEN", "  s3cret  ")
	t.Setenv("APP_TIMEZONE", "Pacific/Auckland")
	t.Setenv("MAINTENANCE_LOCK_TTL", "90s")
	t.Setenv("SNOWFLAKE_NODE", "12")
	t.Setenv("SEED_ON_START", "off")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "s3cret", cfg.AdminToken)
	assert.Equal(t, "Pacific/Auckland", cfg.Location().String())
	assert.Equal(t, 90*time.Second, cfg.MaintenanceLockTTL)
	assert.Equal(t, int64(12), cfg.SnowflakeNode)
	assert.False(t, cfg.SeedOnStart)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.25, cfg.OtelSamplingRatio)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MAINTENANCE_LOCK_TTL", "-5m")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "many")
	t.Setenv("OTEL_SAMPLING_RATIO", "2")

	cfg := Load()

	assert.Equal(t, 10*time.Minute, cfg.MaintenanceLockTTL)
	assert.Equal(t, 50, cfg.DBMaxOpenConn)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
}

func TestIsProductionIgnoresCase(t *testing.T) {
	assert.True(t, Config{Environment: " Production "}.IsProduction())
	assert.False(t, Config{Environment: "staging"}.IsProduction())
}
