package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/mediquick")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("REDIS_URL", "")
	t.Setenv("APP_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Equal(t, 14, cfg.ListingDays)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.NotEmpty(t, cfg.SessionSecret)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load()
	assert.EqualError(t, err, "POSTGRES_DSN is required")
}

func TestLoadRequiresSecretOutsideDev(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/mediquick")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/mediquick")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("LOCK_TTL", "3")
	t.Setenv("BLOCK_RETENTION", "48h")
	t.Setenv("LISTING_DAYS", "7")
	t.Setenv("REDIS_URL", "redis://app:pw@cache:6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.LockTTL)
	assert.Equal(t, 48*time.Hour, cfg.BlockRetention)
	assert.Equal(t, 7, cfg.ListingDays)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, "app", cfg.RedisUsername)
	assert.Equal(t, "pw", cfg.RedisPassword)
}

func TestZeroConfigLocation(t *testing.T) {
	var cfg Config
	assert.Equal(t, time.UTC, cfg.Location())

	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t, ist, cfg.WithLocation(ist).Location())
}
