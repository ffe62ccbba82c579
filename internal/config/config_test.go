package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvault/arvault/internal/currency"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Address())
	assert.Equal(t, 10*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 200*time.Millisecond, cfg.TransferMinDelay)
	assert.Equal(t, 400*time.Millisecond, cfg.TransferMaxDelay)
	assert.Equal(t, currency.Default.List(), cfg.Currencies.List())
	assert.True(t, cfg.IsDevelopment())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("PORT", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("SHUTDOWN_TIMEOUT", "1m")
	t.Setenv("IDEMPOTENCY_TTL", "90s")
	t.Setenv("TRANSFER_MIN_DELAY", "0s")
	t.Setenv("TRANSFER_MAX_DELAY", "5ms")
	t.Setenv("SUPPORTED_CURRENCIES", "usd, ars")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 90*time.Second, cfg.IdempotencyTTL)
	assert.Equal(t, time.Duration(0), cfg.TransferMinDelay)
	assert.Equal(t, 5*time.Millisecond, cfg.TransferMaxDelay)
	assert.Equal(t, []currency.Currency{currency.ARS, currency.USD}, cfg.Currencies.List())
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"shutdown seconds": {"SHUTDOWN_TIMEOUT_SECONDS", "soon"},
		"idempotency ttl":  {"IDEMPOTENCY_TTL", "forever"},
		"negative delay":   {"TRANSFER_MIN_DELAY", "-1s"},
		"inverted window":  {"TRANSFER_MIN_DELAY", "1s"},
		"currencies":       {"SUPPORTED_CURRENCIES", "DOLLARS"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("APP_ENV", "development")
			t.Setenv(kv[0], kv[1])
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnvRequiresBackendsOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/arvault")
	_, err = FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}
