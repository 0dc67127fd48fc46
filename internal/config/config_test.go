package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMemoryDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.LedgerTimeout)
	assert.Equal(t, 5*time.Second, cfg.ReserveTimeout)
	assert.Equal(t, 5*time.Second, cfg.PublishTimeout)
	assert.Equal(t, EventsNone, cfg.EventsDriver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10, cfg.PurchaseMaxAttempts)
}

func TestLoadBookingTimeouts(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BOOKING_PUBLISH_TIMEOUT", "750ms")
	t.Setenv("BOOKING_RESERVE_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.PublishTimeout)
	assert.Equal(t, 2*time.Second, cfg.ReserveTimeout)

	t.Setenv("BOOKING_PUBLISH_TIMEOUT", "-1s")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking timeouts")
}

func TestLoadMySQLRequiresConnectionSettings(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER")
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "DB_NAME")
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Config{
		StoreDriver:         "postgres",
		AccessTTLMin:        0,
		BcryptCost:          2,
		ReserveTimeout:      time.Second,
		LedgerTimeout:       time.Second,
		CompensationTimeout: time.Second,
		PublishTimeout:      time.Second,
		EventsDriver:        "sqs",
		ThrottleMaxAttempts: 1,
	}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{"STORE_DRIVER", "JWT_SECRET", "ACCESS_TOKEN_TTL_MIN", "BCRYPT_COST", "EVENTS_DRIVER"} {
		assert.Contains(t, msg, want)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "250ms")
	t.Setenv("X_LIST", " a:1 , ,b:2")

	assert.False(t, envBool("X_BOOL", true))
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, 250*time.Millisecond, envDur("X_DUR", time.Second))
	assert.Equal(t, []string{"a:1", "b:2"}, envList("X_LIST", ""))
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
}
