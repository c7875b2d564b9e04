package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "checkout-outbox", cfg.KafkaTopic)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "timestamp", cfg.OrderNumberStrategy)
	assert.Equal(t, uint64(100), cfg.MongoMaxPoolSize)
	assert.Equal(t, uint64(10), cfg.MongoMinPoolSize)
	assert.Equal(t, 10*time.Second, cfg.MongoConnectTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://u:p@db:5432/looprex?sslmode=disable")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("PRODUCTS_API_URL", "http://products:8083")
	t.Setenv("MONGO_MAX_POOL_SIZE", "25")
	t.Setenv("MONGO_MIN_POOL_SIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, "http://products:8083", cfg.ProductsAPIURL)
	assert.Equal(t, uint64(25), cfg.MongoMaxPoolSize)
	assert.Equal(t, uint64(5), cfg.MongoMinPoolSize)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("HTTP_PORT", "http")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	t.Setenv("STUCK_AFTER", "-1m")
	t.Setenv("MONGO_MAX_POOL_SIZE", "4")
	t.Setenv("MONGO_MIN_POOL_SIZE", "8")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "HTTP_PORT")
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
	assert.Contains(t, err.Error(), "STUCK_AFTER")
	assert.Contains(t, err.Error(), "MONGO_MIN_POOL_SIZE")
}
