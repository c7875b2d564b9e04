// Package config reads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort       string
	GRPCHealthPort string

	RedisAddr     string
	RedisPassword string

	MongoURI            string
	MongoDBName         string
	MongoMaxPoolSize    uint64
	MongoMinPoolSize    uint64
	MongoConnectTimeout time.Duration

	DBDriver string
	DBDSN    string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	ProductsAPIURL string
	ShoppingAPIURL string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	OutboxInterval   time.Duration
	RecoveryInterval time.Duration
	StuckAfter       time.Duration

	ProductCacheTTL time.Duration

	LogLevel  string
	LogFormat string

	OTelEndpoint    string
	OTelServiceName string

	OrderNumberStrategy string
}

// Load reads the configuration, falling back to local development defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		GRPCHealthPort:      getEnv("GRPC_HEALTH_PORT", "50060"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:         getEnv("MONGO_DB_NAME", "looprex"),
		DBDriver:            getEnv("DB_DRIVER", "sqlite"),
		DBDSN:               getEnv("DB_DSN", "file:checkout.db"),
		KafkaBrokers:        splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "checkout-outbox"),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "cart-cleanup"),
		ProductsAPIURL:      getEnv("PRODUCTS_API_URL", "http://localhost:8083"),
		ShoppingAPIURL:      getEnv("SHOPPING_API_URL", "http://localhost:8084"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		OTelEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelServiceName:     getEnv("OTEL_SERVICE_NAME", "looprex-storefront"),
		OrderNumberStrategy: getEnv("ORDER_NUMBER_STRATEGY", "timestamp"),
	}

	var errs []error
	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"REQUEST_TIMEOUT", 5 * time.Second, &cfg.RequestTimeout},
		{"SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.ShutdownTimeout},
		{"OUTBOX_INTERVAL", 2 * time.Second, &cfg.OutboxInterval},
		{"RECOVERY_INTERVAL", 30 * time.Second, &cfg.RecoveryInterval},
		{"STUCK_AFTER", 5 * time.Minute, &cfg.StuckAfter},
		{"PRODUCT_CACHE_TTL", time.Minute, &cfg.ProductCacheTTL},
		{"MONGO_CONNECT_TIMEOUT", 10 * time.Second, &cfg.MongoConnectTimeout},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*d.dest = v
	}

	pools := []struct {
		key  string
		def  uint64
		dest *uint64
	}{
		{"MONGO_MAX_POOL_SIZE", 100, &cfg.MongoMaxPoolSize},
		{"MONGO_MIN_POOL_SIZE", 10, &cfg.MongoMinPoolSize},
	}
	for _, p := range pools {
		v, err := getUint(p.key, p.def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*p.dest = v
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver))
	}
	for key, port := range map[string]string{"HTTP_PORT": c.HTTPPort, "GRPC_HEALTH_PORT": c.GRPCHealthPort} {
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			errs = append(errs, fmt.Errorf("%s must be a valid port, got %q", key, port))
		}
	}
	if c.MongoMaxPoolSize > 0 && c.MongoMinPoolSize > c.MongoMaxPoolSize {
		errs = append(errs, fmt.Errorf("MONGO_MIN_POOL_SIZE %d exceeds MONGO_MAX_POOL_SIZE %d", c.MongoMinPoolSize, c.MongoMaxPoolSize))
	}
	if len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS must not be empty"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getUint(key string, defaultValue uint64) (uint64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
