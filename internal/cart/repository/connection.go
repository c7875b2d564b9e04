package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig describes the cart database connection. Zero pool sizes and
// timeouts fall back to the defaults below.
type MongoConfig struct {
	URI            string
	Database       string
	MaxPoolSize    uint64
	MinPoolSize    uint64
	ConnectTimeout time.Duration
}

const (
	defaultMaxPoolSize    = 100
	defaultMinPoolSize    = 10
	defaultConnectTimeout = 10 * time.Second
)

func (c MongoConfig) clientOptions() *options.ClientOptions {
	maxPool, minPool, timeout := c.MaxPoolSize, c.MinPoolSize, c.ConnectTimeout
	if maxPool == 0 {
		maxPool = defaultMaxPoolSize
	}
	if minPool == 0 {
		minPool = min(defaultMinPoolSize, maxPool)
	}
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	return options.Client().
		ApplyURI(c.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout / 2).
		SetMaxPoolSize(maxPool).
		SetMinPoolSize(minPool)
}

// ConnectMongoDB opens the cart database and checks it answers a ping.
func ConnectMongoDB(ctx context.Context, cfg MongoConfig) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, cfg.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("mongo connect %s: %w", cfg.Database, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping %s: %w", cfg.Database, err)
	}

	return client.Database(cfg.Database), nil
}
