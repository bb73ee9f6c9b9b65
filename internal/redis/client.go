package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Singleton instance variables
var (
	client     *redis.Client
	clientOnce sync.Once
)

// Initialize initializes the global Redis client singleton. Safe to call
// multiple times; only the first call creates the client. Must be called at
// application startup before GetClient().
func Initialize(cfg Config) {
	clientOnce.Do(func() {
		client = NewClient(cfg)
	})
}

// GetClient returns the singleton Redis client instance.
// Panics if Initialize() has not been called.
func GetClient() *redis.Client {
	if client == nil {
		panic("redis client not initialized. Call Initialize() first")
	}
	return client
}

// IsInitialized returns true if the Redis client has been initialized
func IsInitialized() bool {
	return client != nil
}

// NewClient creates a new Redis client instance (not singleton - use for
// testing/multiple instances).
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping verifies the connection with a short timeout.
func Ping(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
