package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Namespace partitions durable storage per component.
type Namespace string

const (
	NamespaceGames       Namespace = "games"
	NamespaceSessions    Namespace = "sessions"
	NamespacePermissions Namespace = "permissions"
)

// Common errors for persistence operations.
var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrInvalidConfig = errors.New("invalid persistence configuration")
	ErrUnknownDriver = errors.New("unknown persistence driver")
)

// Persistence is the durable storage collaborator. In-memory state is
// mirrored to it asynchronously; failures are logged, never rolled
// back against memory.
type Persistence interface {
	// Save writes value under (namespace, key).
	Save(ctx context.Context, ns Namespace, key string, value json.RawMessage) error

	// Load reads the value under (namespace, key). Returns
	// ErrKeyNotFound if absent.
	Load(ctx context.Context, ns Namespace, key string) (json.RawMessage, error)

	// Close releases backend resources.
	Close() error
}

type persistenceConfig struct {
	filePath    string
	redisClient *redis.Client
	redisPrefix string
	pgPool      PostgresPool
}

// PersistenceOption configures NewPersistence.
type PersistenceOption func(*persistenceConfig)

// WithFilePath sets the snapshot file for the file driver.
func WithFilePath(path string) PersistenceOption {
	return func(c *persistenceConfig) { c.filePath = path }
}

// WithRedisClient sets the client for the redis driver.
func WithRedisClient(client *redis.Client) PersistenceOption {
	return func(c *persistenceConfig) { c.redisClient = client }
}

// WithRedisPrefix sets the key prefix for the redis driver.
func WithRedisPrefix(prefix string) PersistenceOption {
	return func(c *persistenceConfig) { c.redisPrefix = prefix }
}

// WithPostgresPool sets the connection pool for the postgres driver.
func WithPostgresPool(pool PostgresPool) PersistenceOption {
	return func(c *persistenceConfig) { c.pgPool = pool }
}

// NewPersistence creates a persistence backend for the given driver.
// Supported drivers: "file", "redis", "postgres".
func NewPersistence(ctx context.Context, driver string, opts ...PersistenceOption) (Persistence, error) {
	cfg := &persistenceConfig{redisPrefix: "warden"}
	for _, opt := range opts {
		opt(cfg)
	}

	switch driver {
	case "file":
		if cfg.filePath == "" {
			return nil, ErrInvalidConfig
		}
		return NewFileBackend(cfg.filePath), nil

	case "redis":
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return newRedisBackend(goRedisClient{cfg.redisClient}, cfg.redisPrefix), nil

	case "postgres":
		if cfg.pgPool == nil {
			return nil, ErrInvalidConfig
		}
		return NewPostgresBackend(ctx, cfg.pgPool)

	default:
		return nil, ErrUnknownDriver
	}
}

// goRedisClient adapts *redis.Client to the narrow RedisClient
// interface used by the redis backend.
type goRedisClient struct {
	rdb *redis.Client
}

func (c goRedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return val, err
}

func (c goRedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c goRedisClient) Close() error {
	return c.rdb.Close()
}
