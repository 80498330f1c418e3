package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RedisClient is the narrow interface the redis backend needs. It
// abstracts the actual client library so tests can substitute a fake.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// redisBackend implements Persistence on top of a RedisClient.
type redisBackend struct {
	client RedisClient
	prefix string
}

func newRedisBackend(client RedisClient, prefix string) *redisBackend {
	return &redisBackend{client: client, prefix: prefix}
}

func (b *redisBackend) key(ns Namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", b.prefix, ns, key)
}

// Save writes value under (namespace, key). Entries carry no TTL;
// expiry semantics live in the in-memory store.
func (b *redisBackend) Save(ctx context.Context, ns Namespace, key string, value json.RawMessage) error {
	return b.client.Set(ctx, b.key(ns, key), string(value), 0)
}

// Load reads the value under (namespace, key).
func (b *redisBackend) Load(ctx context.Context, ns Namespace, key string) (json.RawMessage, error) {
	val, err := b.client.Get(ctx, b.key(ns, key))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(val), nil
}

// Close closes the underlying client.
func (b *redisBackend) Close() error {
	return b.client.Close()
}
