package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"pulse/internal/identity"
)

// Redis key prefix for cached identities.
const identityKeyPrefix = "tokcache:"

// Redis is a Redis-backed Cache for deployments where multiple instances
// should share verification state. Expiry is delegated to Redis TTLs, so no
// sweep is needed. Backend failures are logged and degrade to cache misses;
// the Cache contract stays error-free and the verifier simply re-verifies.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis constructs a Redis-backed cache.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (c *Redis) Lookup(ctx context.Context, token string) (*identity.Record, bool) {
	key := identityKeyPrefix + DigestKey(token)

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "token cache read failed, treating as miss", "error", err)
		return nil, false
	}

	var rec identity.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.WarnContext(ctx, "token cache entry corrupt, evicting", "error", err)
		_ = c.client.Del(ctx, key).Err()
		return nil, false
	}
	return &rec, true
}

func (c *Redis) Store(ctx context.Context, token string, record *identity.Record) {
	raw, err := json.Marshal(record)
	if err != nil {
		c.logger.WarnContext(ctx, "token cache encode failed", "error", err)
		return
	}

	key := identityKeyPrefix + DigestKey(token)
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "token cache write failed", "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, token string) {
	key := identityKeyPrefix + DigestKey(token)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WarnContext(ctx, "token cache invalidate failed", "error", err)
	}
}
