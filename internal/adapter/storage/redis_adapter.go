package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/sales-api/internal/port"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	inFlightMarker       = "in-flight"
	defaultIdempotentTTL = 24 * time.Hour
)

// releaseScript deletes the key only while it is still in flight, so a late
// release never drops a completed response.
var releaseScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = defaultIdempotentTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) ClaimIdempotencyKey(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, inFlightMarker, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}

	return ok, nil
}

func (r *RedisAdapter) GetIdempotentResponse(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotent response: %w", err)
	}
	if string(value) == inFlightMarker {
		return nil, nil
	}

	return value, nil
}

func (r *RedisAdapter) CompleteIdempotencyKey(ctx context.Context, key string, response []byte) error {
	if err := r.client.Set(ctx, idempotencyKeyPrefix+key, response, r.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (r *RedisAdapter) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, r.client, []string{idempotencyKeyPrefix + key}, inFlightMarker).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ port.CacheRepository = (*RedisAdapter)(nil)
