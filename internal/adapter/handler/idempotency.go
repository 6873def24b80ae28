package handler

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/rl1809/sales-api/internal/port"
)

// storeIdempotentResponse saves body for replays of key. If the save fails
// the key is released, so a retry runs again instead of reading 409 until
// the claim expires.
func storeIdempotentResponse(ctx context.Context, cache port.CacheRepository, key string, body []byte, logger *log.Entry) {
	ctx = context.WithoutCancel(ctx)
	err := cache.CompleteIdempotencyKey(ctx, key, body)
	if err == nil {
		return
	}
	logger.WithError(err).Warn("store idempotent response")
	releaseIdempotencyKey(ctx, cache, key, logger)
}

func releaseIdempotencyKey(ctx context.Context, cache port.CacheRepository, key string, logger *log.Entry) {
	if err := cache.ReleaseIdempotencyKey(context.WithoutCancel(ctx), key); err != nil {
		logger.WithError(err).Warn("release idempotency key")
	}
}
