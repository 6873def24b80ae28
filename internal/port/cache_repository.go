package port

import "context"

type CacheRepository interface {
	// ClaimIdempotencyKey marks the key as in flight, returns false if it already exists
	ClaimIdempotencyKey(ctx context.Context, key string) (bool, error)

	// GetIdempotentResponse returns the stored response, or nil while the key is still in flight
	GetIdempotentResponse(ctx context.Context, key string) ([]byte, error)

	// CompleteIdempotencyKey stores the response to replay for later requests with the same key
	CompleteIdempotencyKey(ctx context.Context, key string, response []byte) error

	// ReleaseIdempotencyKey forgets the key (for retry after failure)
	ReleaseIdempotencyKey(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}
