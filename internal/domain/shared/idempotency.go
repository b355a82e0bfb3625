package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys so a replayed payment submission
// is rejected instead of posted twice.
type IdempotencyStore interface {
	// MarkProcessed records key with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)
	// Forget releases a key whose request failed so it can be retried
	Forget(ctx context.Context, key string) error

	Close() error
}
