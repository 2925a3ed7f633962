package repositories

import (
	"context"
	"time"
)

// ShortTermCache is the capped recent-turns list keyed by thread. Entries are
// write-only telemetry; no read path reconstructs context from them.
type ShortTermCache interface {
	// PushTurn prepends payload to the list at key, trims it to maxTurns
	// entries, and refreshes the TTL.
	PushTurn(ctx context.Context, key string, payload []byte, maxTurns int, ttl time.Duration) error

	// Delete removes the list at key.
	Delete(ctx context.Context, key string) error

	// Ping checks cache reachability for the health surface.
	Ping(ctx context.Context) error
}
