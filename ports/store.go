package ports

import (
	"context"
	"time"
)

// Store keeps token invalidations and consumed challenge nonces
type Store interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)

	// ConsumeNonce marks nonce as used and reports whether it was fresh
	ConsumeNonce(ctx context.Context, nonce string, expiry time.Duration) (bool, error)
}
