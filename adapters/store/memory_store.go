package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/licensegate/ports"
)

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	usedNonces        map[string]time.Time
	mu                sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
		usedNonces:        make(map[string]time.Time),
	}
}

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidatedTokens[tokenID] = time.Now().Add(expiry)
	s.sweepLocked()

	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	// Check if the token invalidation has expired
	return time.Now().Before(expiryTime), nil
}

// ConsumeNonce records nonce as used; false means it was used before
func (s *MemoryStore) ConsumeNonce(ctx context.Context, nonce string, expiry time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if until, used := s.usedNonces[nonce]; used && now.Before(until) {
		return false, nil
	}
	s.usedNonces[nonce] = now.Add(expiry)
	s.sweepLocked()

	return true, nil
}

// sweepLocked drops entries whose expiry has passed
func (s *MemoryStore) sweepLocked() {
	now := time.Now()
	for id, until := range s.invalidatedTokens {
		if !now.Before(until) {
			delete(s.invalidatedTokens, id)
		}
	}
	for nonce, until := range s.usedNonces {
		if !now.Before(until) {
			delete(s.usedNonces, nonce)
		}
	}
}
