package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/layer-3/licensegate"
	"github.com/layer-3/licensegate/core"
	"github.com/layer-3/licensegate/ports"
)

// Default token lifetimes
const (
	DefaultChallengeTTL = 5 * time.Minute
	DefaultAccessTTL    = 5 * time.Minute
	DefaultRefreshTTL   = 5 * 24 * time.Hour // 5 days
)

// AuthService lets license holders sign in with their wallet
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	licenses  ports.LicenseChecker
	productID *big.Int
	logger    *slog.Logger

	challengeTTL time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

// Option configures an AuthService
type Option func(*AuthService)

// WithTTLs overrides the token lifetimes; zero values keep the default
func WithTTLs(challenge, access, refresh time.Duration) Option {
	return func(s *AuthService) {
		if challenge > 0 {
			s.challengeTTL = challenge
		}
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) {
		s.logger = logger
	}
}

// NewAuthService creates a new authentication service gating productID
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	eventPub ports.EventPublisher,
	licenses ports.LicenseChecker,
	productID *big.Int,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		tokenizer:    tokenizer,
		store:        store,
		eventPub:     eventPub,
		licenses:     licenses,
		productID:    new(big.Int).Set(productID),
		logger:       slog.Default(),
		challengeTTL: DefaultChallengeTTL,
		accessTTL:    DefaultAccessTTL,
		refreshTTL:   DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProductID returns the product whose license grants access
func (s *AuthService) ProductID() *big.Int {
	return new(big.Int).Set(s.productID)
}

// AccessTTL returns the lifetime of access tokens
func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

// CreateChallenge generates a new authentication challenge for address and
// returns the challenge token together with the message to sign
func (s *AuthService) CreateChallenge(address common.Address) (string, string, error) {
	nonce, err := licensegate.GenerateNonce()
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Address:   address,
		ProductID: s.productID,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	// Convert to token
	token, err := s.tokenizer.ChallengeToToken(challenge)
	if err != nil {
		return "", "", fmt.Errorf("failed to create token: %w", err)
	}

	return token, challenge.Message(), nil
}

// Login signs in a wallet that signed its challenge and holds a license
func (s *AuthService) Login(ctx context.Context, challengeToken, signature string, address common.Address) (string, string, error) {
	// Parse challenge token
	challenge, err := s.tokenizer.TokenToChallenge(challengeToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid challenge token: %w", err)
	}
	if challenge.ProductID.Cmp(s.productID) != 0 {
		return "", "", fmt.Errorf("challenge for another product: %w", core.ErrInvalidChallenge)
	}

	// Verify the signature
	if err := s.tokenizer.VerifySignature(challenge, signature, address); err != nil {
		return "", "", fmt.Errorf("signature verification failed: %w", err)
	}

	// A challenge may be redeemed once while it is valid
	ttl := time.Until(challenge.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	fresh, err := s.store.ConsumeNonce(ctx, challenge.Nonce, ttl)
	if err != nil {
		return "", "", fmt.Errorf("failed to consume nonce: %w", err)
	}
	if !fresh {
		return "", "", core.ErrChallengeUsed
	}

	if err := s.requireLicense(ctx, address); err != nil {
		return "", "", err
	}

	session := s.newSession(address)
	accessToken, refreshToken, err := s.issue(session)
	if err != nil {
		return "", "", err
	}

	if err := s.eventPub.PublishLogin(ctx, address, s.productID, session.ID); err != nil {
		// The session is already issued, the event is informational
		s.logger.Warn("failed to publish login event", "address", address.Hex(), "error", err)
	}
	s.logger.Info("wallet signed in", "address", address.Hex(), "session", session.ID)

	return accessToken, refreshToken, nil
}

// Refresh rotates the refresh token after checking the wallet still holds a license
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	// Parse and validate the refresh token
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	// Check if the token has expired
	if time.Now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	// Check if the token has been invalidated
	invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check token invalidation: %w", err)
	}

	if invalidated {
		return "", "", core.ErrTokenInvalidated
	}

	// Licenses are transferable, so the holder may have changed since login
	if err := s.requireLicense(ctx, session.Address); err != nil {
		return "", "", err
	}

	// Invalidate the old refresh token for the rest of its lifetime
	remainingTime := time.Until(session.RefreshExpiry)
	if err := s.store.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return "", "", fmt.Errorf("failed to invalidate old token: %w", err)
	}

	return s.issue(s.newSession(session.Address))
}

// Logout invalidates a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	// Parse the refresh token
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			return core.ErrTokenExpired
		}
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Invalidate the refresh token for the rest of its lifetime
	remainingTime := time.Until(session.RefreshExpiry)
	if remainingTime <= 0 {
		remainingTime = time.Hour
	}
	if err := s.store.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	// Publish logout event for cross-instance notifications
	if err := s.eventPub.PublishLogout(ctx, session.Address, session.RefreshID); err != nil {
		// The token is already invalidated in the store, which is the critical part
		s.logger.Warn("failed to publish logout event", "address", session.Address.Hex(), "error", err)
	}

	return nil
}

// ValidateAccessToken returns the session of a valid, unrevoked access token
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	// Parse and validate the access token
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	// Check if the token has expired
	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Access tokens die with the refresh token they were issued with
	if session.RefreshID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}

		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

func (s *AuthService) requireLicense(ctx context.Context, address common.Address) error {
	hasLicense, err := s.licenses.HasLicense(ctx, address, s.productID)
	if err != nil {
		return fmt.Errorf("failed to check license: %w", err)
	}
	if !hasLicense {
		return core.ErrNoLicense
	}
	return nil
}

func (s *AuthService) newSession(address common.Address) *core.Session {
	now := time.Now()
	return &core.Session{
		ID:            uuid.New().String(),
		Address:       address,
		ProductID:     s.productID,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}
}

func (s *AuthService) issue(session *core.Session) (string, string, error) {
	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}
