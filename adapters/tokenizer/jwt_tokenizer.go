package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/licensegate/core"
	"github.com/layer-3/licensegate/internal/eth"
	"github.com/layer-3/licensegate/ports"
)

const AudienceChallenge = "licensegate:challenge"
const AudienceAccess = "licensegate:access"
const AudienceRefresh = "licensegate:refresh"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// ChallengeToToken converts a Challenge to a JWT token
func (j *JWTTokenizer) ChallengeToToken(challenge *core.Challenge) (string, error) {
	claims := ChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   challenge.Address.Hex(),
			ID:        challenge.ID,
			ExpiresAt: jwt.NewNumericDate(challenge.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(challenge.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceChallenge},
		},
		ProductID: hexutil.EncodeBig(challenge.ProductID),
		Nonce:     challenge.Nonce,
	}

	return j.sign(claims, "challenge")
}

// TokenToChallenge converts a JWT token to a Challenge
func (j *JWTTokenizer) TokenToChallenge(tokenStr string) (*core.Challenge, error) {
	claims := &ChallengeClaims{}
	if err := j.parse(tokenStr, claims, AudienceChallenge); err != nil {
		return nil, err
	}

	address, productID, err := subjectAndProduct(claims.Subject, claims.ProductID)
	if err != nil {
		return nil, err
	}
	if claims.Nonce == "" {
		return nil, fmt.Errorf("missing nonce: %w", core.ErrInvalidChallenge)
	}

	return &core.Challenge{
		ID:        claims.ID,
		Address:   address,
		ProductID: productID,
		Nonce:     claims.Nonce,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SessionToAccessToken converts a Session to an access JWT token
func (j *JWTTokenizer) SessionToAccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address.Hex(),
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.AccessExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		ProductID: hexutil.EncodeBig(session.ProductID),
		RefreshID: session.RefreshID,
	}

	return j.sign(claims, "access")
}

// SessionToRefreshToken converts a Session to a refresh JWT token
func (j *JWTTokenizer) SessionToRefreshToken(session *core.Session) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address.Hex(),
			ID:        session.RefreshID, // Use RefreshID as the JWT ID for the refresh token
			ExpiresAt: jwt.NewNumericDate(session.RefreshExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceRefresh},
		},
		ProductID: hexutil.EncodeBig(session.ProductID),
	}

	return j.sign(claims, "refresh")
}

// AccessTokenToSession parses an access token and returns the associated session
func (j *JWTTokenizer) AccessTokenToSession(tokenStr string) (*core.Session, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, AudienceAccess); err != nil {
		return nil, err
	}

	address, productID, err := subjectAndProduct(claims.Subject, claims.ProductID)
	if err != nil {
		return nil, err
	}

	return &core.Session{
		ID:           claims.ID,
		Address:      address,
		ProductID:    productID,
		IssuedAt:     claims.IssuedAt.Time,
		AccessExpiry: claims.ExpiresAt.Time,
		RefreshID:    claims.RefreshID,
	}, nil
}

// RefreshTokenToSession parses a refresh token and returns the associated session
func (j *JWTTokenizer) RefreshTokenToSession(tokenStr string) (*core.Session, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, AudienceRefresh); err != nil {
		return nil, err
	}

	address, productID, err := subjectAndProduct(claims.Subject, claims.ProductID)
	if err != nil {
		return nil, err
	}

	// AccessExpiry stays zero, refresh handling does not use it
	return &core.Session{
		Address:       address,
		ProductID:     productID,
		IssuedAt:      claims.IssuedAt.Time,
		RefreshExpiry: claims.ExpiresAt.Time,
		RefreshID:     claims.ID, // The JWT ID is the refresh token ID
	}, nil
}

// VerifySignature checks that address signed the challenge message with personal_sign
func (j *JWTTokenizer) VerifySignature(challenge *core.Challenge, signatureStr string, address common.Address) error {
	if challenge.Address != address {
		return fmt.Errorf("address mismatch: %w", core.ErrInvalidSignature)
	}

	sig, err := eth.DecodeSignature(signatureStr)
	if err != nil {
		return fmt.Errorf("%v: %w", err, core.ErrInvalidSignature)
	}

	verified, err := eth.VerifyPersonalSignature([]byte(challenge.Message()), sig, address)
	if err != nil {
		return fmt.Errorf("%v: %w", err, core.ErrInvalidSignature)
	}
	if !verified {
		return core.ErrInvalidSignature
	}

	return nil
}

func (j *JWTTokenizer) sign(claims jwt.Claims, kind string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return signedToken, nil
}

func (j *JWTTokenizer) parse(tokenStr string, claims jwt.Claims, audience string) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(audience), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return core.ErrTokenExpired
		}
		return fmt.Errorf("%v: %w", err, core.ErrInvalidToken)
	}

	if !token.Valid {
		return core.ErrInvalidToken
	}

	return nil
}

func subjectAndProduct(subject, productID string) (common.Address, *big.Int, error) {
	if !common.IsHexAddress(subject) {
		return common.Address{}, nil, fmt.Errorf("invalid subject: %w", core.ErrInvalidToken)
	}
	id, err := hexutil.DecodeBig(productID)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("invalid product id: %w", core.ErrInvalidToken)
	}
	return common.HexToAddress(subject), id, nil
}
