package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ChallengeClaims combines standard claims with challenge-specific ones
type ChallengeClaims struct {
	jwt.RegisteredClaims
	ProductID string `json:"pid"`
	Nonce     string `json:"nonce"`
}

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	ProductID string `json:"pid"`
	RefreshID string `json:"rid"` // ID of the refresh token
}

// RefreshClaims carry the product so a refresh can re-check the license
type RefreshClaims struct {
	jwt.RegisteredClaims
	ProductID string `json:"pid"`
}
