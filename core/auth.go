package core

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/licensegate"
)

// Challenge represents a login challenge for one wallet and product
type Challenge struct {
	ID        string         // Unique identifier for the challenge
	Address   common.Address // Wallet expected to sign
	ProductID *big.Int       // Product the caller wants access to
	Nonce     string         // Random nonce embedded in the signed message
	IssuedAt  time.Time      // When the challenge was created
	ExpiresAt time.Time      // When the challenge expires
}

// Message returns the text the wallet has to sign
func (c *Challenge) Message() string {
	return licensegate.SigningMessage(c.Address, c.Nonce)
}

// Session represents an authenticated, licensed wallet session
type Session struct {
	ID            string         // Unique session identifier
	Address       common.Address // Wallet of the license holder
	ProductID     *big.Int       // Product the license was checked for
	IssuedAt      time.Time      // When the session was created
	RefreshExpiry time.Time      // When the refresh capability expires
	AccessExpiry  time.Time      // When the access capability expires
	RefreshID     string         // Unique identifier for the refresh token
}
