package licensegate

import (
	"errors"

	"github.com/layer-3/licensegate/contracts"
)

var (
	// ErrUnsupportedNetwork is returned when the chain id is not in the registry
	ErrUnsupportedNetwork = contracts.ErrUnsupportedNetwork

	// ErrNetworkResolution is returned when the chain id could not be read from the connection
	ErrNetworkResolution = errors.New("could not resolve network")

	// ErrSignerRequired is returned when a signing operation is called on a read-only connection
	ErrSignerRequired = errors.New("signer required")

	// ErrSupplyExhausted is returned when every license of a product has been sold
	ErrSupplyExhausted = errors.New("license supply exhausted")

	// ErrInsufficientBalance is returned when the signer cannot pay the native price
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientTokenBalance is returned when the signer cannot pay the token price
	ErrInsufficientTokenBalance = errors.New("insufficient token balance")

	// ErrInvalidSignature is returned when the recovered signer does not match the wallet
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrNonceGeneration is returned when the random source produced an unusable nonce
	ErrNonceGeneration = errors.New("nonce generation failed")

	// ErrTransactionFailed is returned when a mined transaction reverted
	ErrTransactionFailed = errors.New("transaction failed")
)
