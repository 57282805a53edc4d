package licensegate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/layer-3/licensegate/internal/eth"
)

// LicenseCheckResult is the outcome of a challenge-response license check.
type LicenseCheckResult struct {
	HasLicense     bool
	SigningMessage string
	Signature      []byte

	// Nonce is set only when the signing message was generated by CheckLicense.
	Nonce string
}

// CheckLicense proves the wallet owns its key by signing a message and then
// checks the license balance of the recovered address. An empty
// signingMessage makes CheckLicense build one from a fresh nonce.
//
// The nonce is not tracked here. Callers that need replay protection must
// consume it on their side.
func (c *Client) CheckLicense(ctx context.Context, productID *big.Int, signingMessage string) (*LicenseCheckResult, error) {
	if !c.conn.CanSign() {
		return nil, ErrSignerRequired
	}
	address := c.conn.wallet.Address()

	var nonce string
	if signingMessage == "" {
		var err error
		if nonce, err = GenerateNonce(); err != nil {
			return nil, err
		}
		signingMessage = SigningMessage(address, nonce)
	}

	signature, err := c.conn.wallet.SignMessage(ctx, []byte(signingMessage))
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	recovered, err := eth.RecoverPersonalSigner([]byte(signingMessage), signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if recovered != address {
		return nil, fmt.Errorf("%w: signed by %s, expected %s", ErrInvalidSignature, recovered.Hex(), address.Hex())
	}

	hasLicense, err := c.HasLicense(ctx, recovered, productID)
	if err != nil {
		return nil, err
	}

	return &LicenseCheckResult{
		HasLicense:     hasLicense,
		SigningMessage: signingMessage,
		Signature:      signature,
		Nonce:          nonce,
	}, nil
}
