// Package eth contains the Ethereum signing primitives shared by the
// license client and the gate service.
package eth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrMalformedSignature is returned when a signature cannot be used for
// public key recovery.
var ErrMalformedSignature = errors.New("malformed signature")

// HashPersonalMessage returns the EIP-191 digest of msg:
// keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg).
func HashPersonalMessage(msg []byte) []byte {
	return accounts.TextHash(msg)
}

// SignPersonalMessage signs msg the way eth_sign/personal_sign wallets do.
// The recovery id of the result is 27 or 28.
func SignPersonalMessage(key *ecdsa.PrivateKey, msg []byte) ([]byte, error) {
	sig, err := crypto.Sign(HashPersonalMessage(msg), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverPersonalSigner returns the address that produced sig over msg.
// Both the 0/1 and the 27/28 recovery id conventions are accepted.
func RecoverPersonalSigner(msg, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: signature must be %d bytes", ErrMalformedSignature, crypto.SignatureLength)
	}

	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	if normalized[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, fmt.Errorf("%w: invalid recovery id", ErrMalformedSignature)
	}

	pub, err := crypto.SigToPub(HashPersonalMessage(msg), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonalSignature reports whether sig over msg was made by address.
func VerifyPersonalSignature(msg, sig []byte, address common.Address) (bool, error) {
	recovered, err := RecoverPersonalSigner(msg, sig)
	if err != nil {
		return false, err
	}
	return recovered == address, nil
}

// DecodeSignature parses a 0x-prefixed hex signature.
func DecodeSignature(s string) ([]byte, error) {
	sig, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("%w: signature must be %d bytes", ErrMalformedSignature, crypto.SignatureLength)
	}
	return sig, nil
}
