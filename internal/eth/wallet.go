package eth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidKey is returned when no usable private key was configured.
	ErrInvalidKey = errors.New("invalid private key")

	// ErrInvalidKeystore is returned when a keystore file cannot be decrypted.
	ErrInvalidKeystore = errors.New("invalid keystore")
)

// KeyWallet signs messages and transactions with a local private key.
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// WalletOption configures a KeyWallet.
type WalletOption func(*KeyWallet) error

// NewKeyWallet creates a wallet from the given options. Exactly one key
// source must be supplied.
func NewKeyWallet(opts ...WalletOption) (*KeyWallet, error) {
	w := &KeyWallet{}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	if w.key == nil {
		return nil, ErrInvalidKey
	}
	w.address = crypto.PubkeyToAddress(w.key.PublicKey)
	return w, nil
}

// WithPrivateKey loads the key from a hex string, with or without 0x.
func WithPrivateKey(hexKey string) WalletOption {
	return func(w *KeyWallet) error {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		w.key = key
		return nil
	}
}

// WithKey uses an already parsed key.
func WithKey(key *ecdsa.PrivateKey) WalletOption {
	return func(w *KeyWallet) error {
		if key == nil {
			return ErrInvalidKey
		}
		w.key = key
		return nil
	}
}

// WithKeystore decrypts a V3 keystore file.
func WithKeystore(path, password string) WalletOption {
	return func(w *KeyWallet) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidKeystore, err)
		}
		k, err := keystore.DecryptKey(data, password)
		if err != nil {
			return fmt.Errorf("%w: decryption failed", ErrInvalidKeystore)
		}
		w.key = k.PrivateKey
		return nil
	}
}

// Address returns the wallet account.
func (w *KeyWallet) Address() common.Address {
	return w.address
}

// SignMessage produces an EIP-191 personal signature over msg.
func (w *KeyWallet) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	return SignPersonalMessage(w.key, msg)
}

// SignTx signs tx for chainID with the latest signer the chain supports.
func (w *KeyWallet) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}
