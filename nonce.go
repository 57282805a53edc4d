package licensegate

import (
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	nonceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// NonceLength characters over a 62 symbol alphabet carry ~101 bits.
	NonceLength = 17

	minNonceLength = 8
)

// GenerateNonce returns a random alphanumeric string for a login challenge.
func GenerateNonce() (string, error) {
	return generateNonce(NonceLength)
}

func generateNonce(length int) (string, error) {
	// bytes >= 248 would bias the modulo
	const limit = 256 - 256%len(nonceAlphabet)

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("%w: %v", ErrNonceGeneration, err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, nonceAlphabet[int(b)%len(nonceAlphabet)])
			if len(out) == length {
				break
			}
		}
	}

	if len(out) < minNonceLength {
		return "", fmt.Errorf("%w: got %d characters", ErrNonceGeneration, len(out))
	}
	return string(out), nil
}

// SigningMessage is the challenge text a wallet signs to prove it owns address.
func SigningMessage(address common.Address, nonce string) string {
	return fmt.Sprintf("Authenticate your wallet with address: %s\nNonce: %s", address.Hex(), nonce)
}
