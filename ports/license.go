package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LicenseChecker answers whether a wallet owns a product license.
// *licensegate.Client implements it.
type LicenseChecker interface {
	HasLicense(ctx context.Context, owner common.Address, productID *big.Int) (bool, error)
}
