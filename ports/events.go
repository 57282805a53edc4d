package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventPublisher publishes session events to other instances
type EventPublisher interface {
	PublishLogin(ctx context.Context, address common.Address, productID *big.Int, sessionID string) error
	PublishLogout(ctx context.Context, address common.Address, tokenID string) error
}
