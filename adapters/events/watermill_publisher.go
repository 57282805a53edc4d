package events

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/licensegate/ports"
)

const (
	// LoginTopic receives an event for every licensed login
	LoginTopic = "licensegate.login"

	// LogoutTopic receives an event for every logout
	LogoutTopic = "licensegate.logout"
)

// LoginEvent represents a successful, licensed login
type LoginEvent struct {
	Address   string `json:"address"`
	ProductID string `json:"product_id"`
	SessionID string `json:"session_id"`
}

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
	}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, address common.Address, productID *big.Int, sessionID string) error {
	return p.publish(ctx, LoginTopic, sessionID, LoginEvent{
		Address:   address.Hex(),
		ProductID: hexutil.EncodeBig(productID),
		SessionID: sessionID,
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address common.Address, tokenID string) error {
	return p.publish(ctx, LogoutTopic, tokenID, LogoutEvent{
		Address: address.Hex(),
		TokenID: tokenID,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
