// Package licensegate checks and sells software licenses issued by the
// on-chain license contract. A license is an ERC-1155 balance under the
// product id; holding at least one token means owning the license.
package licensegate

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/licensegate/contracts"
)

// DefaultPollInterval is how often WaitMined asks the node for a receipt.
const DefaultPollInterval = 2 * time.Second

// Client is bound to one connection and one license contract. It keeps no
// mutable state and may be shared between goroutines.
type Client struct {
	conn      Connection
	chainID   uint64
	license   common.Address
	multicall common.Address

	logger       *slog.Logger
	pollInterval time.Duration
}

type options struct {
	chainID        *uint64
	licenseAddress *common.Address
	logger         *slog.Logger
	pollInterval   time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithChainID selects the registry entry and skips network detection.
func WithChainID(chainID uint64) Option {
	return func(o *options) {
		o.chainID = &chainID
	}
}

// WithLicenseAddress overrides the registry address of the license contract.
func WithLicenseAddress(address common.Address) Option {
	return func(o *options) {
		o.licenseAddress = &address
	}
}

// WithLogger sets the logger used for transaction tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPollInterval sets the receipt polling interval of WaitMined.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// New binds conn to a license contract.
//
// Without WithChainID and WithLicenseAddress the chain id is read from the
// connection. A supplied or detected chain id must be in the registry. An
// explicit license address wins over the registry entry.
func New(ctx context.Context, conn Connection, opts ...Option) (*Client, error) {
	o := options{
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pollInterval <= 0 {
		o.pollInterval = DefaultPollInterval
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.chainID == nil && o.licenseAddress == nil {
		chainID, err := detectChainID(ctx, conn)
		if err != nil {
			return nil, err
		}
		o.chainID = &chainID
	}

	c := &Client{
		conn:         conn,
		multicall:    contracts.Multicall3,
		logger:       o.logger,
		pollInterval: o.pollInterval,
	}

	if o.chainID != nil {
		network, err := contracts.Lookup(*o.chainID)
		if err != nil {
			return nil, err
		}
		c.chainID = network.ChainID
		c.license = network.License
		c.multicall = network.Multicall
	}
	if o.licenseAddress != nil {
		c.license = *o.licenseAddress
	}

	return c, nil
}

func detectChainID(ctx context.Context, conn Connection) (uint64, error) {
	if conn.provider == nil {
		return 0, fmt.Errorf("%w: no provider", ErrNetworkResolution)
	}
	id, err := conn.provider.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetworkResolution, err)
	}
	if id == nil {
		return 0, fmt.Errorf("%w: empty chain id", ErrNetworkResolution)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("%w: chainId=%s", ErrUnsupportedNetwork, id)
	}
	return id.Uint64(), nil
}

// signingChainID returns the chain id used for transaction signatures. It is
// read from the node when the client was built from a bare license address.
func (c *Client) signingChainID(ctx context.Context) (*big.Int, error) {
	if c.chainID != 0 {
		return new(big.Int).SetUint64(c.chainID), nil
	}
	id, err := detectChainID(ctx, c.conn)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(id), nil
}

// HasSigner reports whether the client can sign and send.
func (c *Client) HasSigner() bool {
	return c.conn.CanSign()
}

// LicenseAddress returns the license contract the client is bound to.
func (c *Client) LicenseAddress() common.Address {
	return c.license
}

// ChainID returns the configured chain id, or 0 when it was not resolved.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// SignerAddress returns the wallet account, or the zero address when the
// connection is read-only.
func (c *Client) SignerAddress() common.Address {
	if !c.conn.CanSign() {
		return common.Address{}
	}
	return c.conn.wallet.Address()
}
