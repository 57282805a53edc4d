package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/layer-3/licensegate"
	"github.com/layer-3/licensegate/contracts"
	"github.com/layer-3/licensegate/internal/eth"
	"github.com/urfave/cli/v2"
)

type environment struct {
	rpc    *ethclient.Client
	client *licensegate.Client
}

// dial connects to the node and builds a client, with the wallet from
// --key or --keystore when signing is needed.
func dial(c *cli.Context, signing bool) (*environment, error) {
	rpc, err := ethclient.DialContext(c.Context, c.String("rpc"))
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", c.String("rpc"), err)
	}

	conn := licensegate.ReadOnly(rpc)
	if signing {
		w, err := wallet(c)
		if err != nil {
			rpc.Close()
			return nil, err
		}
		conn = licensegate.Signing(rpc, w)
	}

	opts := []licensegate.Option{licensegate.WithLogger(slog.Default())}
	if id := c.Uint64("chain-id"); id != 0 {
		opts = append(opts, licensegate.WithChainID(id))
	}
	if l := c.String("license"); l != "" {
		if !common.IsHexAddress(l) {
			rpc.Close()
			return nil, fmt.Errorf("invalid license address %q", l)
		}
		opts = append(opts, licensegate.WithLicenseAddress(common.HexToAddress(l)))
	}

	client, err := licensegate.New(c.Context, conn, opts...)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	return &environment{rpc: rpc, client: client}, nil
}

func wallet(c *cli.Context) (*eth.KeyWallet, error) {
	switch {
	case c.String("key") != "":
		return eth.NewKeyWallet(eth.WithPrivateKey(c.String("key")))
	case c.String("keystore") != "":
		return eth.NewKeyWallet(eth.WithKeystore(c.String("keystore"), c.String("password")))
	default:
		return nil, errors.New("a wallet is required: pass --key or --keystore")
	}
}

func (e *environment) close() {
	e.rpc.Close()
}

// native formats an amount of the chain's coin, raw when the chain is unknown.
func (e *environment) native(amount *big.Int) string {
	n, err := contracts.Lookup(e.client.ChainID())
	if err != nil {
		return amount.String()
	}
	return n.FormatNative(amount)
}
