package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/layer-3/licensegate"
	"github.com/layer-3/licensegate/contracts"
	"github.com/urfave/cli/v2"
)

var productArg = "<product-id>"

var networksCommand = &cli.Command{
	Name:  "networks",
	Usage: "list the chains the license contract is deployed on",
	Action: func(c *cli.Context) error {
		for _, id := range contracts.SupportedChainIDs() {
			n, _ := contracts.Lookup(id)
			fmt.Fprintf(c.App.Writer, "%-6d %-8s %-6s %s\n", n.ChainID, n.Name, n.Currency, n.License.Hex())
		}
		return nil
	},
}

var infoCommand = &cli.Command{
	Name:      "info",
	Usage:     "show price, supply and limit of a product",
	ArgsUsage: productArg,
	Action: func(c *cli.Context) error {
		env, err := dial(c, false)
		if err != nil {
			return err
		}
		defer env.close()

		id, err := productID(c, 0)
		if err != nil {
			return err
		}
		info, err := env.client.ProductInfo(c.Context, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "product:   %s\nprice:     %s\nsupply:    %s / %s\navailable: %t\n",
			info.ID, env.native(info.Price), info.Supply, info.Limit, info.Available())
		return nil
	},
}

var priceCommand = &cli.Command{
	Name:      "price",
	Usage:     "show the native coin price of a product",
	ArgsUsage: productArg,
	Action: func(c *cli.Context) error {
		env, err := dial(c, false)
		if err != nil {
			return err
		}
		defer env.close()

		id, err := productID(c, 0)
		if err != nil {
			return err
		}
		price, err := env.client.ProductPrice(c.Context, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, env.native(price))
		return nil
	},
}

var tokenPriceCommand = &cli.Command{
	Name:      "token-price",
	Usage:     "show the ERC-20 price of a product",
	ArgsUsage: "<token> " + productArg,
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "decimals", Usage: "token decimals for display", Value: 18},
	},
	Action: func(c *cli.Context) error {
		env, err := dial(c, false)
		if err != nil {
			return err
		}
		defer env.close()

		token, err := address(c, 0)
		if err != nil {
			return err
		}
		id, err := productID(c, 1)
		if err != nil {
			return err
		}
		price, err := env.client.ProductTokenPrice(c.Context, token, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, contracts.FormatUnits(price, int32(c.Int("decimals"))))
		return nil
	},
}

var balanceCommand = &cli.Command{
	Name:      "balance",
	Usage:     "show how many licenses of a product a wallet holds",
	ArgsUsage: "<owner> " + productArg,
	Action: func(c *cli.Context) error {
		env, err := dial(c, false)
		if err != nil {
			return err
		}
		defer env.close()

		owner, err := address(c, 0)
		if err != nil {
			return err
		}
		id, err := productID(c, 1)
		if err != nil {
			return err
		}
		balance, err := env.client.ProductBalance(c.Context, owner, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, balance)
		return nil
	},
}

var checkCommand = &cli.Command{
	Name:      "check",
	Usage:     "sign a challenge with the wallet and check it holds a license",
	ArgsUsage: productArg,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "message", Usage: "message to sign instead of a fresh challenge"},
	},
	Action: func(c *cli.Context) error {
		env, err := dial(c, true)
		if err != nil {
			return err
		}
		defer env.close()

		id, err := productID(c, 0)
		if err != nil {
			return err
		}
		res, err := env.client.CheckLicense(c.Context, id, c.String("message"))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "license:   %t\nmessage:   %q\nsignature: %s\n",
			res.HasLicense, res.SigningMessage, hexutil.Encode(res.Signature))
		if res.Nonce != "" {
			fmt.Fprintf(c.App.Writer, "nonce:     %s\n", res.Nonce)
		}
		return nil
	},
}

var waitFlag = &cli.BoolFlag{Name: "wait", Usage: "wait until the transaction is mined"}

var purchaseCommand = &cli.Command{
	Name:      "purchase",
	Usage:     "buy a license with the native coin",
	ArgsUsage: productArg + " [recipient]",
	Flags:     []cli.Flag{waitFlag},
	Action: func(c *cli.Context) error {
		env, err := dial(c, true)
		if err != nil {
			return err
		}
		defer env.close()

		id, err := productID(c, 0)
		if err != nil {
			return err
		}
		recipient, err := recipientArg(c, 1, env)
		if err != nil {
			return err
		}
		tx, err := env.client.PurchaseProduct(c.Context, id, recipient)
		if err != nil {
			return err
		}
		return report(c, env, tx)
	},
}

var purchaseTokenCommand = &cli.Command{
	Name:      "purchase-token",
	Usage:     "buy a license with an ERC-20 token, approving it first if needed",
	ArgsUsage: "<token> " + productArg + " [recipient]",
	Flags:     []cli.Flag{waitFlag},
	Action: func(c *cli.Context) error {
		env, err := dial(c, true)
		if err != nil {
			return err
		}
		defer env.close()

		token, err := address(c, 0)
		if err != nil {
			return err
		}
		id, err := productID(c, 1)
		if err != nil {
			return err
		}
		recipient, err := recipientArg(c, 2, env)
		if err != nil {
			return err
		}
		tx, err := env.client.PurchaseProductToken(c.Context, token, id, recipient)
		if err != nil {
			return err
		}
		return report(c, env, tx)
	},
}

func report(c *cli.Context, env *environment, tx *types.Transaction) error {
	fmt.Fprintln(c.App.Writer, tx.Hash().Hex())
	if !c.Bool("wait") {
		return nil
	}
	receipt, err := env.client.WaitMined(c.Context, tx)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s", licensegate.ErrTransactionFailed, tx.Hash().Hex())
	}
	fmt.Fprintf(c.App.Writer, "mined in block %s\n", receipt.BlockNumber)
	return nil
}

func productID(c *cli.Context, i int) (*big.Int, error) {
	if c.Args().Len() <= i {
		return nil, fmt.Errorf("missing %s", productArg)
	}
	return licensegate.ParseProductID(c.Args().Get(i))
}

func address(c *cli.Context, i int) (common.Address, error) {
	s := c.Args().Get(i)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// recipientArg defaults to the signing wallet.
func recipientArg(c *cli.Context, i int, env *environment) (common.Address, error) {
	if c.Args().Len() <= i {
		return env.client.SignerAddress(), nil
	}
	return address(c, i)
}
