package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "licensectl",
		Usage: "query and buy software licenses on chain",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc",
				Usage:   "JSON-RPC endpoint of the node",
				Value:   "http://localhost:8545",
				EnvVars: []string{"LICENSEGATE_CHAIN_RPC_URL"},
			},
			&cli.Uint64Flag{
				Name:  "chain-id",
				Usage: "chain id, detected from the node when omitted",
			},
			&cli.StringFlag{
				Name:  "license",
				Usage: "license contract address, overrides the registry",
			},
			&cli.StringFlag{
				Name:    "key",
				Usage:   "hex private key of the signing wallet",
				EnvVars: []string{"LICENSECTL_KEY"},
			},
			&cli.StringFlag{
				Name:  "keystore",
				Usage: "encrypted keystore file of the signing wallet",
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "keystore password",
				EnvVars: []string{"LICENSECTL_PASSWORD"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log transaction details",
			},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelWarn
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			networksCommand,
			infoCommand,
			priceCommand,
			tokenPriceCommand,
			balanceCommand,
			checkCommand,
			purchaseCommand,
			purchaseTokenCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
