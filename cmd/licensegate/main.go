package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/layer-3/licensegate"
	"github.com/layer-3/licensegate/adapters/events"
	"github.com/layer-3/licensegate/adapters/store"
	"github.com/layer-3/licensegate/adapters/tokenizer"
	"github.com/layer-3/licensegate/internal/config"
	"github.com/layer-3/licensegate/ports"
	"github.com/layer-3/licensegate/service"
	transport "github.com/layer-3/licensegate/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "licensegate",
		Usage: "serve API routes to wallets holding a product license",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{config.FileEnv},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			return run(c.Context, cfg)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rpc, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", cfg.Chain.RPCURL, err)
	}
	defer rpc.Close()

	opts := []licensegate.Option{licensegate.WithLogger(logger)}
	if cfg.Chain.ChainID != 0 {
		opts = append(opts, licensegate.WithChainID(cfg.Chain.ChainID))
	}
	if cfg.Chain.LicenseAddress != "" {
		opts = append(opts, licensegate.WithLicenseAddress(common.HexToAddress(cfg.Chain.LicenseAddress)))
	}
	client, err := licensegate.New(ctx, licensegate.ReadOnly(rpc), opts...)
	if err != nil {
		return err
	}

	signKey, err := tokenizer.LoadSigningKey(cfg.Auth.JWTKeyFile)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTKeyFile == "" {
		logger.Warn("no JWT key configured, sessions will not survive a restart")
	}

	sessionStore, publisher, closeBackends, err := backends(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackends()

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		sessionStore,
		events.NewWatermillPublisher(publisher),
		client,
		cfg.Product(),
		service.WithTTLs(cfg.Auth.ChallengeTTL, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL),
		service.WithLogger(logger),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      transport.SetupRouter(authService, client, reg, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", cfg.Server.ListenAddr,
			"chain_id", client.ChainID(),
			"license", client.LicenseAddress().Hex(),
			"product", cfg.Product().String(),
		)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// backends picks Redis for the store and event stream when configured,
// in-process implementations otherwise.
func backends(cfg *config.Config, logger *slog.Logger) (ports.Store, message.Publisher, func(), error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if cfg.Redis.URL == "" {
		logger.Info("no redis configured, using in-memory store")
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		return store.NewMemoryStore(), pubSub, func() { _ = pubSub.Close() }, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		wmLogger,
	)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	closeFn := func() {
		_ = publisher.Close()
		_ = redisClient.Close()
	}
	return store.NewRedisStore(redisClient), publisher, closeFn, nil
}
