// Package config loads the gate server configuration from defaults, an
// optional YAML file and LICENSEGATE_* environment variables, in that order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/layer-3/licensegate"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LICENSEGATE"

// FileEnv names the variable holding the YAML file path when none is given.
const FileEnv = EnvPrefix + "_CONFIG"

// Config represents the complete gate server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Chain   ChainConfig   `yaml:"chain" envconfig:"CHAIN"`
	Auth    AuthConfig    `yaml:"auth" envconfig:"AUTH"`
	Redis   RedisConfig   `yaml:"redis" envconfig:"REDIS"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr" envconfig:"LISTEN_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// ChainConfig selects the node and the license contract
type ChainConfig struct {
	RPCURL string `yaml:"rpc_url" envconfig:"RPC_URL"`
	// Zero means ask the node.
	ChainID        uint64 `yaml:"chain_id" envconfig:"ID"`
	LicenseAddress string `yaml:"license_address" envconfig:"LICENSE_ADDRESS"`
	ProductID      string `yaml:"product_id" envconfig:"PRODUCT_ID"`
}

// AuthConfig contains session signing and lifetimes
type AuthConfig struct {
	// PEM encoded P-256 key; a fresh key is generated when empty.
	JWTKeyFile   string        `yaml:"jwt_key_file" envconfig:"JWT_KEY_FILE"`
	ChallengeTTL time.Duration `yaml:"challenge_ttl" envconfig:"CHALLENGE_TTL"`
	AccessTTL    time.Duration `yaml:"access_ttl" envconfig:"ACCESS_TTL"`
	RefreshTTL   time.Duration `yaml:"refresh_ttl" envconfig:"REFRESH_TTL"`
}

// RedisConfig enables the Redis store and event stream when URL is set
type RedisConfig struct {
	URL string `yaml:"url" envconfig:"URL"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":9000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Chain: ChainConfig{
			RPCURL: "http://localhost:8545",
		},
		Auth: AuthConfig{
			ChallengeTTL: 5 * time.Minute,
			AccessTTL:    5 * time.Minute,
			RefreshTTL:   5 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path names an optional YAML file; when
// empty the LICENSEGATE_CONFIG variable is consulted.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(FileEnv)
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Unset variables leave the file and default values alone
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server listen address is required")
	}
	if c.Chain.RPCURL == "" {
		return errors.New("chain rpc url is required")
	}
	if c.Chain.ProductID == "" {
		return errors.New("chain product id is required")
	}
	if _, err := licensegate.ParseProductID(c.Chain.ProductID); err != nil {
		return err
	}
	if c.Chain.LicenseAddress != "" && !common.IsHexAddress(c.Chain.LicenseAddress) {
		return fmt.Errorf("invalid license address %q", c.Chain.LicenseAddress)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	return nil
}

// Product returns the gated product id. Load has already validated it.
func (c *Config) Product() *big.Int {
	id, _ := licensegate.ParseProductID(c.Chain.ProductID)
	return id
}

// Logger builds the process logger described by the logging section
func (c *Config) Logger() *slog.Logger {
	level, _ := parseLevel(c.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
