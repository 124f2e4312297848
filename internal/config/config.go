// Package config loads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

type Config struct {
	ServiceName     string        `env:"SERVICE_NAME,default=coffeeshop"`
	Env             string        `env:"ENV,default=dev"`
	HTTPAddr        string        `env:"HTTP_ADDR,default=:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFile         string        `env:"LOG_FILE"`

	OwnerAddress       string `env:"OWNER_ADDRESS"`
	StoreWalletAddress string `env:"STORE_WALLET_ADDRESS"`
	ShopAddress        string `env:"SHOP_ADDRESS"`
	MenuFile           string `env:"MENU_FILE,default=menu.yaml"`

	JWTSecret      string  `env:"JWT_SECRET"`
	JWTIssuer      string  `env:"JWT_ISSUER,default=coffeeshop"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=40"`

	LedgerBackend      string `env:"LEDGER_BACKEND,default=memory"`
	DatabaseURL        string `env:"DATABASE_URL"`
	JournalDatabaseURL string `env:"JOURNAL_DATABASE_URL"`

	NATSURL       string `env:"NATS_URL"`
	NATSClusterID string `env:"NATS_CLUSTER_ID,default=test-cluster"`
	NATSClientID  string `env:"NATS_CLIENT_ID,default=coffeeshop"`
	NATSSubject   string `env:"NATS_SUBJECT,default=coffeeshop.orders"`

	TokenName     string `env:"TOKEN_NAME,default=Mock USDT"`
	TokenSymbol   string `env:"TOKEN_SYMBOL,default=USDT"`
	TokenDecimals uint8  `env:"TOKEN_DECIMALS,default=6"`

	// Parsed by Validate.
	Owner       identity.Address
	StoreWallet identity.Address
	Shop        identity.Address
}

// Load reads dotenv (missing files are ignored) and then the environment.
// Variables already set in the environment win over the file.
func Load(dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var err error
	if strings.TrimSpace(c.OwnerAddress) == "" {
		return errors.New("config: OWNER_ADDRESS is required")
	}
	if c.Owner, err = identity.ParseNonZero(c.OwnerAddress); err != nil {
		return fmt.Errorf("config: OWNER_ADDRESS: %w", err)
	}

	c.StoreWallet = c.Owner
	if c.StoreWalletAddress != "" {
		if c.StoreWallet, err = identity.ParseNonZero(c.StoreWalletAddress); err != nil {
			return fmt.Errorf("config: STORE_WALLET_ADDRESS: %w", err)
		}
	}
	if c.ShopAddress != "" {
		if c.Shop, err = identity.Parse(c.ShopAddress); err != nil {
			return fmt.Errorf("config: SHOP_ADDRESS: %w", err)
		}
	}

	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	switch c.LedgerBackend {
	case LedgerMemory:
	case LedgerPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres ledger")
		}
	default:
		return fmt.Errorf("config: unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}
	if c.JournalDatabaseURL == "" {
		c.JournalDatabaseURL = c.DatabaseURL
	}
	return nil
}

func (c *Config) Token() token.Metadata {
	return token.Metadata{Name: c.TokenName, Symbol: c.TokenSymbol, Decimals: c.TokenDecimals}
}
