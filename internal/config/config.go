package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	DefaultCurrency    string            `env:"DEFAULT_CURRENCY" envDefault:"USD"`
	SystemWalletOwner  string            `env:"SYSTEM_WALLET_OWNER" envDefault:"admin"`
	SystemWalletOwners map[string]string `env:"SYSTEM_WALLET_OWNERS"`

	FeeThreshold decimal.Decimal `env:"FEE_THRESHOLD" envDefault:"1000.00"`
	FeeRate      decimal.Decimal `env:"FEE_RATE" envDefault:"0.10"`

	NotifyQueue      string        `env:"NOTIFY_QUEUE" envDefault:"wallet:notifications"`
	NotifyMaxRetries uint64        `env:"NOTIFY_MAX_RETRIES" envDefault:"3"`
	NotifyRetryDelay time.Duration `env:"NOTIFY_RETRY_DELAY" envDefault:"3s"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if !domain.Currency(cfg.DefaultCurrency).IsValid() {
		return nil, fmt.Errorf("config.Load: DEFAULT_CURRENCY %q: %w", cfg.DefaultCurrency, domain.ErrInvalidCurrency)
	}
	if cfg.FeeRate.IsNegative() || cfg.FeeThreshold.IsNegative() {
		return nil, fmt.Errorf("config.Load: fee settings must not be negative")
	}
	return &cfg, nil
}

// SystemOwnerFor returns the owner name of the fee account for currency,
// preferring a per-currency override.
func (c *Config) SystemOwnerFor(currency domain.Currency) string {
	if name, ok := c.SystemWalletOwners[string(currency)]; ok && name != "" {
		return name
	}
	return c.SystemWalletOwner
}
