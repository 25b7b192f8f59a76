// Package config loads daemon configuration from a YAML file with
// BETLEDGER_-prefixed environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full daemon configuration.
type Config struct {
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Provider ProviderConfig `mapstructure:"provider"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Server   ServerConfig   `mapstructure:"server"`
}

// LedgerConfig locates the persisted ledger and bankroll and tunes the
// background maintenance loops.
type LedgerConfig struct {
	Path              string        `mapstructure:"path"`
	BankrollPath      string        `mapstructure:"bankroll_path"`
	InitialBankroll   float64       `mapstructure:"initial_bankroll"`
	BackfillBatch     int           `mapstructure:"backfill_batch"`
	LookupTimeout     time.Duration `mapstructure:"lookup_timeout"`
	NormalizeInterval time.Duration `mapstructure:"normalize_interval"`
	SyncInterval      time.Duration `mapstructure:"sync_interval"`
}

// ProviderConfig configures the upstream fixture API.
type ProviderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// TelegramConfig configures settlement notifications.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
}

// ServerConfig configures the HTTP listener (metrics, health, streaming).
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from path; an empty path uses defaults and
// environment variables only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BETLEDGER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ledger.path", "./data/predictions.csv")
	v.SetDefault("ledger.bankroll_path", "./data/bankroll.json")
	v.SetDefault("ledger.initial_bankroll", 100.0)
	v.SetDefault("ledger.backfill_batch", 75)
	v.SetDefault("ledger.lookup_timeout", "10s")
	v.SetDefault("ledger.normalize_interval", "1h")
	v.SetDefault("ledger.sync_interval", "5m")

	v.SetDefault("provider.base_url", "https://v3.football.api-sports.io")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("provider.rate_limit", 5.0)
	v.SetDefault("provider.burst", 2)

	v.SetDefault("telegram.enabled", false)

	v.SetDefault("server.addr", ":8090")
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required")
	}
	if c.Ledger.BankrollPath == "" {
		return fmt.Errorf("ledger.bankroll_path is required")
	}
	if c.Ledger.BackfillBatch < 1 {
		return fmt.Errorf("ledger.backfill_batch must be at least 1")
	}
	if c.Ledger.NormalizeInterval < time.Minute {
		return fmt.Errorf("ledger.normalize_interval must be at least 1 minute")
	}
	if c.Ledger.SyncInterval < time.Minute {
		return fmt.Errorf("ledger.sync_interval must be at least 1 minute")
	}

	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Provider.RateLimit <= 0 {
		return fmt.Errorf("provider.rate_limit must be positive")
	}
	if c.Provider.Burst < 1 {
		return fmt.Errorf("provider.burst must be at least 1")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}
