package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.Path != "./data/predictions.csv" {
		t.Errorf("ledger.path = %q", cfg.Ledger.Path)
	}
	if cfg.Ledger.BackfillBatch != 75 {
		t.Errorf("ledger.backfill_batch = %d, want 75", cfg.Ledger.BackfillBatch)
	}
	if cfg.Ledger.SyncInterval != 5*time.Minute {
		t.Errorf("ledger.sync_interval = %v, want 5m", cfg.Ledger.SyncInterval)
	}
	if cfg.Provider.RateLimit != 5.0 || cfg.Provider.Burst != 2 {
		t.Errorf("provider limits = %v/%d", cfg.Provider.RateLimit, cfg.Provider.Burst)
	}
	if cfg.Telegram.Enabled {
		t.Error("telegram must default to disabled")
	}
	if cfg.Server.Addr != ":8090" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
ledger:
  path: /var/lib/betledger/predictions.csv
  sync_interval: 2m
provider:
  base_url: https://example.test
telegram:
  enabled: true
  bot_token: token
  chat_id: "123"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.Path != "/var/lib/betledger/predictions.csv" {
		t.Errorf("ledger.path = %q", cfg.Ledger.Path)
	}
	if cfg.Ledger.SyncInterval != 2*time.Minute {
		t.Errorf("ledger.sync_interval = %v, want 2m", cfg.Ledger.SyncInterval)
	}
	// Unset keys keep their defaults.
	if cfg.Ledger.BackfillBatch != 75 {
		t.Errorf("ledger.backfill_batch = %d, want default 75", cfg.Ledger.BackfillBatch)
	}
	if !cfg.Telegram.Enabled || cfg.Telegram.ChatID != "123" {
		t.Errorf("telegram = %+v", cfg.Telegram)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing ledger path", func(c *Config) { c.Ledger.Path = "" }},
		{"zero backfill batch", func(c *Config) { c.Ledger.BackfillBatch = 0 }},
		{"sync interval too short", func(c *Config) { c.Ledger.SyncInterval = time.Second }},
		{"missing provider url", func(c *Config) { c.Provider.BaseURL = "" }},
		{"nonpositive rate limit", func(c *Config) { c.Provider.RateLimit = 0 }},
		{"telegram enabled without token", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatID = "123"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}
