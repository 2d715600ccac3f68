// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup; only the Discord
// and Temple web API credentials are required.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Discord
	DiscordBotToken   string `env:"DISCORD_BOT_TOKEN"`
	RaidLogsChannelID string `env:"DISCORD_RAID_LOGS_CHANNEL_ID"`

	// Temple web API
	APIBaseURL string `env:"API_BASE_URL"`
	APIToken   string `env:"TEMPLE_WEB_API_TOKEN"`

	// Event correlation policy. Defaults match the documented contract:
	// 5m dedup TTL, 60s sweep, 15m edit window, 50-message history scan.
	DedupTTL           time.Duration `env:"DEDUP_TTL" envDefault:"5m"`
	DedupSweepInterval time.Duration `env:"DEDUP_SWEEP_INTERVAL" envDefault:"60s"`
	EditWindow         time.Duration `env:"EDIT_WINDOW" envDefault:"15m"`
	HistoryScanLimit   int           `env:"HISTORY_SCAN_LIMIT" envDefault:"50"`

	// Thread cleanup job
	ThreadCleanupEnabled  bool          `env:"THREAD_CLEANUP_ENABLED" envDefault:"false"`
	ThreadCleanupDays     int           `env:"THREAD_CLEANUP_DAYS" envDefault:"3"`
	ThreadCleanupInterval time.Duration `env:"THREAD_CLEANUP_INTERVAL" envDefault:"24h"`
	ThreadCleanupDryRun   bool          `env:"THREAD_CLEANUP_DRY_RUN" envDefault:"false"`

	// Operational HTTP server
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
}

// Load reads environment variables and applies defaults. It doesn't fail if credentials are
// missing; use Validate() before connecting to Discord or the backend.
func Load() (*Config, error) {
	// .env file is optional, mainly for local development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields required to run the bot against live Discord and the Temple API.
func (c *Config) Validate() error {
	if c.DiscordBotToken == "" {
		return fmt.Errorf("missing DISCORD_BOT_TOKEN")
	}
	if c.RaidLogsChannelID == "" {
		return fmt.Errorf("missing DISCORD_RAID_LOGS_CHANNEL_ID")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("missing API_BASE_URL")
	}
	if c.APIToken == "" {
		return fmt.Errorf("missing TEMPLE_WEB_API_TOKEN")
	}
	if c.HistoryScanLimit <= 0 || c.HistoryScanLimit > 100 {
		return fmt.Errorf("HISTORY_SCAN_LIMIT must be in 1..100, got %d", c.HistoryScanLimit)
	}
	return nil
}
