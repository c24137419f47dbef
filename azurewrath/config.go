package azurewrath

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log     LogConfig     `toml:"log"`
	DB      DBConfig      `toml:"db"`
	Worker  WorkerConfig  `toml:"worker"`
	Scraper ScraperConfig `toml:"scraper"`
	Discord DiscordConfig `toml:"discord"`
	Push    PushConfig    `toml:"push"`
	Snipe   SnipeConfig   `toml:"snipe"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type WorkerConfig struct {
	IntervalSeconds int     `toml:"interval_seconds"`
	DealTTLMinutes  int     `toml:"deal_ttl_minutes"`
	MinDealPercent  float64 `toml:"min_deal_percent"`
	AppURL          string  `toml:"app_url"`
}

type ScraperConfig struct {
	DealsURL       string `toml:"deals_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DiscordConfig is optional; leaving the token or webhook fields empty
// disables the respective delivery channel.
type DiscordConfig struct {
	Token        string       `toml:"token"`
	WebhookID    snowflake.ID `toml:"webhook_id"`
	WebhookToken string       `toml:"webhook_token"`
}

// PushConfig is optional; empty VAPID keys disable push delivery.
type PushConfig struct {
	VAPIDPublicKey  string `toml:"vapid_public_key"`
	VAPIDPrivateKey string `toml:"vapid_private_key"`
	Subscriber      string `toml:"subscriber"`
}

type SnipeConfig struct {
	Port           int `toml:"port"`
	PollSeconds    int `toml:"poll_seconds"`
	WindowSeconds  int `toml:"window_seconds"`
	BatchSize      int `toml:"batch_size"`
}

func (c *Config) applyDefaults() {
	if c.Worker.IntervalSeconds == 0 {
		c.Worker.IntervalSeconds = 300
	}
	if c.Worker.DealTTLMinutes == 0 {
		c.Worker.DealTTLMinutes = 5
	}
	if c.Worker.MinDealPercent == 0 {
		c.Worker.MinDealPercent = 5.0
	}
	if c.Worker.AppURL == "" {
		c.Worker.AppURL = "https://azurewrath.lol"
	}
	if c.Scraper.DealsURL == "" {
		c.Scraper.DealsURL = "https://www.rolimons.com/deals"
	}
	if c.Scraper.TimeoutSeconds == 0 {
		c.Scraper.TimeoutSeconds = 30
	}
	if c.Snipe.Port == 0 {
		c.Snipe.Port = 3001
	}
	if c.Snipe.PollSeconds == 0 {
		c.Snipe.PollSeconds = 5
	}
	if c.Snipe.WindowSeconds == 0 {
		c.Snipe.WindowSeconds = 120
	}
	if c.Snipe.BatchSize == 0 {
		c.Snipe.BatchSize = 50
	}
}
