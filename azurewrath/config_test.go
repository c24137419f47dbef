package azurewrath

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
[db]
host = "localhost"
port = 5432
user = "azurewrath"
database = "azurewrath"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Worker.IntervalSeconds != 300 {
		t.Errorf("IntervalSeconds = %d, want 300", cfg.Worker.IntervalSeconds)
	}
	if cfg.Worker.DealTTLMinutes != 5 {
		t.Errorf("DealTTLMinutes = %d, want 5", cfg.Worker.DealTTLMinutes)
	}
	if cfg.Worker.MinDealPercent != 5.0 {
		t.Errorf("MinDealPercent = %v, want 5.0", cfg.Worker.MinDealPercent)
	}
	if cfg.Scraper.DealsURL != "https://www.rolimons.com/deals" {
		t.Errorf("DealsURL = %q", cfg.Scraper.DealsURL)
	}
	if cfg.Snipe.Port != 3001 {
		t.Errorf("Snipe.Port = %d, want 3001", cfg.Snipe.Port)
	}
	if cfg.Snipe.PollSeconds != 5 || cfg.Snipe.WindowSeconds != 120 || cfg.Snipe.BatchSize != 50 {
		t.Errorf("snipe defaults = %+v", cfg.Snipe)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
[worker]
interval_seconds = 60
min_deal_percent = 12.5

[scraper]
user_agent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

[snipe]
port = 8080
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Worker.IntervalSeconds != 60 {
		t.Errorf("IntervalSeconds = %d, want 60", cfg.Worker.IntervalSeconds)
	}
	if cfg.Worker.MinDealPercent != 12.5 {
		t.Errorf("MinDealPercent = %v, want 12.5", cfg.Worker.MinDealPercent)
	}
	if cfg.Scraper.UserAgent != "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36" {
		t.Errorf("Scraper.UserAgent = %q", cfg.Scraper.UserAgent)
	}
	if cfg.Snipe.Port != 8080 {
		t.Errorf("Snipe.Port = %d, want 8080", cfg.Snipe.Port)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadConfig() on a missing file should fail")
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfig(t, `this is not toml = [`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() on malformed TOML should fail")
	}
}
