package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	var cfg Config
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.WebhookPath != "/webhook" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Bot.DefaultLanguage != "en" {
		t.Fatalf("default language = %q", cfg.Bot.DefaultLanguage)
	}
	if cfg.Session.TTLMinutes != 360 || cfg.Session.DedupeWindowSeconds != 600 || cfg.Session.SweepIntervalSeconds != 120 {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Records.Driver != RecordsMemory {
		t.Fatalf("records driver = %q", cfg.Records.Driver)
	}
	if cfg.WhatsApp.BaseURL != "https://graph.facebook.com" || cfg.WhatsApp.APIVersion == "" {
		t.Fatalf("unexpected whatsapp defaults: %+v", cfg.WhatsApp)
	}
	if !cfg.WhatsApp.DryRun() {
		t.Fatal("missing token should mean dry run")
	}
}

func TestNormalizeErrors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"telegram token", func(c *Config) { c.Telegram.Enabled = true }, "telegram.token"},
		{"telegram run mode", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.Token = "t"
			c.Telegram.RunMode = "push"
		}, "telegram.run_mode"},
		{"telegram webhook url", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.Token = "t"
			c.Telegram.RunMode = "webhook"
		}, "telegram.webhook.url"},
		{"language", func(c *Config) { c.Bot.DefaultLanguage = "fr" }, "bot.default_language"},
		{"records driver", func(c *Config) { c.Records.Driver = "mongo" }, "records.driver"},
		{"postgres host", func(c *Config) { c.Records.Driver = "postgres" }, "records.database.host"},
		{"session", func(c *Config) { c.Session.TTLMinutes = -1 }, "session"},
		{"rate limit", func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"inline_query"} }, "rate_limit.exclude_updates"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			tc.mut(&cfg)
			err := Normalize(&cfg)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestNormalizeTelegramAlias(t *testing.T) {
	cfg := Config{Telegram: TelegramConfig{Enabled: true, Token: "t", RunMode: " Polling "}}
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
}

func TestNormalizeRecordsDrivers(t *testing.T) {
	cfg := Config{Records: RecordsConfig{Driver: "SQLite"}}
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Records.Driver != RecordsSQLite || cfg.Records.Database.Path != "leadbot.db" {
		t.Fatalf("unexpected sqlite defaults: %+v", cfg.Records)
	}

	cfg = Config{Records: RecordsConfig{Driver: "redis"}}
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Records.Redis.Addr != "localhost:6379" || cfg.Records.Redis.Stream == "" {
		t.Fatalf("unexpected redis defaults: %+v", cfg.Records.Redis)
	}
}

func TestLoadYAMLWithEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
whatsapp:
  token: file-token
  phone_number_id: "123"
  verify_token: verify-me
bot:
  require_language: true
  default_language: arabic
  tenant_routes:
    "971500000001": premium
records:
  driver: log
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("WHATSAPP_TOKEN", "env-token")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WhatsApp.Token != "env-token" {
		t.Fatalf("env overlay not applied: %q", cfg.WhatsApp.Token)
	}
	if cfg.WhatsApp.VerifyToken != "verify-me" || cfg.WhatsApp.DryRun() {
		t.Fatalf("unexpected whatsapp config: %+v", cfg.WhatsApp)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if !cfg.Bot.RequireLanguage || cfg.Bot.DefaultLanguage != "ar" {
		t.Fatalf("unexpected bot config: %+v", cfg.Bot)
	}
	if cfg.Bot.TenantRoutes["971500000001"] != "premium" {
		t.Fatalf("tenant routes not loaded: %+v", cfg.Bot.TenantRoutes)
	}
	if cfg.Records.Driver != RecordsLog {
		t.Fatalf("records driver = %q", cfg.Records.Driver)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
