package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/leadbot/core/lang"
)

// WhatsAppConfig holds Cloud API credentials and webhook secrets.
type WhatsAppConfig struct {
	Token         string `yaml:"token" envconfig:"WHATSAPP_TOKEN"`
	PhoneNumberID string `yaml:"phone_number_id" envconfig:"WHATSAPP_PHONE_NUMBER_ID"`
	VerifyToken   string `yaml:"verify_token" envconfig:"WHATSAPP_WEBHOOK_VERIFY_TOKEN"`
	// AppSecret enables X-Hub-Signature-256 verification when set.
	AppSecret      string `yaml:"app_secret" envconfig:"WHATSAPP_APP_SECRET"`
	APIVersion     string `yaml:"api_version" envconfig:"WHATSAPP_API_VERSION"`
	BaseURL        string `yaml:"base_url" envconfig:"WHATSAPP_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"WHATSAPP_TIMEOUT_SECONDS"`
}

// DryRun reports whether outbound messages should only be logged.
func (c WhatsAppConfig) DryRun() bool {
	return strings.TrimSpace(c.Token) == "" || strings.TrimSpace(c.PhoneNumberID) == ""
}

// ServerConfig configures the HTTP listener that hosts the webhook.
type ServerConfig struct {
	Listen                 string `yaml:"listen" envconfig:"SERVER_LISTEN"`
	Port                   int    `yaml:"port" envconfig:"PORT"`
	WebhookPath            string `yaml:"webhook_path" envconfig:"SERVER_WEBHOOK_PATH"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds" envconfig:"SERVER_READ_TIMEOUT_SECONDS"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds" envconfig:"SERVER_WRITE_TIMEOUT_SECONDS"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" envconfig:"SERVER_SHUTDOWN_TIMEOUT_SECONDS"`
}

// Addr returns the host:port the server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Listen, c.Port)
}

// TelegramConfig holds settings for the optional Telegram channel.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"TELEGRAM_ENABLED"`
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int           `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	Webhook                WebhookConfig `yaml:"webhook"`
}

// WebhookConfig specifies Telegram webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// BotConfig controls conversation behaviour shared by every channel.
type BotConfig struct {
	// RequireLanguage starts new sessions in the language menu instead of the main menu.
	RequireLanguage bool   `yaml:"require_language" envconfig:"BOT_REQUIRE_LANGUAGE"`
	DefaultLanguage string `yaml:"default_language" envconfig:"BOT_DEFAULT_LANGUAGE"`
	TenantsFile     string `yaml:"tenants_file" envconfig:"BOT_TENANTS_FILE"`
	// TenantRoutes maps sender ids to tenant ids ahead of the digit-parity fallback.
	TenantRoutes       map[string]string `yaml:"tenant_routes" envconfig:"BOT_TENANT_ROUTES"`
	SendTimeoutSeconds int               `yaml:"send_timeout_seconds" envconfig:"BOT_SEND_TIMEOUT_SECONDS"`
	SendRetries        int               `yaml:"send_retries" envconfig:"BOT_SEND_RETRIES"`
}

// SessionConfig tunes the in-memory session store.
type SessionConfig struct {
	TTLMinutes           int `yaml:"ttl_minutes" envconfig:"SESSION_TTL_MINUTES"`
	DedupeWindowSeconds  int `yaml:"dedupe_window_seconds" envconfig:"SESSION_DEDUPE_WINDOW_SECONDS"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds" envconfig:"SESSION_SWEEP_INTERVAL_SECONDS"`
}

// DatabaseConfig holds SQL connection settings for the record store.
// Field layout mirrors database.Config so the two convert directly.
type DatabaseConfig struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// RedisConfig configures the Redis stream record sink.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Stream   string `yaml:"stream" envconfig:"REDIS_STREAM"`
	MaxLen   int64  `yaml:"max_len" envconfig:"REDIS_STREAM_MAXLEN"`
}

// RecordsConfig selects where completed flows are appended.
type RecordsConfig struct {
	Driver   string         `yaml:"driver" envconfig:"RECORDS_DRIVER"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	// Log additionally mirrors every record to the structured log.
	Log bool `yaml:"log" envconfig:"RECORDS_LOG"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	RecordsMemory   = "memory"
	RecordsLog      = "log"
	RecordsPostgres = "postgres"
	RecordsSQLite   = "sqlite"
	RecordsRedis    = "redis"
)

const (
	// UpdateCallback identifies button presses for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies text and media messages for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds per-sender throttling settings for the Telegram channel.
// ExcludeUpdates accepts update types to bypass limiting: "callback" or "message".
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the whole process configuration.
type Config struct {
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	Server    ServerConfig    `yaml:"server"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Bot       BotConfig       `yaml:"bot"`
	Session   SessionConfig   `yaml:"session"`
	Records   RecordsConfig   `yaml:"records"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
// An empty path skips the file and relies on the environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills in defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	normalizeWhatsApp(&cfg.WhatsApp)
	if err := normalizeServer(&cfg.Server); err != nil {
		return err
	}
	if err := normalizeTelegram(&cfg.Telegram); err != nil {
		return err
	}
	if err := normalizeBot(&cfg.Bot); err != nil {
		return err
	}
	if err := normalizeSession(&cfg.Session); err != nil {
		return err
	}
	if err := normalizeRecords(&cfg.Records); err != nil {
		return err
	}
	return normalizeRateLimit(&cfg.RateLimit)
}

func normalizeWhatsApp(c *WhatsAppConfig) {
	c.Token = strings.TrimSpace(c.Token)
	c.PhoneNumberID = strings.TrimSpace(c.PhoneNumberID)
	if strings.TrimSpace(c.APIVersion) == "" {
		c.APIVersion = "v20.0"
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = "https://graph.facebook.com"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

func normalizeServer(c *ServerConfig) error {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be within 1..65535, got %d", c.Port)
	}
	path := strings.TrimSpace(c.WebhookPath)
	if path == "" {
		path = "/webhook"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	c.WebhookPath = path
	if c.ReadTimeoutSeconds <= 0 {
		c.ReadTimeoutSeconds = 10
	}
	if c.WriteTimeoutSeconds <= 0 {
		c.WriteTimeoutSeconds = 30
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		c.ShutdownTimeoutSeconds = 10
	}
	return nil
}

func normalizeTelegram(c *TelegramConfig) error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("telegram.token is required when telegram.enabled is true")
	}

	rm := strings.ToLower(strings.TrimSpace(c.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(c.Webhook.URL) == "" {
			return fmt.Errorf("telegram.webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(c.Webhook.Listen) == "" {
			return fmt.Errorf("telegram.webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if c.Webhook.Port <= 0 {
			return fmt.Errorf("telegram.webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if c.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", c.RunMode)
	}
	c.RunMode = rm
	return nil
}

func normalizeBot(c *BotConfig) error {
	if strings.TrimSpace(c.DefaultLanguage) == "" {
		c.DefaultLanguage = string(lang.English)
	}
	l, ok := lang.Parse(c.DefaultLanguage)
	if !ok {
		return fmt.Errorf("invalid bot.default_language %q; allowed: en, ar", c.DefaultLanguage)
	}
	c.DefaultLanguage = string(l)
	c.TenantsFile = strings.TrimSpace(c.TenantsFile)
	if c.SendTimeoutSeconds <= 0 {
		c.SendTimeoutSeconds = 15
	}
	if c.SendRetries < 0 {
		return fmt.Errorf("bot.send_retries must be >= 0")
	}
	if c.SendRetries == 0 {
		c.SendRetries = 3
	}
	return nil
}

func normalizeSession(c *SessionConfig) error {
	if c.TTLMinutes < 0 || c.DedupeWindowSeconds < 0 || c.SweepIntervalSeconds < 0 {
		return fmt.Errorf("session durations must be >= 0")
	}
	if c.TTLMinutes == 0 {
		c.TTLMinutes = 360
	}
	if c.DedupeWindowSeconds == 0 {
		c.DedupeWindowSeconds = 600
	}
	if c.SweepIntervalSeconds == 0 {
		c.SweepIntervalSeconds = 120
	}
	return nil
}

func normalizeRecords(c *RecordsConfig) error {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	if driver == "" {
		driver = RecordsMemory
	}
	switch driver {
	case RecordsMemory, RecordsLog:
	case RecordsPostgres:
		db := &c.Database
		db.Driver = RecordsPostgres
		if strings.TrimSpace(db.Host) == "" || strings.TrimSpace(db.Name) == "" {
			return fmt.Errorf("records.database.host and records.database.name are required for the postgres driver")
		}
		if strings.TrimSpace(db.Port) == "" {
			db.Port = "5432"
		}
		if strings.TrimSpace(db.SSLMode) == "" {
			db.SSLMode = "disable"
		}
		if db.MaxConnections <= 0 {
			db.MaxConnections = 5
		}
	case RecordsSQLite:
		db := &c.Database
		db.Driver = RecordsSQLite
		if strings.TrimSpace(db.Path) == "" {
			db.Path = "leadbot.db"
		}
		if db.MaxConnections <= 0 {
			db.MaxConnections = 1
		}
	case RecordsRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			c.Redis.Addr = "localhost:6379"
		}
		if strings.TrimSpace(c.Redis.Stream) == "" {
			c.Redis.Stream = "leadbot:records"
		}
		if c.Redis.MaxLen < 0 {
			return fmt.Errorf("records.redis.max_len must be >= 0")
		}
	default:
		return fmt.Errorf("invalid records.driver %q; allowed: memory, log, postgres, sqlite, redis", c.Driver)
	}
	c.Driver = driver
	return nil
}

func normalizeRateLimit(c *RateLimitConfig) error {
	if c.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range c.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		c.ExcludeUpdates[i] = key
	}
	return nil
}
