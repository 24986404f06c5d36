package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/conversation"
	"github.com/m3rciful/leadbot/core/engine"
	"github.com/m3rciful/leadbot/core/lang"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/outbound"
	"github.com/m3rciful/leadbot/core/records"
	"github.com/m3rciful/leadbot/core/server"
	"github.com/m3rciful/leadbot/core/session"
	"github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/tenant"
	"github.com/m3rciful/leadbot/core/whatsapp"
)

// Options control the bootstrap pipeline. Nil hooks select the production implementations.
type Options struct {
	Config *config.Config

	LoggerInit  func(*config.Config) error
	OpenRecords func(context.Context, config.RecordsConfig) (records.Store, error)
	NewTelegram func(telegram.Options) (*telegram.Bot, error)
	// HTTPClient is used for the WhatsApp Cloud API.
	HTTPClient *http.Client
	Now        func() time.Time
}

// App exposes the components wired by Run.
type App struct {
	Config   *config.Config
	Tenants  *tenant.Registry
	Sessions *session.MemoryStore
	Machine  *conversation.Machine
	Records  records.Store
	Engine   *engine.Engine
	Webhook  *whatsapp.Webhook
	Server   *server.Server
	// Telegram is nil unless telegram.enabled is set.
	Telegram *telegram.Bot
}

// Run initializes the logger, loads tenants, opens the record store and wires the engine
// behind every enabled channel.
func Run(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config
	start := time.Now()

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	reg, err := LoadTenants(cfg.Bot)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	resolver, err := NewResolver(cfg.Bot, reg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	defaultLang, _ := lang.Parse(cfg.Bot.DefaultLanguage)
	machine := conversation.New(conversation.Config{
		RequireLanguage: cfg.Bot.RequireLanguage,
		DefaultLanguage: defaultLang,
		Tenants:         reg,
		Now:             opts.Now,
	})
	store := session.NewMemoryStore(session.Options{
		TTL:           time.Duration(cfg.Session.TTLMinutes) * time.Minute,
		DedupeWindow:  time.Duration(cfg.Session.DedupeWindowSeconds) * time.Second,
		SweepInterval: time.Duration(cfg.Session.SweepIntervalSeconds) * time.Second,
		InitialState:  machine.Config().InitialState(),
		Resolver:      resolver,
		Now:           opts.Now,
	})

	openRecords := opts.OpenRecords
	if openRecords == nil {
		openRecords = records.Open
	}
	recs, err := openRecords(ctx, cfg.Records)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: record store: %w", err)
	}

	senderOpts := outbound.Options{
		MaxRetries:  cfg.Bot.SendRetries,
		MaxDuration: time.Duration(cfg.Bot.SendTimeoutSeconds) * time.Second,
	}
	senders := map[string]*outbound.Sender{
		whatsapp.Channel: outbound.NewSender(whatsAppTransport(cfg.WhatsApp, opts.HTTPClient), senderOpts),
	}

	var tg *telegram.Bot
	if cfg.Telegram.Enabled {
		newTelegram := opts.NewTelegram
		if newTelegram == nil {
			newTelegram = telegram.New
		}
		tg, err = newTelegram(telegram.Options{Config: cfg.Telegram, RateLimit: cfg.RateLimit, Now: opts.Now})
		if err != nil {
			_ = recs.Close()
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		senders[telegram.Channel] = outbound.NewSender(tg.Transport(), senderOpts)
	}

	eng, err := engine.New(engine.Options{
		Store:   store,
		Machine: machine,
		Records: recs,
		Senders: senders,
		Now:     opts.Now,
	})
	if err != nil {
		_ = recs.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	hook := whatsapp.NewWebhook(cfg.WhatsApp.VerifyToken, cfg.WhatsApp.AppSecret, eng)
	srv := server.New(server.Options{
		Config:   cfg.Server,
		Webhook:  hook,
		Sessions: store.Len,
	})

	logger.Info(ctx, "app", "bootstrap",
		slog.String("tenants", joinIDs(reg.IDs())),
		slog.String("records", cfg.Records.Driver),
		slog.Bool("whatsapp_dry_run", cfg.WhatsApp.DryRun()),
		slog.Bool("telegram", tg != nil),
		slog.Bool("signature_check", cfg.WhatsApp.AppSecret != ""),
		slog.Duration("duration", logger.Took(start)),
	)

	return &App{
		Config:   cfg,
		Tenants:  reg,
		Sessions: store,
		Machine:  machine,
		Records:  recs,
		Engine:   eng,
		Webhook:  hook,
		Server:   srv,
		Telegram: tg,
	}, nil
}

// Runners returns the long-running parts of the app: the HTTP server and, when enabled,
// the Telegram poller.
func (a *App) Runners() []Runner {
	runners := []Runner{NamedRunner("http", a.Server.Run)}
	if a.Telegram != nil {
		runners = append(runners, NamedRunner("telegram", func(ctx context.Context) error {
			return a.Telegram.Run(ctx, a.Engine)
		}))
	}
	return runners
}

// Close releases the record store.
func (a *App) Close() error {
	if a == nil || a.Records == nil {
		return nil
	}
	return a.Records.Close()
}

// LoadTenants reads the tenants file when configured, otherwise returns the built-in registry.
func LoadTenants(cfg config.BotConfig) (*tenant.Registry, error) {
	if cfg.TenantsFile == "" {
		return tenant.DefaultRegistry(), nil
	}
	reg, err := tenant.Load(cfg.TenantsFile)
	if err != nil {
		return nil, fmt.Errorf("load tenants: %w", err)
	}
	return reg, nil
}

// NewResolver puts the configured sender routes in front of the digit-parity rule.
// Every routed tenant must exist in reg.
func NewResolver(cfg config.BotConfig, reg *tenant.Registry) (tenant.Resolver, error) {
	parity := tenant.NewDigitParity()
	if !reg.Has(parity.Even) {
		parity.Even = reg.DefaultID()
	}
	if !reg.Has(parity.Odd) {
		parity.Odd = reg.DefaultID()
	}
	var errs []error
	for sender, id := range cfg.TenantRoutes {
		if !reg.Has(id) {
			errs = append(errs, fmt.Errorf("tenant route %q: unknown tenant %q", sender, id))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if len(cfg.TenantRoutes) == 0 {
		return parity, nil
	}
	return tenant.Mapped{Routes: cfg.TenantRoutes, Fallback: parity}, nil
}

func whatsAppTransport(cfg config.WhatsAppConfig, client *http.Client) outbound.Transport {
	if cfg.DryRun() {
		return outbound.LogTransport{Channel: whatsapp.Channel}
	}
	return whatsapp.NewClient(cfg, client)
}

func joinIDs(ids []string) string {
	s, hidden := logger.SummarizeStrings(ids, 8)
	if hidden > 0 {
		s += fmt.Sprintf(" (+%d)", hidden)
	}
	return s
}
