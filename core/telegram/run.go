package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/engine"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/netutil"
	"github.com/m3rciful/leadbot/core/router"
	"github.com/m3rciful/leadbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// EventHandler processes one inbound event. *engine.Engine satisfies it.
type EventHandler interface {
	Handle(ctx context.Context, ev router.Event) (engine.Result, error)
}

// Options controls New.
type Options struct {
	Config    config.TelegramConfig
	RateLimit config.RateLimitConfig
	// Client overrides the tuned Bot API client.
	Client *http.Client
	Now    func() time.Time
}

// Bot owns the telebot runtime. Updates are handed to the handler bound with Run.
type Bot struct {
	cfg    config.TelegramConfig
	bot    *tele.Bot
	poller tele.Poller
	now    func() time.Time
	took   time.Duration
}

// New builds the telebot instance. It contacts the Bot API once to validate the token.
func New(opts Options) (*Bot, error) {
	if strings.TrimSpace(opts.Config.Token) == "" {
		return nil, errors.New("telegram: empty token")
	}
	client := opts.Client
	if client == nil {
		client = netutil.BuildHTTPClient(netutil.ClientOptions{MaxRetries: 3, RetryBackoff: 2 * time.Second})
	}
	poller := BuildPoller(opts.Config)

	start := time.Now()
	tb, err := tele.NewBot(tele.Settings{
		Token:  opts.Config.Token,
		Poller: poller,
		Client: client,
		OnError: func(err error, c tele.Context) {
			logger.Error(middleware.ContextFrom(c), "tg", "tg.error",
				slog.String("err", netutil.Redact(err.Error())),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	b := &Bot{cfg: opts.Config, bot: tb, poller: poller, now: opts.Now, took: time.Since(start)}
	if b.now == nil {
		b.now = time.Now
	}
	for _, mw := range DefaultMiddlewares(opts.RateLimit, respondCallback) {
		tb.Use(mw.Use)
	}
	return b, nil
}

// Transport returns the outbound transport backed by this bot.
func (b *Bot) Transport() *Transport {
	return NewTransport(b.bot)
}

// Run routes updates to h until ctx is done.
func (b *Bot) Run(ctx context.Context, h EventHandler) error {
	if h == nil {
		return errors.New("telegram: nil event handler")
	}
	b.logMode(ctx)

	handle := b.handler(h)
	for _, endpoint := range []string{tele.OnText, tele.OnCallback, tele.OnMedia, tele.OnLocation, tele.OnContact} {
		b.bot.Handle(endpoint, handle)
	}
	if err := b.bot.SetCommands(BotCommands()); err != nil {
		logger.Warn(ctx, "tg", "register.commands.set_failed", slog.String("err", netutil.Redact(err.Error())))
	}

	runDone := make(chan struct{})
	go func() {
		b.bot.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		b.bot.Stop()
		<-runDone
		logger.Info(context.Background(), "tg", "tg.stop")
		return nil
	case <-runDone:
		return nil
	}
}

func (b *Bot) handler(h EventHandler) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := middleware.ContextFrom(c)
		if c.Callback() != nil {
			// Stop the client-side spinner; the answer arrives as a new message.
			_ = c.Respond()
		}
		ev, ok := EventFromUpdate(c.Update(), b.now())
		if !ok {
			return nil
		}
		if _, err := h.Handle(ctx, ev); err != nil {
			logger.Debug(ctx, "tg", "update.failed", slog.String("err", netutil.Redact(err.Error())))
		}
		return nil
	}
}

func (b *Bot) logMode(ctx context.Context) {
	switch p := b.poller.(type) {
	case *tele.Webhook:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", config.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(b.took)),
		)
	default:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(longPollTimeout(b.cfg)/time.Second)),
			slog.Duration("duration", logger.RoundMS(b.took)),
		)
		// A webhook left over from an earlier deployment blocks getUpdates.
		if err := b.bot.RemoveWebhook(false); err != nil {
			logger.Warn(ctx, "tg", "delete_webhook", slog.String("status", "error"), slog.String("err", netutil.Redact(err.Error())))
		} else {
			logger.Info(ctx, "tg", "delete_webhook", slog.String("status", "ok"))
		}
	}
}

func respondCallback(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond()
	}
	return nil
}
