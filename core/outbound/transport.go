package outbound

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/leadbot/core/logger"
)

// Transport is the messaging capability a channel provides.
type Transport interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []Button) error
}

// Deliver sends one directive through t.
func Deliver(ctx context.Context, t Transport, to string, d Directive) error {
	if d.Kind == KindButtons && len(d.Buttons) > 0 {
		return t.SendButtons(ctx, to, d.Body, d.Buttons)
	}
	return t.SendText(ctx, to, d.Body)
}

// LogTransport writes directives to the structured log instead of a platform.
// It backs dry-run deployments without API credentials.
type LogTransport struct {
	Channel string
}

// SendText implements Transport.
func (l LogTransport) SendText(ctx context.Context, to, body string) error {
	logger.Info(ctx, "outbound.dry_run", "send.text",
		slog.String("channel", l.Channel),
		slog.String("to", logger.MaskSender(to)),
		slog.String("body", logger.SanitizeLimit(body, 120)),
	)
	return nil
}

// SendButtons implements Transport.
func (l LogTransport) SendButtons(ctx context.Context, to, body string, buttons []Button) error {
	ids := make([]string, 0, len(buttons))
	for _, b := range buttons {
		ids = append(ids, b.ID)
	}
	logger.Info(ctx, "outbound.dry_run", "send.buttons",
		slog.String("channel", l.Channel),
		slog.String("to", logger.MaskSender(to)),
		slog.String("body", logger.SanitizeLimit(body, 120)),
		slog.String("buttons", strings.Join(ids, ",")),
	)
	return nil
}
