package engine

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
)

func (e *Engine) logSummary(ctx context.Context, res Result, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("status", res.Status),
		slog.String("handler", res.Handler),
		slog.String("outcome", res.Outcome),
		slog.String("input", string(res.Input)),
		slog.String("state_from", string(res.From)),
		slog.String("state_to", string(res.To)),
		slog.Int("directives", res.Total),
		slog.Int("sent", res.Sent),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if res.RecordID != "" {
		attrs = append(attrs,
			slog.String("record_kind", string(res.RecordKind)),
			slog.String("record_id", res.RecordID),
		)
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
			slog.String("cause", res.Handler),
		)
	}
	if res.Status == StatusDuplicate || res.Status == StatusIgnored {
		level = slog.LevelDebug
	}
	logger.Event(ctx, "engine", level, "handler.handled", attrs...)
}

// deriveErrorCode names an error for dashboards: a Code() from typed API errors,
// otherwise the concrete type name of the innermost wrapped error.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	for {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			if errs := joined.Unwrap(); len(errs) > 0 {
				err = errs[0]
				continue
			}
		}
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
