package records

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
)

// LogSink writes each record as a structured log line.
type LogSink struct{}

// Append implements Sink.
func (LogSink) Append(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	attrs := []slog.Attr{
		slog.String("record_kind", string(r.Kind)),
		slog.String("record_id", r.ID.String()),
		slog.String("tenant", r.TenantID),
		slog.String("lang", r.Language),
		slog.Int("count", len(r.Fields)),
	}
	if r.Score != "" {
		attrs = append(attrs, slog.String("score", r.Score))
	}
	if r.Status != "" {
		attrs = append(attrs, slog.String("status", r.Status))
	}
	logger.Info(ctx, "records", "record.append", attrs...)
	return nil
}

// Close implements Store.
func (LogSink) Close() error { return nil }

// Store is a Sink that owns resources.
type Store interface {
	Sink
	Close() error
}

// Multi appends to every store in order and reports all failures together.
// A failing store does not stop the others.
type Multi []Store

// Append implements Sink.
func (m Multi) Append(ctx context.Context, r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every store.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
