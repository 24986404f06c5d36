package outbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/netutil"
)

// ErrNoTransport is returned when a Sender has nothing to deliver through.
var ErrNoTransport = errors.New("outbound: no transport configured")

// Options controls retries of a single directive.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single directive.
	MaxDuration time.Duration
}

// Sender delivers directives in order, retrying transient transport failures.
type Sender struct {
	transport Transport
	opts      Options
	errs      atomic.Uint64
}

// NewSender wraps t with sane defaults for zeroed options.
func NewSender(t Transport, opts Options) *Sender {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	return &Sender{transport: t, opts: opts}
}

// ErrorCount returns the number of directives that could not be delivered.
func (s *Sender) ErrorCount() uint64 {
	return s.errs.Load()
}

// Send delivers ds to recipient and returns how many went out.
// It stops at the first directive that still fails after retries.
func (s *Sender) Send(ctx context.Context, to string, ds []Directive) (int, error) {
	if s == nil || s.transport == nil {
		return 0, ErrNoTransport
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for i, d := range ds {
		if err := s.deliver(ctx, to, d, i); err != nil {
			s.errs.Add(1)
			return i, fmt.Errorf("outbound: directive %d/%d: %w", i+1, len(ds), err)
		}
	}
	return len(ds), nil
}

func (s *Sender) deliver(ctx context.Context, to string, d Directive, idx int) error {
	deadlineCtx, cancel := context.WithTimeout(ctx, s.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := s.opts.MaxRetries + 1
	var lastErr error

attemptLoop:
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := deadlineCtx.Err(); err != nil {
			lastErr = err
			break
		}

		err := Deliver(deadlineCtx, s.transport, to, d)
		if err == nil {
			if attempt > 1 {
				logger.Info(ctx, "outbound", "send.retry.success",
					append(sendLogAttrs(d, idx),
						slog.Int("attempts", attempt),
						slog.Duration("duration", logger.RoundMS(time.Since(start))),
					)...,
				)
			} else if logger.ShouldSampleDebug("send.success") {
				logger.Debug(ctx, "outbound", "send.success",
					append(sendLogAttrs(d, idx), slog.Duration("duration", logger.RoundMS(time.Since(start))))...,
				)
			}
			return nil
		}

		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break
		}

		delay := s.opts.RetryBackoff * time.Duration(attempt)
		logger.Debug(ctx, "outbound", "send.retry.backoff",
			append(sendLogAttrs(d, idx),
				slog.Int("attempts", attempt),
				slog.Duration("backoff", delay),
				slog.String("err_code", netutil.ErrorKind(err)),
			)...,
		)
		timer := time.NewTimer(delay)
		select {
		case <-deadlineCtx.Done():
			timer.Stop()
			lastErr = deadlineCtx.Err()
			break attemptLoop
		case <-timer.C:
		}
	}

	logger.Error(ctx, "outbound", "send.fail",
		append(sendLogAttrs(d, idx),
			slog.String("status", "fail"),
			slog.String("err", netutil.Redact(lastErr.Error())),
			slog.String("err_code", netutil.ErrorKind(lastErr)),
			slog.Bool("retryable", netutil.ShouldRetry(lastErr)),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)...,
	)
	return lastErr
}

func sendLogAttrs(d Directive, idx int) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("op", string(d.Kind)),
		slog.Int("index", idx),
	}
	if n := len(d.Buttons); n > 0 {
		attrs = append(attrs, slog.Int("buttons", n))
	}
	return attrs
}
