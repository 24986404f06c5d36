package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/leadbot/core/logger"
)

// Runner is a long-running part of the process that stops when its context is cancelled.
type Runner interface {
	Name() string
	Run(ctx context.Context) error
}

type namedRunner struct {
	name string
	run  func(ctx context.Context) error
}

func (r namedRunner) Name() string                  { return r.name }
func (r namedRunner) Run(ctx context.Context) error { return r.run(ctx) }

// NamedRunner adapts a bare function to Runner.
func NamedRunner(name string, run func(ctx context.Context) error) Runner {
	return namedRunner{name: name, run: run}
}

// RunAll runs every runner until ctx is done or one of them fails; a failure stops the rest.
// Cancellation of ctx is not reported as an error.
func RunAll(ctx context.Context, runners ...Runner) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		if r == nil {
			continue
		}
		r := r
		g.Go(func() error {
			logger.Debug(gctx, "app", "runner.start", slog.String("runner", r.Name()))
			err := r.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(gctx, "app", "runner.fail",
					slog.String("runner", r.Name()),
					slog.String("err", err.Error()),
				)
				return err
			}
			logger.Debug(gctx, "app", "runner.stop", slog.String("runner", r.Name()))
			return nil
		})
	}
	return g.Wait()
}
