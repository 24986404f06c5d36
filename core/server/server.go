// Package server hosts the HTTP endpoints: the WhatsApp webhook and a health probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/leadbot/core/buildinfo"
	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
)

// Options wires the server.
type Options struct {
	Config  config.ServerConfig
	Webhook http.Handler
	// Sessions reports the live session count for /healthz.
	Sessions func() int
}

// Server wraps an http.Server with graceful shutdown.
type Server struct {
	cfg config.ServerConfig
	srv *http.Server
}

// New builds the mux and server. Nothing listens until Run.
func New(opts Options) *Server {
	mux := http.NewServeMux()
	if opts.Webhook != nil {
		mux.Handle(opts.Config.WebhookPath, opts.Webhook)
	}
	mux.HandleFunc("/healthz", healthz(opts.Sessions))

	cfg := opts.Config
	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
			WriteTimeout:      time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Handler exposes the mux, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		logger.Error(ctx, "http", "server.listen", slog.String("listen", s.srv.Addr), slog.String("err", err.Error()))
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger.Info(ctx, "http", "server.listen",
		slog.String("listen", ln.Addr().String()),
		slog.String("path", s.cfg.WebhookPath),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := time.Duration(s.cfg.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	start := time.Now()
	err := s.srv.Shutdown(shutdownCtx)
	logger.Info(ctx, "http", "server.shutdown",
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return err
}

func healthz(sessions func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":  "ok",
			"version": buildinfo.Version,
		}
		if sessions != nil {
			body["sessions"] = sessions()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	}
}
