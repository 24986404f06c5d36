package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/m3rciful/leadbot/core/bootstrap"
	"github.com/m3rciful/leadbot/core/buildinfo"
	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
)

// DefaultConfigEnv names the variable that points at the YAML config file.
const DefaultConfigEnv = "CONFIG_PATH"

// Options describe how to load configuration, bootstrap the app, and run it.
type Options struct {
	// ConfigPath wins over ConfigEnvVar; both empty means environment-only configuration.
	ConfigPath   string
	ConfigEnvVar string

	LoadConfig     func(path string) (*config.Config, error)
	Bootstrap      func(ctx context.Context, opts bootstrap.Options) (*bootstrap.App, error)
	ShutdownLogger func() error
	// Context replaces the signal-bound context, mostly for tests.
	Context context.Context
}

// ResolveConfigPath returns the explicit path, else the value of the env variable.
func ResolveConfigPath(explicit, envVar string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if envVar == "" {
		envVar = DefaultConfigEnv
	}
	return strings.TrimSpace(os.Getenv(envVar))
}

// Run loads configuration, bootstraps the app and serves until SIGINT or SIGTERM.
func Run(opts Options) error {
	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = config.Load
	}
	boot := opts.Bootstrap
	if boot == nil {
		boot = bootstrap.Run
	}

	cfgPath := ResolveConfigPath(opts.ConfigPath, opts.ConfigEnvVar)
	if cfgPath != "" {
		log.Printf("loading config: %s", cfgPath)
	} else {
		log.Printf("no config file given, using environment only")
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	ctx := opts.Context
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
	}

	startedAt := time.Now()
	app, err := boot(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn(context.Background(), "app", "records.close", slog.String("err", err.Error()))
		}
	}()

	logger.Info(ctx, "app", "ready",
		slog.String("version", buildinfo.String()),
		slog.Duration("startup_duration", logger.Took(startedAt)),
	)
	err = bootstrap.RunAll(ctx, app.Runners()...)
	logger.Info(context.Background(), "app", "shutdown", slog.String("status", logger.Status(err)))
	return err
}
