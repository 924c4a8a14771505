// Package bootstrap wires configuration, logging and lifecycle for the
// process.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"tradebot/internal/config"
	"tradebot/internal/core"
	"tradebot/pkg/logging"
)

// App holds the core process dependencies.
type App struct {
	Cfg    *config.Config
	Logger core.ILogger
}

// NewApp loads configuration and initializes the logger.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := checkPreFlight(cfg); err != nil {
		return nil, fmt.Errorf("pre-flight checks failed: %w", err)
	}

	logger, err := logging.NewZapLogger(cfg.System.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logging.SetGlobalLogger(logger)

	return &App{Cfg: cfg, Logger: logger}, nil
}

// Runner is a component with a blocking run loop.
type Runner interface {
	Run(ctx context.Context) error
}

// Run starts every runner on an error group and blocks until they all stop
// or a termination signal arrives.
func (a *App) Run(runners ...Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	a.Logger.Info("Starting application")

	for _, runner := range runners {
		r := runner
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("Application stopped with error", "error", err)
		return err
	}

	a.Logger.Info("Application shut down gracefully")
	return nil
}

// checkPreFlight performs environment checks beyond schema validation.
func checkPreFlight(cfg *config.Config) error {
	if cfg.Auth.SessionDBPath != "" {
		dir := cfg.Auth.SessionDBPath
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return fmt.Errorf("session_db_path %s is a directory", dir)
		}
	}
	return nil
}
