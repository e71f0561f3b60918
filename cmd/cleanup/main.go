// Package main provides a one-shot retention sweep for operators. It removes
// expired jobs and their stored objects, then exits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/promoreel/promoreel-api/internal/bootstrap"
	"github.com/promoreel/promoreel-api/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	removed, err := deps.Cleaner.Run(ctx)
	if err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}

	logger.Info("retention sweep finished",
		slog.Int("removed", removed),
		slog.Duration("max_age", cfg.RetentionMaxAge),
	)
	return nil
}
