package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/config"
	"github.com/fyrsmithlabs/weekpulse/internal/mcp"
	"github.com/fyrsmithlabs/weekpulse/internal/services"
)

// runStdio serves the MCP tools over stdin/stdout against the same storage
// the HTTP server uses. Logs go to stderr.
func runStdio(ctx context.Context, cfg *config.Config) error {
	deps, err := initRuntime(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer deps.Close()
	logger := deps.logger.Underlying()

	logger.Info("starting weekpulse in MCP stdio mode",
		zap.String("version", version),
		zap.String("storage", cfg.Storage.Driver))

	reg, closeServices, err := services.Build(ctx, cfg, logger, deps.telemetry.Tracer("weekpulse"))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := closeServices(); err != nil {
			logger.Warn("closing services", zap.Error(err))
		}
	}()

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "weekpulse",
		Version: version,
		Logger:  logger.Named("mcp"),
	}, reg)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "weekpulse stdio mode started (storage: %s)\n", cfg.Storage.Driver)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("stdio server error: %w", err)
	}
	logger.Info("stdio MCP server shutdown complete")
	return nil
}
