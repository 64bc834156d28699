// Weekpulse is the weekly metrics and insight daemon.
//
// It serves the REST API, the Prometheus /metrics endpoint and, in "mcp"
// mode, the MCP tool surface over stdio.
//
// Configuration is loaded from ~/.config/weekpulse/config.yaml and
// WEEKPULSE_* environment variables. A .env file in the working directory is
// read first. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	weekpulse
//
//	# Configure via environment
//	WEEKPULSE_SERVER_HTTP_PORT=9292 WEEKPULSE_STORAGE_DRIVER=sqlite weekpulse
//
//	# Serve MCP tools on stdin/stdout
//	weekpulse mcp
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/config"
	httpserver "github.com/fyrsmithlabs/weekpulse/internal/http"
	"github.com/fyrsmithlabs/weekpulse/internal/logging"
	"github.com/fyrsmithlabs/weekpulse/internal/services"
	"github.com/fyrsmithlabs/weekpulse/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/weekpulse/config.yaml)")
	flag.Parse()
	args := flag.Args()

	mode := "serve"
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		case "mcp", "serve":
			mode = args[0]
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  weekpulse           Start the HTTP server\n")
			fmt.Fprintf(os.Stderr, "  weekpulse mcp       Serve MCP tools over stdio\n")
			fmt.Fprintf(os.Stderr, "  weekpulse version   Show version information\n")
			os.Exit(1)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "weekpulse: %v\n", err)
		os.Exit(1)
	}

	if mode == "mcp" {
		err = runStdio(ctx, cfg)
	} else {
		err = run(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "weekpulse: %v\n", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("weekpulse by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// runtimeDeps is what both modes need before building services.
type runtimeDeps struct {
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
}

func (d *runtimeDeps) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), config.Default().Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := d.telemetry.Shutdown(ctx); err != nil {
		d.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = d.logger.Sync()
}

// initRuntime sets up telemetry and the logger. stderr routes log output away
// from stdout, which the stdio transport owns.
func initRuntime(ctx context.Context, cfg *config.Config, stderr bool) (*runtimeDeps, error) {
	tel, err := telemetry.New(ctx, cfg.Telemetry, version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg, err := logging.FromAppConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	if stderr {
		logCfg.Output.Stdout = false
		logCfg.Output.Stderr = true
	}
	logCfg.Output.OTEL = tel.IsEnabled()

	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &runtimeDeps{logger: logger, telemetry: tel}, nil
}

// run starts the HTTP server and blocks until ctx is cancelled.
//
// Startup order:
//  1. Telemetry and logger
//  2. Storage, history, profile, goals and insight services
//  3. HTTP server
//
// On cancellation the server drains for cfg.Server.ShutdownTimeout before
// storage is closed.
func run(ctx context.Context, cfg *config.Config) error {
	deps, err := initRuntime(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer deps.Close()
	logger := deps.logger.Underlying()

	logger.Info("starting weekpulse",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("telemetry", deps.telemetry.IsEnabled()))

	reg, closeServices, err := services.Build(ctx, cfg, logger, deps.telemetry.Tracer("weekpulse"))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := closeServices(); err != nil {
			logger.Warn("closing services", zap.Error(err))
		}
	}()

	srv, err := httpserver.NewServer(reg, logger, &httpserver.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("received shutdown signal, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server shutdown complete")
	return <-errCh
}
