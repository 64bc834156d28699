package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/config"
	"github.com/fyrsmithlabs/weekpulse/internal/goals"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/redact"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/storage"
	"github.com/fyrsmithlabs/weekpulse/internal/weekly"
	"go.opentelemetry.io/otel/trace"
)

// Build opens storage and constructs every service from cfg. The returned
// registry owns the storage handle; call Close when done.
//
// When the file driver is used with storage.watch enabled, history is
// reloaded on external edits until ctx ends.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, tracer trace.Tracer) (Registry, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	kv, err := storage.Open(ctx, cfg.Storage, logger.Named("storage"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}

	var scrubber *redact.Scrubber
	if cfg.Insight.Scrub {
		scrubber, err = redact.New(cfg.Insight.Allowlist)
		if err != nil {
			_ = kv.Close()
			return nil, nil, fmt.Errorf("creating scrubber: %w", err)
		}
	}

	hist := history.NewStore(ctx, kv, history.WithLogger(logger.Named("history")))
	profiles := reflection.NewProfileStore(ctx, kv, reflection.WithProfileLogger(logger.Named("profile")))
	tracker := goals.NewTracker(ctx, kv,
		goals.WithLogger(logger.Named("goals")),
		goals.WithHistoryLimit(cfg.Goals.HistoryLimit))

	retries := cfg.Insight.MaxRetries
	if retries == 0 {
		retries = -1
	}
	client := insight.NewClient(insight.ClientConfig{
		BaseURL:     cfg.Insight.BaseURL,
		Model:       cfg.Insight.Model,
		Temperature: cfg.Insight.Temperature,
		Timeout:     cfg.Insight.Timeout.Duration(),
		MaxRetries:  retries,
		RateLimit:   cfg.Insight.RateLimit,
		Burst:       cfg.Insight.Burst,
	})
	gen := insight.NewGenerator(client,
		insight.WithLogger(logger.Named("insight")),
		insight.WithTracer(tracer),
		insight.WithScrubber(scrubber),
		insight.WithDefaultKey(cfg.Insight.APIKey))

	svc, err := weekly.NewService(weekly.Options{
		History:   hist,
		Profiles:  profiles,
		Generator: gen,
		Logger:    logger.Named("weekly"),
	})
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}

	if w, ok := kv.(storage.Watcher); ok && cfg.Storage.Watch {
		go func() {
			if err := hist.Watch(ctx, w); err != nil {
				logger.Warn("history watch stopped", zap.Error(err))
			}
		}()
	}

	reg := NewRegistry(Options{
		Weekly:    svc,
		History:   hist,
		Profiles:  profiles,
		Goals:     tracker,
		Generator: gen,
		Scrubber:  scrubber,
		Storage:   kv,
	})
	return reg, kv.Close, nil
}
