package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fyrsmithlabs/weekpulse/internal/config"
	"go.uber.org/zap"
)

// Open builds the KV selected by cfg.Driver.
//
// For the sqlite driver, cfg.Path names a directory and the database lives
// at <path>/weekpulse.db, unless the path already ends in .db or is
// ":memory:".
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (KV, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case config.StorageMemory:
		return NewMemory(), nil
	case config.StorageFile:
		return NewFile(cfg.Path, logger)
	case config.StorageSQLite:
		return OpenSQLite(ctx, sqlitePath(cfg.Path))
	case config.StoragePostgres:
		return OpenPostgres(ctx, cfg.DSN.Value())
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func sqlitePath(p string) string {
	if p == ":memory:" || filepath.Ext(p) == ".db" {
		return p
	}
	return filepath.Join(p, "weekpulse.db")
}
