package journal

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradesync/config"
)

// Open builds the journal selected by cfg.Type.
func Open(ctx context.Context, cfg config.JournalConfig) (Journal, error) {
	switch cfg.Type {
	case "csv":
		return NewCSV(cfg.TradesFile, cfg.OpenFile)
	case "sqlite":
		return NewSQLite(cfg.DBPath)
	case "postgres":
		return NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}
