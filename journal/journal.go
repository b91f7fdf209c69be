// journal/journal.go
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/tradesync/market"
	"github.com/rustyeddy/tradesync/recon"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Journal is the durable home of reconciliation output. Trades are keyed
// by their deterministic id and recording one that already exists is a
// no-op, so the same fills can be reconciled any number of times.
type Journal interface {
	// RecordTrades stores trades, skipping ids already present, and
	// reports how many were new.
	RecordTrades(ctx context.Context, trades []recon.Trade) (int, error)

	// RecordOpenPositions replaces the open-position snapshot of userID
	// for the listed accounts. Accounts that are now flat end up with no
	// rows.
	RecordOpenPositions(ctx context.Context, userID string, accounts []string, positions []recon.OpenPosition) error

	Close() error
}

// SpecSource is implemented by journals that keep contract specs.
type SpecSource interface {
	ContractSpecs(ctx context.Context) (market.SpecTable, error)
}

// Querier is implemented by the database journals.
type Querier interface {
	GetTrade(ctx context.Context, tradeID string) (recon.Trade, error)
	ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]recon.Trade, error)
	ListOpenPositions(ctx context.Context, userID string) ([]recon.OpenPosition, error)
}

// SpecWriter is implemented by journals that store contract specs.
type SpecWriter interface {
	PutContractSpec(ctx context.Context, s market.ContractSpec) error
}

var (
	_ Querier    = (*SQLite)(nil)
	_ Querier    = (*Postgres)(nil)
	_ SpecWriter = (*SQLite)(nil)
	_ SpecWriter = (*Postgres)(nil)
)
