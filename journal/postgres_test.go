package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rustyeddy/tradesync/config"
	"github.com/rustyeddy/tradesync/recon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real server: TRADESYNC_PG_DSN=postgres://... go test ./journal
func TestPostgresJournal(t *testing.T) {
	dsn := os.Getenv(config.EnvPostgresDSN)
	if dsn == "" {
		t.Skipf("%s not set", config.EnvPostgresDSN)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)
	defer j.Close()

	id := "pg-test-" + time.Now().UTC().Format("20060102T150405.000000000")
	trade := sampleTrade(id, time.Now().UTC().Truncate(time.Second))

	n, err := j.RecordTrades(ctx, []recon.Trade{trade})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = j.RecordTrades(ctx, []recon.Trade{trade})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := j.GetTrade(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, trade.Quantity, got.Quantity)
	assert.True(t, got.ExitTime.Equal(trade.ExitTime))

	_, err = j.GetTrade(ctx, id+"-missing")
	assert.ErrorIs(t, err, ErrNotFound)

	user := "pg-user-" + id
	pos := recon.OpenPosition{AccountID: "A1", Instrument: "ES", Side: recon.Long, Quantity: 1, EntryPrice: 1, EntryTime: trade.EntryTime, OrderIDs: "1"}
	require.NoError(t, j.RecordOpenPositions(ctx, user, []string{"A1"}, []recon.OpenPosition{pos}))
	open, err := j.ListOpenPositions(ctx, user)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	require.NoError(t, j.RecordOpenPositions(ctx, user, []string{"A1"}, nil))
	open, err = j.ListOpenPositions(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestOpenSelectsBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	j, err := Open(ctx, config.JournalConfig{Type: "sqlite", DBPath: dir + "/j.sqlite"})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, j)
	require.NoError(t, j.Close())

	j, err = Open(ctx, config.JournalConfig{Type: "csv", TradesFile: dir + "/t.csv", OpenFile: dir + "/o.csv"})
	require.NoError(t, err)
	assert.IsType(t, &CSV{}, j)
	require.NoError(t, j.Close())

	_, err = Open(ctx, config.JournalConfig{Type: "mongo"})
	assert.Error(t, err)
}
