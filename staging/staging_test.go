package staging

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/tradesync/config"
	"github.com/rustyeddy/tradesync/ingest"
	"github.com/rustyeddy/tradesync/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBatch(userID string, at time.Time) Batch {
	return Batch{
		ID:     id.NewAt(at),
		UserID: userID,
		Orders: []ingest.ManualOrder{{
			AccountID:          "A1",
			OrderID:            "1",
			OrderState:         ingest.OrderStateFilled,
			OrderAction:        "Buy",
			Quantity:           1,
			AverageFilledPrice: 100,
			Time:               at,
			Instrument:         ingest.ManualInstrument{Symbol: "ESM4"},
		}},
		Status:    StatusPending,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()

	pebbleStore, err := NewPebbleStore(filepath.Join(t.TempDir(), "staging"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pebbleStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"pebble": pebbleStore,
	}
}

func TestStoreContract(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

			second := newBatch("u1", at.Add(time.Minute))
			first := newBatch("u1", at)
			other := newBatch("u1:x", at)
			require.NoError(t, s.Put(ctx, second))
			require.NoError(t, s.Put(ctx, first))
			require.NoError(t, s.Put(ctx, other))

			got, err := s.Get(ctx, "u1", first.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusPending, got.Status)
			require.Len(t, got.Orders, 1)
			assert.Equal(t, "ESM4", got.Orders[0].Instrument.Symbol)
			assert.True(t, got.CreatedAt.Equal(at))

			list, err := s.List(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, first.ID, list[0].ID)
			assert.Equal(t, second.ID, list[1].ID)

			updated, err := s.UpdateStatus(ctx, "u1", first.ID, StatusError, "boom")
			require.NoError(t, err)
			assert.Equal(t, StatusError, updated.Status)
			assert.Equal(t, "boom", updated.Message)
			assert.True(t, updated.UpdatedAt.After(at))

			got, err = s.Get(ctx, "u1", first.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusError, got.Status)

			require.NoError(t, s.Delete(ctx, "u1", first.ID))
			_, err = s.Get(ctx, "u1", first.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "u1", first.ID), ErrNotFound)
			_, err = s.UpdateStatus(ctx, "u1", first.ID, StatusCompleted, "")
			assert.ErrorIs(t, err, ErrNotFound)

			// Batches are scoped to their user.
			_, err = s.Get(ctx, "u2", second.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			empty, err := s.List(ctx, "u2")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestPebbleStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "staging")
	b := newBatch("u1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	s, err := NewPebbleStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, b))
	require.NoError(t, s.Close())

	s, err = NewPebbleStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestKeyUpperBound(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte("batch:u1;"), keyUpperBound([]byte("batch:u1:")))
	assert.Equal(t, []byte{0x01}, keyUpperBound([]byte{0x00, 0xff}))
	assert.Nil(t, keyUpperBound([]byte{0xff, 0xff}))
}

func TestOpen(t *testing.T) {
	t.Parallel()

	s, err := Open(config.StagingConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(config.StagingConfig{Type: "pebble", Path: filepath.Join(t.TempDir(), "p")})
	require.NoError(t, err)
	assert.IsType(t, &PebbleStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(config.StagingConfig{Type: "etcd"})
	assert.Error(t, err)
}
