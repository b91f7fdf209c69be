package recon

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionQueue(t *testing.T) {
	t.Parallel()

	p := &Position{AccountID: "A", Instrument: "ES"}
	assert.True(t, p.Empty())
	assert.Nil(t, p.Head())
	assert.Equal(t, Flat, p.Side)

	p.push(newLot(fill("1", "ES", Sell, 2, 100, 0, 0)))
	p.push(newLot(fill("2", "ES", Sell, 3, 101, 0, time.Minute)))
	assert.Equal(t, Short, p.Side)
	assert.Equal(t, int64(5), p.Remaining())
	assert.Equal(t, "1", p.Head().OrderID)

	p.pop()
	assert.Equal(t, "2", p.Head().OrderID)
	assert.Equal(t, Short, p.Side)

	p.pop()
	assert.True(t, p.Empty())
	assert.Equal(t, Flat, p.Side)
}

func TestLedgerPositions(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Position("B", "ES")
	l.Position("A", "NQ")
	l.Position("A", "ES")
	assert.Same(t, l.Position("A", "ES"), l.Position("A", "ES"))

	got := l.Positions()
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].AccountID)
	assert.Equal(t, "ES", got[0].Instrument)
	assert.Equal(t, "NQ", got[1].Instrument)
	assert.Equal(t, "B", got[2].AccountID)

	l.DropAccount("A")
	_, ok := l.Lookup("A", "ES")
	assert.False(t, ok)
	_, ok = l.Lookup("B", "ES")
	assert.True(t, ok)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	p := &Position{AccountID: "A", Instrument: "ES"}
	_, ok := p.Snapshot()
	assert.False(t, ok)

	p.push(newLot(fill("1", "ES", Buy, 3, 100, 1.5, 0)))
	p.push(newLot(fill("2", "ES", Buy, 2, 110, 1.0, time.Minute)))

	op, ok := p.Snapshot()
	require.True(t, ok)
	assert.Equal(t, int64(5), op.Quantity)
	assert.InDelta(t, 104.0, op.EntryPrice, 1e-9)
	assert.InDelta(t, 2.5, op.Commission, 1e-9)
	assert.Equal(t, "1,2", op.OrderIDs)
	assert.Equal(t, Long, op.Side)
	assert.True(t, op.EntryTime.Equal(t0))
}

func TestTradeID(t *testing.T) {
	t.Parallel()

	a := TradeID("u", "ACC1", "ES", "1", "2", 3)
	b := TradeID("u", "ACC1", "ES", "1", "2", 3)
	assert.Equal(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	assert.NotEqual(t, a, TradeID("u", "ACC1", "ES", "1", "2", 2))
	assert.NotEqual(t, a, TradeID("u", "ACC1", "ES", "2", "1", 3))
	assert.NotEqual(t, a, TradeID("u", "ACC2", "ES", "1", "2", 3))
	assert.Equal(t, uuid.NameSpaceDNS, TradeNamespace)
}
