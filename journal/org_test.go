package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/tradesync/recon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	trade := sampleTrade("4f1c2b7e-1111-5222-8333-444455556666", time.Date(2024, 3, 15, 14, 20, 30, 0, time.UTC))
	trade.Comment = "trend day"

	result := FormatTradeOrg(trade)

	assert.Contains(t, result, "** Trade: ES Long (4f1c2b7e)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: 4f1c2b7e-1111-5222-8333-444455556666")
	assert.Contains(t, result, ":ACCOUNT: A1")
	assert.Contains(t, result, ":QUANTITY: 2")
	assert.Contains(t, result, ":ENTRY_PRICE: 5000.25000")
	assert.Contains(t, result, ":EXIT_PRICE: 5004.75000")
	assert.Contains(t, result, ":ENTRY_TIME: 2024-03-15T12:50:30Z")
	assert.Contains(t, result, ":EXIT_TIME: 2024-03-15T14:20:30Z")
	assert.Contains(t, result, ":TIME_IN_POSITION: 1h30m0s")
	assert.Contains(t, result, ":REALIZED_PL: 450.00")
	assert.Contains(t, result, ":NET_PL: 445.80")
	assert.Contains(t, result, ":ORDERS: 101 -> 102")
	assert.Contains(t, result, ":COMMENT: trend day")
	assert.Contains(t, result, ":END:")

	assert.Contains(t, result, "*** Thesis")
	assert.Contains(t, result, "*** Execution")
	assert.Contains(t, result, "*** Review")
}

func TestFormatTradeOrgShortIDAndNoComment(t *testing.T) {
	t.Parallel()

	trade := sampleTrade("short", time.Now())
	result := FormatTradeOrg(trade)

	assert.Contains(t, result, "(short)")
	assert.NotContains(t, result, ":COMMENT:")
}

func TestFormatTradeOrgNegativePL(t *testing.T) {
	t.Parallel()

	trade := sampleTrade("loss", time.Now())
	trade.Side = recon.Short
	trade.PnL = -125.5

	result := FormatTradeOrg(trade)
	assert.Contains(t, result, ":REALIZED_PL: -125.50")
	assert.Contains(t, result, ":SIDE: Short")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	now := time.Now()
	result := FormatTradesOrg([]recon.Trade{sampleTrade("a", now), sampleTrade("b", now)})

	assert.Equal(t, 2, strings.Count(result, "** Trade:"))
	assert.Contains(t, result, "\n\n\n** Trade: ES Long (b)")
	assert.Empty(t, FormatTradesOrg(nil))
}

func TestFormatOpenPositionsOrg(t *testing.T) {
	t.Parallel()

	assert.Contains(t, FormatOpenPositionsOrg(nil), "- flat")

	at := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	result := FormatOpenPositionsOrg([]recon.OpenPosition{
		{AccountID: "A1", Instrument: "NQ", Side: recon.Short, Quantity: 2, EntryPrice: 18000.25, EntryTime: at, Commission: 2.5, OrderIDs: "7,8"},
	})
	lines := strings.Split(strings.TrimSpace(result), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| A1 | NQ | Short | 2 | 18000.25000 | 2024-03-15T09:30:00Z | 2.50 | 7,8 |", lines[3])
}
