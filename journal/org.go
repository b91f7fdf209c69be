package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradesync/recon"
)

// FormatTradeOrg renders a trade as an Org-mode block for a trading
// journal. Facts go in a PROPERTIES drawer; the Thesis, Execution and
// Review headings are left for the trader to fill in.
func FormatTradeOrg(t recon.Trade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s (%s)\n", t.Instrument, t.Side, shortID(t.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":ACCOUNT: %s\n", t.AccountID)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", t.Instrument)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":QUANTITY: %d\n", t.Quantity)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.5f\n", t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.5f\n", t.ExitPrice)
	fmt.Fprintf(&b, ":ENTRY_TIME: %s\n", t.EntryTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":EXIT_TIME: %s\n", t.ExitTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":TIME_IN_POSITION: %s\n", t.TimeInPosition)
	fmt.Fprintf(&b, ":COMMISSION: %.2f\n", t.Commission)
	fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", t.PnL)
	fmt.Fprintf(&b, ":NET_PL: %.2f\n", t.NetPnL())
	fmt.Fprintf(&b, ":ORDERS: %s -> %s\n", t.EntryOrderID, t.ExitOrderID)
	if t.Comment != "" {
		fmt.Fprintf(&b, ":COMMENT: %s\n", t.Comment)
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []recon.Trade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// FormatOpenPositionsOrg renders the open book as an Org table.
func FormatOpenPositionsOrg(positions []recon.OpenPosition) string {
	var b strings.Builder
	b.WriteString("** Open positions\n")
	if len(positions) == 0 {
		b.WriteString("- flat\n")
		return b.String()
	}
	b.WriteString("| Account | Instrument | Side | Qty | Entry | Since | Commission | Orders |\n")
	b.WriteString("|-\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %.5f | %s | %.2f | %s |\n",
			p.AccountID, p.Instrument, p.Side, p.Quantity, p.EntryPrice,
			p.EntryTime.UTC().Format(time.RFC3339), p.Commission, p.OrderIDs)
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
