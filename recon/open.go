package recon

import "strings"

// Snapshot summarizes the position's queued lots. It reports false when
// nothing is open.
func (p *Position) Snapshot() (OpenPosition, bool) {
	total := p.Remaining()
	if total <= 0 {
		return OpenPosition{}, false
	}

	var (
		notional   float64
		commission float64
		ids        = make([]string, 0, len(p.Lots))
	)
	for _, l := range p.Lots {
		notional += l.Price * float64(l.Remaining)
		commission += l.Commission
		ids = append(ids, l.OrderID)
	}

	return OpenPosition{
		AccountID:  p.AccountID,
		Instrument: p.Instrument,
		Side:       p.Side,
		Quantity:   total,
		EntryPrice: notional / float64(total),
		EntryTime:  p.Head().Time,
		Commission: commission,
		OrderIDs:   strings.Join(ids, ","),
	}, true
}

// OpenPositions reports every non-flat position in the ledger, ordered by
// account and instrument.
func OpenPositions(l *Ledger) []OpenPosition {
	var out []OpenPosition
	for _, p := range l.Positions() {
		if op, ok := p.Snapshot(); ok {
			out = append(out, op)
		}
	}
	return out
}
