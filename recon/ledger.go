package recon

import (
	"sort"
	"time"
)

// QueuedLot is the open part of a fill. Quantity and Commission keep the
// fill's original values so commission can be prorated over partial
// matches; Remaining is what is still unmatched.
type QueuedLot struct {
	OrderID    string
	Side       PositionSide
	Quantity   int64
	Remaining  int64
	Price      float64
	Commission float64
	Time       time.Time
}

func newLot(f Fill) *QueuedLot {
	return &QueuedLot{
		OrderID:    f.OrderID,
		Side:       f.Side.PositionSide(),
		Quantity:   f.Quantity,
		Remaining:  f.Quantity,
		Price:      f.Price,
		Commission: f.Commission,
		Time:       f.Time,
	}
}

// Position is the FIFO queue of open lots for one account and instrument.
// Every queued lot has the position's side; an empty queue is Flat.
type Position struct {
	AccountID  string
	Instrument string
	Side       PositionSide
	Lots       []*QueuedLot
}

func (p *Position) Empty() bool { return len(p.Lots) == 0 }

// Head is the oldest open lot, or nil when flat.
func (p *Position) Head() *QueuedLot {
	if p.Empty() {
		return nil
	}
	return p.Lots[0]
}

// Remaining is the total unmatched quantity.
func (p *Position) Remaining() int64 {
	var n int64
	for _, l := range p.Lots {
		n += l.Remaining
	}
	return n
}

func (p *Position) push(l *QueuedLot) {
	p.Lots = append(p.Lots, l)
	p.Side = l.Side
}

func (p *Position) pop() {
	p.Lots[0] = nil
	p.Lots = p.Lots[1:]
	if p.Empty() {
		p.Lots = nil
		p.Side = Flat
	}
}

type positionKey struct {
	account    string
	instrument string
}

// Ledger holds every position touched during one reconciliation pass. It
// is built per pass and thrown away with it.
type Ledger struct {
	positions map[positionKey]*Position
}

func NewLedger() *Ledger {
	return &Ledger{positions: make(map[positionKey]*Position)}
}

// Position returns the position for account and instrument, creating a
// flat one on first use.
func (l *Ledger) Position(account, instrument string) *Position {
	k := positionKey{account, instrument}
	p, ok := l.positions[k]
	if !ok {
		p = &Position{AccountID: account, Instrument: instrument}
		l.positions[k] = p
	}
	return p
}

func (l *Ledger) Lookup(account, instrument string) (*Position, bool) {
	p, ok := l.positions[positionKey{account, instrument}]
	return p, ok
}

// DropAccount forgets every position of account.
func (l *Ledger) DropAccount(account string) {
	for k := range l.positions {
		if k.account == account {
			delete(l.positions, k)
		}
	}
}

// Positions returns all positions ordered by account, then instrument.
func (l *Ledger) Positions() []*Position {
	out := make([]*Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID < out[j].AccountID
		}
		return out[i].Instrument < out[j].Instrument
	})
	return out
}
