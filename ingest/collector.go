package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rustyeddy/tradesync/recon"
)

// Collector accumulates fills by account as they stream in from a live
// session. The same order id is kept once, first arrival wins.
type Collector struct {
	mu    sync.RWMutex
	fills map[string][]recon.Fill
	seen  map[string]struct{}
	rates CommissionRates
}

func NewCollector(rates CommissionRates) *Collector {
	return &Collector{
		fills: make(map[string][]recon.Fill),
		seen:  make(map[string]struct{}),
		rates: rates,
	}
}

// Add records a fill and reports whether it was new.
func (c *Collector) Add(f recon.Fill) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.seen[f.OrderID]; dup {
		return false
	}
	c.seen[f.OrderID] = struct{}{}
	c.fills[f.AccountID] = append(c.fills[f.AccountID], f)
	return true
}

// AddOrder converts and records a broker order. Unfilled orders are
// ignored.
func (c *Collector) AddOrder(o BrokerOrder) (bool, error) {
	f, ok, err := o.ToFill(c.rates)
	if err != nil || !ok {
		return false, err
	}
	return c.Add(f), nil
}

// Len returns the number of fills held.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.seen)
}

// Snapshot returns a copy that is safe to hand to the reconciler while
// the collector keeps receiving.
func (c *Collector) Snapshot() map[string][]recon.Fill {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]recon.Fill, len(c.fills))
	for acct, fills := range c.fills {
		out[acct] = append([]recon.Fill(nil), fills...)
	}
	return out
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fills = make(map[string][]recon.Fill)
	c.seen = make(map[string]struct{})
}

// Fetch serves the current snapshot, so a live collector can stand in
// for any Source.
func (c *Collector) Fetch(ctx context.Context, userID string, accounts []string, since time.Time) (map[string][]recon.Fill, error) {
	return StaticSource(c.Snapshot()).Fetch(ctx, userID, accounts, since)
}
