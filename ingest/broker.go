// Package ingest turns upstream order records into recon fills.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradesync/market"
	"github.com/rustyeddy/tradesync/recon"
)

// BrokerOrder is one order as reported by the broker's order history.
// Side is "B" or "S" and Timestamp is in unix seconds.
type BrokerOrder struct {
	OrderID        string  `json:"order_id"`
	AccountID      string  `json:"account_id"`
	Symbol         string  `json:"symbol"`
	Exchange       string  `json:"exchange"`
	Side           string  `json:"side"`
	OrderType      string  `json:"order_type,omitempty"`
	Status         string  `json:"status"`
	Quantity       int64   `json:"quantity"`
	FilledQuantity int64   `json:"filled_quantity"`
	Price          float64 `json:"price"`
	Commission     float64 `json:"commission"`
	Timestamp      int64   `json:"timestamp"`
}

// CommissionRates maps a normalized product symbol to a per-contract
// commission.
type CommissionRates map[string]float64

// Rate reports the per-contract commission for symbol.
func (r CommissionRates) Rate(symbol string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	v, ok := r[market.Normalize(symbol)]
	return v, ok
}

// ToFill converts o. Orders with nothing filled report ok=false and no
// error. A configured rate overrides the reported commission.
func (o BrokerOrder) ToFill(rates CommissionRates) (fill recon.Fill, ok bool, err error) {
	if o.FilledQuantity <= 0 {
		return recon.Fill{}, false, nil
	}

	side, err := recon.ParseSide(o.Side)
	if err != nil {
		return recon.Fill{}, false, fmt.Errorf("order %s: %w", o.OrderID, err)
	}

	commission := o.Commission
	if rate, found := rates.Rate(o.Symbol); found {
		commission = float64(o.FilledQuantity) * rate
	}

	var at time.Time
	if o.Timestamp > 0 {
		at = time.Unix(o.Timestamp, 0).UTC()
	}

	return recon.Fill{
		OrderID:    strings.TrimSpace(o.OrderID),
		AccountID:  o.AccountID,
		Symbol:     o.Symbol,
		Side:       side,
		Quantity:   o.FilledQuantity,
		Price:      o.Price,
		Commission: commission,
		Time:       at,
	}, true, nil
}
