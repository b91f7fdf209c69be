package ingest

import (
	"strings"
	"time"

	"github.com/rustyeddy/tradesync/recon"
)

// OrderStateFilled is the only manual order state that produces a fill.
const OrderStateFilled = "Filled"

// ManualInstrument identifies the contract of a ManualOrder.
type ManualInstrument struct {
	Symbol string `json:"Symbol"`
}

// ManualOrder is an order exported from a trading platform by hand and
// uploaded for staging. Field names follow the export format.
type ManualOrder struct {
	AccountID          string           `json:"AccountId"`
	OrderID            string           `json:"OrderId"`
	OrderState         string           `json:"OrderState"`
	OrderAction        string           `json:"OrderAction"`
	OrderType          string           `json:"OrderType,omitempty"`
	LimitPrice         float64          `json:"LimitPrice,omitempty"`
	StopPrice          *float64         `json:"StopPrice,omitempty"`
	Quantity           int64            `json:"Quantity"`
	AverageFilledPrice float64          `json:"AverageFilledPrice"`
	IsOpeningOrder     bool             `json:"IsOpeningOrder,omitempty"`
	Time               time.Time        `json:"Time"`
	Instrument         ManualInstrument `json:"Instrument"`
}

// Filled reports whether o should become a fill.
func (o ManualOrder) Filled() bool {
	return o.OrderState == OrderStateFilled
}

// ToFill converts a filled manual order. Anything other than BUY is a
// sell, and manual orders carry no commission.
func (o ManualOrder) ToFill() recon.Fill {
	side := recon.Sell
	if strings.EqualFold(strings.TrimSpace(o.OrderAction), "BUY") {
		side = recon.Buy
	}
	return recon.Fill{
		OrderID:   o.OrderID,
		AccountID: o.AccountID,
		Symbol:    o.Instrument.Symbol,
		Side:      side,
		Quantity:  o.Quantity,
		Price:     o.AverageFilledPrice,
		Time:      o.Time.UTC().Truncate(time.Second),
	}
}

// ManualFills groups the filled orders by account, preserving order.
func ManualFills(orders []ManualOrder) map[string][]recon.Fill {
	out := make(map[string][]recon.Fill)
	for _, o := range orders {
		if !o.Filled() {
			continue
		}
		out[o.AccountID] = append(out[o.AccountID], o.ToFill())
	}
	return out
}
