package recon

import "time"

// Trade is one matched round trip between an opening lot and a closing
// fill. Quantity is the matched quantity, never the full order size.
type Trade struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	AccountID      string        `json:"account_id"`
	Instrument     string        `json:"instrument"`
	Quantity       int64         `json:"quantity"`
	EntryPrice     float64       `json:"entry_price"`
	ExitPrice      float64       `json:"exit_price"`
	EntryTime      time.Time     `json:"entry_time"`
	ExitTime       time.Time     `json:"exit_time"`
	Side           PositionSide  `json:"side"`
	Commission     float64       `json:"commission"`
	PnL            float64       `json:"pnl"`
	EntryOrderID   string        `json:"entry_order_id"`
	ExitOrderID    string        `json:"exit_order_id"`
	TimeInPosition time.Duration `json:"time_in_position"`
	Comment        string        `json:"comment,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NetPnL is realized PnL after commission.
func (t Trade) NetPnL() float64 {
	return t.PnL - t.Commission
}

// OpenPosition summarizes the lots still queued for one account and
// instrument after a pass.
type OpenPosition struct {
	AccountID  string       `json:"account_id"`
	Instrument string       `json:"instrument"`
	Side       PositionSide `json:"side"`
	Quantity   int64        `json:"quantity"`
	EntryPrice float64      `json:"entry_price"`
	EntryTime  time.Time    `json:"entry_time"`
	Commission float64      `json:"commission"`
	OrderIDs   string       `json:"order_ids"`
}
