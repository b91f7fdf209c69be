package recon

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/tradesync/market"
)

// ErrInvalidFill is wrapped by every Fill validation failure.
var ErrInvalidFill = errors.New("invalid fill")

// Side is the direction of an execution.
type Side int

const (
	Buy Side = iota + 1
	Sell
)

// ParseSide accepts the broker codes "B"/"S" as well as "BUY"/"SELL",
// case-insensitively.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "B", "BUY":
		return Buy, nil
	case "S", "SELL":
		return Sell, nil
	}
	return 0, fmt.Errorf("%w: unknown side %q", ErrInvalidFill, s)
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

func (s Side) MarshalText() ([]byte, error) {
	if s != Buy && s != Sell {
		return nil, fmt.Errorf("%w: unknown side %d", ErrInvalidFill, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// PositionSide is the side of an open position. The zero value is Flat.
type PositionSide string

const (
	Flat  PositionSide = ""
	Long  PositionSide = "Long"
	Short PositionSide = "Short"
)

// PositionSide returns the side a fill opens when nothing is held.
func (s Side) PositionSide() PositionSide {
	switch s {
	case Buy:
		return Long
	case Sell:
		return Short
	}
	return Flat
}

// Fill is a broker-confirmed execution. Fills are never mutated by the
// engine; open quantity is tracked on QueuedLot copies.
type Fill struct {
	OrderID    string    `json:"order_id" yaml:"order_id"`
	AccountID  string    `json:"account_id" yaml:"account_id"`
	Symbol     string    `json:"symbol" yaml:"symbol"`
	Side       Side      `json:"side" yaml:"side"`
	Quantity   int64     `json:"quantity" yaml:"quantity"`
	Price      float64   `json:"price" yaml:"price"`
	Commission float64   `json:"commission" yaml:"commission"`
	Time       time.Time `json:"time" yaml:"time"`
}

// Instrument returns the normalized symbol.
func (f Fill) Instrument() string {
	return market.Normalize(f.Symbol)
}

// Validate checks the fields the matcher depends on.
func (f Fill) Validate() error {
	switch {
	case strings.TrimSpace(f.OrderID) == "":
		return fmt.Errorf("%w: missing order id", ErrInvalidFill)
	case f.Instrument() == "":
		return fmt.Errorf("%w: order %s: bad symbol %q", ErrInvalidFill, f.OrderID, f.Symbol)
	case f.Side != Buy && f.Side != Sell:
		return fmt.Errorf("%w: order %s: unknown side %d", ErrInvalidFill, f.OrderID, int(f.Side))
	case f.Quantity <= 0:
		return fmt.Errorf("%w: order %s: quantity %d", ErrInvalidFill, f.OrderID, f.Quantity)
	case !finite(f.Price):
		return fmt.Errorf("%w: order %s: price %v", ErrInvalidFill, f.OrderID, f.Price)
	case !finite(f.Commission):
		return fmt.Errorf("%w: order %s: commission %v", ErrInvalidFill, f.OrderID, f.Commission)
	case f.Time.IsZero():
		return fmt.Errorf("%w: order %s: missing timestamp", ErrInvalidFill, f.OrderID)
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
