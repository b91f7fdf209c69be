package recon

import (
	"fmt"

	"go.uber.org/multierr"
)

// Kind classifies what a reconciliation error affected.
type Kind int

const (
	// KindFill: one fill was rejected and had no effect on the ledger.
	KindFill Kind = iota + 1
	// KindAccount: an account was skipped entirely.
	KindAccount
)

func (k Kind) String() string {
	switch k {
	case KindFill:
		return "fill"
	case KindAccount:
		return "account"
	}
	return "unknown"
}

// Error is a classified, non-fatal reconciliation failure.
type Error struct {
	Kind      Kind
	AccountID string
	OrderID   string
	Err       error
}

func (e *Error) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Kind, e.AccountID, e.OrderID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.AccountID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is everything a pass produces. Accounts lists the accounts that
// were reconciled, in processing order; skipped accounts are in Failures.
type Result struct {
	Trades        []Trade
	OpenPositions []OpenPosition
	Accounts      []string
	Warnings      []Warning
	Dropped       []*Error
	Failures      []*Error
}

// Err combines dropped fills and failed accounts into one error, or nil.
func (r Result) Err() error {
	var err error
	for _, e := range r.Dropped {
		err = multierr.Append(err, e)
	}
	for _, e := range r.Failures {
		err = multierr.Append(err, e)
	}
	return err
}
