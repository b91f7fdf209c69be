package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/tradesync/recon"
	"go.uber.org/multierr"
)

// DecodeAccounts parses the order-history payload
//
//	{"<account>": [order, ...], "status": ..., "timestamp": ...}
//
// into fills by account. The payload is loosely typed, so anything that
// does not decode is skipped and reported in err while everything else is
// still returned. A malformed top level yields an empty map.
func DecodeAccounts(data []byte, rates CommissionRates) (map[string][]recon.Fill, error) {
	out := make(map[string][]recon.Fill)

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return out, fmt.Errorf("decode accounts: %w", err)
	}

	var errs error
	for account, raw := range top {
		if recon.IsMetadataKey(account) {
			continue
		}

		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("account %s: not a list: %w", account, err))
			continue
		}

		fills := make([]recon.Fill, 0, len(items))
		for i, item := range items {
			var o BrokerOrder
			if err := json.Unmarshal(item, &o); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("account %s: order %d: %w", account, i, err))
				continue
			}
			if o.AccountID == "" {
				o.AccountID = account
			}
			f, ok, err := o.ToFill(rates)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("account %s: %w", account, err))
				continue
			}
			if ok {
				fills = append(fills, f)
			}
		}
		out[account] = fills
	}
	return out, errs
}

// DecodeManualOrders parses a JSON array of manual orders.
func DecodeManualOrders(data []byte) ([]ManualOrder, error) {
	var orders []ManualOrder
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("decode manual orders: %w", err)
	}
	return orders, nil
}
