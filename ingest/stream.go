package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/multierr"
)

const maxStreamLine = 1 << 20

// ReadOrderStream feeds newline-delimited broker orders from r into c
// until EOF or ctx ends. Lines that do not decode, lack an account or
// fail conversion are skipped and reported in err; added counts fills
// that were new to c.
func ReadOrderStream(ctx context.Context, r io.Reader, c *Collector) (added int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	line := 0
	for sc.Scan() {
		line++
		if cerr := ctx.Err(); cerr != nil {
			return added, multierr.Append(err, cerr)
		}

		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		var o BrokerOrder
		if jerr := json.Unmarshal(raw, &o); jerr != nil {
			err = multierr.Append(err, fmt.Errorf("line %d: %w", line, jerr))
			continue
		}
		if o.AccountID == "" {
			err = multierr.Append(err, fmt.Errorf("line %d: order %s: missing account_id", line, o.OrderID))
			continue
		}
		ok, aerr := c.AddOrder(o)
		if aerr != nil {
			err = multierr.Append(err, fmt.Errorf("line %d: %w", line, aerr))
			continue
		}
		if ok {
			added++
		}
	}
	if serr := sc.Err(); serr != nil {
		err = multierr.Append(err, fmt.Errorf("read orders: %w", serr))
	}
	return added, err
}
