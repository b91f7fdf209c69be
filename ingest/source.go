package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradesync/recon"
)

// ErrTimeout is returned by Await when the source does not answer in time.
var ErrTimeout = errors.New("source timed out")

// Source produces fills for a user. accounts narrows the result when not
// empty; since drops fills before it when not zero.
type Source interface {
	Fetch(ctx context.Context, userID string, accounts []string, since time.Time) (map[string][]recon.Fill, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, userID string, accounts []string, since time.Time) (map[string][]recon.Fill, error)

func (f SourceFunc) Fetch(ctx context.Context, userID string, accounts []string, since time.Time) (map[string][]recon.Fill, error) {
	return f(ctx, userID, accounts, since)
}

// Await calls fn with a context bounded by timeout. A zero timeout only
// uses ctx. If the deadline passes before fn returns, Await returns
// ErrTimeout without waiting for fn.
func Await[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return zero, ctx.Err()
	}
}

// StaticSource serves a fixed set of fills, for replays and tests.
type StaticSource map[string][]recon.Fill

func (s StaticSource) Fetch(ctx context.Context, userID string, accounts []string, since time.Time) (map[string][]recon.Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		want[a] = true
	}

	out := make(map[string][]recon.Fill)
	for acct, fills := range s {
		if len(want) > 0 && !want[acct] {
			continue
		}
		kept := make([]recon.Fill, 0, len(fills))
		for _, f := range fills {
			if !since.IsZero() && f.Time.Before(since) {
				continue
			}
			kept = append(kept, f)
		}
		out[acct] = kept
	}
	return out, nil
}
