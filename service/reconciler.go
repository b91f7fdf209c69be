// Package service runs reconciliation passes against the journal and
// reports progress.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rustyeddy/tradesync/journal"
	"github.com/rustyeddy/tradesync/notify"
	"github.com/rustyeddy/tradesync/recon"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentation = "github.com/rustyeddy/tradesync/service"

var ErrNoUser = errors.New("user id is required")

// Request is one reconciliation pass.
type Request struct {
	UserID string
	Fills  map[string][]recon.Fill
	// JobID tags published events when the pass runs as a job or batch.
	JobID string
}

// Result is the engine output plus what happened downstream of it.
type Result struct {
	recon.Result
	// Inserted counts trades the journal had not seen before.
	Inserted int
	// Failure is set when the pass could not complete.
	Failure *Error
}

// Reconciler runs the engine for one user at a time per account, writes
// the output to the journal and publishes a summary event.
type Reconciler struct {
	engine  *recon.Engine
	journal journal.Journal
	pub     notify.Publisher
	log     *zap.Logger
	tracer  trace.Tracer
	locks   *accountLocks
}

type ReconcilerOption func(*Reconciler)

func WithTracerProvider(tp trace.TracerProvider) ReconcilerOption {
	return func(r *Reconciler) {
		if tp != nil {
			r.tracer = tp.Tracer(instrumentation)
		}
	}
}

// NewReconciler wires the collaborators. j and pub may be nil.
func NewReconciler(engine *recon.Engine, j journal.Journal, pub notify.Publisher, log *zap.Logger, opts ...ReconcilerOption) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	if pub == nil {
		pub = notify.Nop{}
	}
	r := &Reconciler{
		engine:  engine,
		journal: j,
		pub:     pub,
		log:     log,
		tracer:  otel.Tracer(instrumentation),
		locks:   newAccountLocks(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Reconciler) Run(ctx context.Context, req Request) Result {
	var out Result
	if req.UserID == "" {
		out.Failure = newError(KindInvalid, "reconcile", ErrNoUser)
		return out
	}

	ctx, span := r.tracer.Start(ctx, "reconcile",
		trace.WithAttributes(attribute.String("user_id", req.UserID)))
	defer span.End()

	log := r.log.With(zap.String("user_id", req.UserID))
	if req.JobID != "" {
		log = log.With(zap.String("job_id", req.JobID))
	}

	accounts := accountIDs(req.Fills)
	unlock := r.locks.Lock(req.UserID, accounts)
	defer unlock()

	notify.Fire(ctx, r.pub, log, notify.Event{
		Type:     notify.EventStatus,
		UserID:   req.UserID,
		JobID:    req.JobID,
		Accounts: accounts,
		Message:  fmt.Sprintf("reconciling %d accounts", len(accounts)),
	})

	out.Result = r.engine.Run(req.Fills, req.UserID)
	span.SetAttributes(
		attribute.Int("accounts", len(out.Accounts)),
		attribute.Int("trades", len(out.Trades)),
		attribute.Int("open_positions", len(out.OpenPositions)),
	)

	for _, w := range out.Warnings {
		notify.Fire(ctx, r.pub, log, notify.Event{
			Type: notify.EventLog, UserID: req.UserID, JobID: req.JobID, Level: "warn", Message: w.Message,
		})
	}
	for _, f := range out.Failures {
		notify.Fire(ctx, r.pub, log, notify.Event{
			Type: notify.EventLog, UserID: req.UserID, JobID: req.JobID, Level: "error", Message: f.Error(),
		})
	}

	if err := r.record(ctx, req.UserID, &out); err != nil {
		log.Error("journal write failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "journal write failed")
		out.Failure = newError(KindStorage, "reconcile", err)
		notify.Fire(ctx, r.pub, log, notify.Event{
			Type: notify.EventError, UserID: req.UserID, JobID: req.JobID, Message: err.Error(),
		})
		return out
	}

	notify.Fire(ctx, r.pub, log, notify.Event{
		Type:          notify.EventTradesProcessed,
		UserID:        req.UserID,
		JobID:         req.JobID,
		Accounts:      out.Accounts,
		Trades:        len(out.Trades),
		OpenPositions: len(out.OpenPositions),
		Message: fmt.Sprintf("processed %d trades and found %d open positions",
			len(out.Trades), len(out.OpenPositions)),
	})
	return out
}

// record writes trades, then the open-position snapshot of the accounts
// that reconciled.
func (r *Reconciler) record(ctx context.Context, userID string, out *Result) error {
	if r.journal == nil {
		return nil
	}
	n, err := r.journal.RecordTrades(ctx, out.Trades)
	if err != nil {
		return fmt.Errorf("record trades: %w", err)
	}
	out.Inserted = n
	if len(out.Accounts) == 0 {
		return nil
	}
	if err := r.journal.RecordOpenPositions(ctx, userID, out.Accounts, out.OpenPositions); err != nil {
		return fmt.Errorf("record open positions: %w", err)
	}
	return nil
}

func accountIDs(fills map[string][]recon.Fill) []string {
	out := make([]string, 0, len(fills))
	for k := range fills {
		if !recon.IsMetadataKey(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
