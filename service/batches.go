package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/tradesync/ingest"
	"github.com/rustyeddy/tradesync/pkg/id"
	"github.com/rustyeddy/tradesync/staging"
	"go.uber.org/zap"
)

// Batches is the manual-upload path: orders are staged first and
// reconciled on request.
type Batches struct {
	store staging.Store
	rec   *Reconciler
	log   *zap.Logger
	now   func() time.Time

	// mu makes the pending/error -> processing transition atomic.
	mu sync.Mutex
}

func NewBatches(store staging.Store, rec *Reconciler, log *zap.Logger) *Batches {
	if log == nil {
		log = zap.NewNop()
	}
	return &Batches{
		store: store,
		rec:   rec,
		log:   log.Named("batches"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Stage stores orders as a new pending batch.
func (b *Batches) Stage(ctx context.Context, userID string, orders []ingest.ManualOrder) (staging.Batch, error) {
	if userID == "" {
		return staging.Batch{}, newError(KindInvalid, "stage", ErrNoUser)
	}
	if len(orders) == 0 {
		return staging.Batch{}, newError(KindInvalid, "stage", errors.New("no orders"))
	}

	now := b.now()
	batch := staging.Batch{
		ID:        id.NewAt(now),
		UserID:    userID,
		Orders:    orders,
		Status:    staging.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.store.Put(ctx, batch); err != nil {
		return staging.Batch{}, newError(KindStorage, "stage", err)
	}

	b.log.Info("batch staged",
		zap.String("user_id", userID),
		zap.String("batch_id", batch.ID),
		zap.Int("orders", len(orders)),
	)
	return batch, nil
}

// Process reconciles a staged batch. The batch moves to processing, then
// to completed or error. Only pending batches and batches in error can be
// processed; a batch already processing or completed is rejected.
func (b *Batches) Process(ctx context.Context, userID, batchID string) Result {
	batch, fail := b.claim(ctx, userID, batchID)
	if fail != nil {
		return Result{Failure: fail}
	}

	fills := ingest.ManualFills(batch.Orders)
	res := b.rec.Run(ctx, Request{UserID: userID, Fills: fills, JobID: batchID})

	status, msg := staging.StatusCompleted, fmt.Sprintf("%d trades, %d open positions", len(res.Trades), len(res.OpenPositions))
	if res.Failure != nil {
		status, msg = staging.StatusError, res.Failure.Error()
	}
	if _, err := b.store.UpdateStatus(ctx, userID, batchID, status, msg); err != nil && res.Failure == nil {
		res.Failure = b.storeError("process", err)
	}

	b.log.Info("batch processed",
		zap.String("user_id", userID),
		zap.String("batch_id", batchID),
		zap.String("status", string(status)),
		zap.Int("orders", len(batch.Orders)),
		zap.Int("trades", len(res.Trades)),
	)
	return res
}

// claim moves a processable batch to processing and returns it.
func (b *Batches) claim(ctx context.Context, userID, batchID string) (staging.Batch, *Error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch, err := b.store.Get(ctx, userID, batchID)
	if err != nil {
		return staging.Batch{}, b.storeError("process", err)
	}
	switch batch.Status {
	case staging.StatusPending, staging.StatusError:
	default:
		return staging.Batch{}, newError(KindInvalid, "process",
			fmt.Errorf("batch %s is %s", batchID, batch.Status))
	}
	if _, err := b.store.UpdateStatus(ctx, userID, batchID, staging.StatusProcessing, ""); err != nil {
		return staging.Batch{}, b.storeError("process", err)
	}
	return batch, nil
}

func (b *Batches) Get(ctx context.Context, userID, batchID string) (staging.Batch, error) {
	batch, err := b.store.Get(ctx, userID, batchID)
	if err != nil {
		return staging.Batch{}, b.storeError("get batch", err)
	}
	return batch, nil
}

func (b *Batches) List(ctx context.Context, userID string) ([]staging.Batch, error) {
	out, err := b.store.List(ctx, userID)
	if err != nil {
		return nil, b.storeError("list batches", err)
	}
	return out, nil
}

func (b *Batches) Delete(ctx context.Context, userID, batchID string) error {
	if err := b.store.Delete(ctx, userID, batchID); err != nil {
		return b.storeError("delete batch", err)
	}
	return nil
}

func (b *Batches) storeError(op string, err error) *Error {
	if errors.Is(err, staging.ErrNotFound) {
		return newError(KindNotFound, op, err)
	}
	return newError(KindStorage, op, err)
}
