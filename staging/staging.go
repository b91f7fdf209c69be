// Package staging holds uploaded manual order batches until they are
// processed.
package staging

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/tradesync/ingest"
)

var ErrNotFound = errors.New("batch not found")

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Batch is one upload of manual orders. IDs are ULIDs, so sorting by ID
// sorts by creation time.
type Batch struct {
	ID        string               `json:"batch_id"`
	UserID    string               `json:"user_id"`
	Orders    []ingest.ManualOrder `json:"orders"`
	Status    Status               `json:"status"`
	Message   string               `json:"message,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"last_updated"`
}

// Store keeps batches per user.
type Store interface {
	Put(ctx context.Context, b Batch) error
	Get(ctx context.Context, userID, batchID string) (Batch, error)
	// List returns the user's batches oldest first.
	List(ctx context.Context, userID string) ([]Batch, error)
	// UpdateStatus sets status and message and bumps UpdatedAt.
	UpdateStatus(ctx context.Context, userID, batchID string, status Status, message string) (Batch, error)
	Delete(ctx context.Context, userID, batchID string) error
	Close() error
}
