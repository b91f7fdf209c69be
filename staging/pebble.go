package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps batches on disk as JSON under batch:<user>:<id>.
type PebbleStore struct {
	db  *pebble.DB
	mu  sync.Mutex // serializes read-modify-write in UpdateStatus
	now func() time.Time
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open staging store: %w", err)
	}
	return &PebbleStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

var _ Store = (*PebbleStore)(nil)

func (s *PebbleStore) Close() error { return s.db.Close() }

func batchPrefix(userID string) []byte { return []byte("batch:" + userID + ":") }
func batchKey(userID, batchID string) []byte {
	return append(batchPrefix(userID), batchID...)
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix.
func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *PebbleStore) Put(ctx context.Context, b Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	if err := s.db.Set(batchKey(b.UserID, b.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("save batch: %w", err)
	}
	return nil
}

func (s *PebbleStore) Get(ctx context.Context, userID, batchID string) (Batch, error) {
	data, closer, err := s.db.Get(batchKey(userID, batchID))
	if errors.Is(err, pebble.ErrNotFound) {
		return Batch{}, fmt.Errorf("%s: %w", batchID, ErrNotFound)
	}
	if err != nil {
		return Batch{}, fmt.Errorf("get batch: %w", err)
	}
	defer closer.Close()

	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return Batch{}, fmt.Errorf("unmarshal batch %s: %w", batchID, err)
	}
	return b, nil
}

func (s *PebbleStore) List(ctx context.Context, userID string) ([]Batch, error) {
	prefix := batchPrefix(userID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Batch
	for iter.First(); iter.Valid(); iter.Next() {
		var b Batch
		if err := json.Unmarshal(iter.Value(), &b); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", iter.Key(), err)
		}
		if b.UserID != userID { // user ids containing ':'
			continue
		}
		out = append(out, b)
	}
	return out, iter.Error()
}

func (s *PebbleStore) UpdateStatus(ctx context.Context, userID, batchID string, status Status, message string) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.Get(ctx, userID, batchID)
	if err != nil {
		return Batch{}, err
	}
	b.Status = status
	b.Message = message
	b.UpdatedAt = s.now()
	if err := s.Put(ctx, b); err != nil {
		return Batch{}, err
	}
	return b, nil
}

func (s *PebbleStore) Delete(ctx context.Context, userID, batchID string) error {
	key := batchKey(userID, batchID)
	_, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("%s: %w", batchID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	_ = closer.Close()

	if err := s.db.Delete(key, pebble.Sync); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}
