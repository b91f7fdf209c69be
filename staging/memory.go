package staging

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type MemoryStore struct {
	mu      sync.RWMutex
	batches map[string]map[string]Batch
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches: make(map[string]map[string]Batch),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Put(ctx context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.batches[b.UserID]
	if !ok {
		user = make(map[string]Batch)
		s.batches[b.UserID] = user
	}
	user[b.ID] = b
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, userID, batchID string) (Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[userID][batchID]
	if !ok {
		return Batch{}, fmt.Errorf("%s: %w", batchID, ErrNotFound)
	}
	return b, nil
}

func (s *MemoryStore) List(ctx context.Context, userID string) ([]Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Batch, 0, len(s.batches[userID]))
	for _, b := range s.batches[userID] {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, userID, batchID string, status Status, message string) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[userID][batchID]
	if !ok {
		return Batch{}, fmt.Errorf("%s: %w", batchID, ErrNotFound)
	}
	b.Status = status
	b.Message = message
	b.UpdatedAt = s.now()
	s.batches[userID][batchID] = b
	return b, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[userID][batchID]; !ok {
		return fmt.Errorf("%s: %w", batchID, ErrNotFound)
	}
	delete(s.batches[userID], batchID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
