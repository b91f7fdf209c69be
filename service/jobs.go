package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/tradesync/ingest"
	"github.com/rustyeddy/tradesync/notify"
	"github.com/rustyeddy/tradesync/pkg/id"
	"github.com/rustyeddy/tradesync/recon"
	"go.uber.org/zap"
)

// ErrJobsClosed is returned by Submit after Close.
var ErrJobsClosed = errors.New("jobs closed")

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Done reports whether the job has finished either way.
func (s JobStatus) Done() bool {
	return s == JobCompleted || s == JobFailed
}

// Job tracks one background fetch-and-reconcile.
type Job struct {
	ID            string    `json:"job_id"`
	UserID        string    `json:"user_id"`
	Accounts      []string  `json:"accounts,omitempty"`
	Since         time.Time `json:"since,omitempty"`
	Status        JobStatus `json:"status"`
	Trades        int       `json:"trades_count"`
	OpenPositions int       `json:"open_positions_count"`
	Inserted      int       `json:"inserted"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type JobStore interface {
	Save(ctx context.Context, j Job) error
	Get(ctx context.Context, jobID string) (Job, error)
	List(ctx context.Context, userID string) ([]Job, error)
}

type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]Job)}
}

func (s *MemoryJobStore) Save(ctx context.Context, j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, jobID string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return Job{}, newError(KindNotFound, "get job", fmt.Errorf("job %s", jobID))
	}
	return j, nil
}

func (s *MemoryJobStore) List(ctx context.Context, userID string) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Job
	for _, j := range s.jobs {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

// Jobs runs fetch-and-reconcile in the background. Each job waits for
// its source at most Timeout.
type Jobs struct {
	rec     *Reconciler
	store   JobStore
	pub     notify.Publisher
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	done   map[string]chan struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewJobs(rec *Reconciler, store JobStore, pub notify.Publisher, log *zap.Logger, timeout time.Duration) *Jobs {
	if store == nil {
		store = NewMemoryJobStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Jobs{
		rec:     rec,
		store:   store,
		pub:     pub,
		log:     log.Named("jobs"),
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		done:    make(map[string]chan struct{}),
	}
}

// Submit records a pending job and starts it. The job outlives ctx's
// cancellation but keeps its values.
func (j *Jobs) Submit(ctx context.Context, userID string, src ingest.Source, accounts []string, since time.Time) (string, error) {
	if userID == "" {
		return "", newError(KindInvalid, "submit job", ErrNoUser)
	}
	if src == nil {
		return "", newError(KindInvalid, "submit job", fmt.Errorf("no source"))
	}

	// Close may already be waiting; registering under mu keeps wg.Add
	// ordered before wg.Wait.
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return "", newError(KindInvalid, "submit job", ErrJobsClosed)
	}
	j.wg.Add(1)
	j.mu.Unlock()

	now := j.now()
	job := Job{
		ID:        id.NewAt(now),
		UserID:    userID,
		Accounts:  accounts,
		Since:     since,
		Status:    JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := j.store.Save(ctx, job); err != nil {
		j.wg.Done()
		return "", newError(KindStorage, "submit job", err)
	}

	done := make(chan struct{})
	j.mu.Lock()
	j.done[job.ID] = done
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		j.run(context.WithoutCancel(ctx), job, src)
		close(done)
		j.mu.Lock()
		delete(j.done, job.ID)
		j.mu.Unlock()
	}()

	j.log.Info("job submitted", zap.String("job_id", job.ID), zap.String("user_id", userID))
	return job.ID, nil
}

func (j *Jobs) run(ctx context.Context, job Job, src ingest.Source) {
	log := j.log.With(zap.String("job_id", job.ID), zap.String("user_id", job.UserID))

	job.Status = JobRunning
	j.save(ctx, log, &job)
	notify.Fire(ctx, j.pub, log, notify.Event{
		Type: notify.EventStatus, UserID: job.UserID, JobID: job.ID, Message: "fetching orders",
	})

	fills, err := ingest.Await(ctx, j.timeout, func(ctx context.Context) (map[string][]recon.Fill, error) {
		return src.Fetch(ctx, job.UserID, job.Accounts, job.Since)
	})
	if err != nil {
		j.fail(ctx, log, &job, newError(KindSource, "fetch", err))
		return
	}

	res := j.rec.Run(ctx, Request{UserID: job.UserID, Fills: fills, JobID: job.ID})
	job.Trades = len(res.Trades)
	job.OpenPositions = len(res.OpenPositions)
	job.Inserted = res.Inserted
	if res.Failure != nil {
		j.fail(ctx, log, &job, res.Failure)
		return
	}

	job.Status = JobCompleted
	j.save(ctx, log, &job)
	notify.Fire(ctx, j.pub, log, notify.Event{
		Type:          notify.EventComplete,
		UserID:        job.UserID,
		JobID:         job.ID,
		Accounts:      res.Accounts,
		Trades:        job.Trades,
		OpenPositions: job.OpenPositions,
		Message: fmt.Sprintf("processed %d trades and found %d open positions",
			job.Trades, job.OpenPositions),
	})
	log.Info("job completed", zap.Int("trades", job.Trades), zap.Int("inserted", job.Inserted))
}

func (j *Jobs) fail(ctx context.Context, log *zap.Logger, job *Job, err *Error) {
	job.Status = JobFailed
	job.Error = err.Error()
	j.save(ctx, log, job)
	notify.Fire(ctx, j.pub, log, notify.Event{
		Type: notify.EventError, UserID: job.UserID, JobID: job.ID, Message: job.Error,
	})
	log.Error("job failed", zap.Stringer("kind", err.Kind), zap.Error(err))
}

func (j *Jobs) save(ctx context.Context, log *zap.Logger, job *Job) {
	job.UpdatedAt = j.now()
	if err := j.store.Save(ctx, *job); err != nil {
		log.Error("save job", zap.Error(err))
	}
}

func (j *Jobs) Get(ctx context.Context, jobID string) (Job, error) {
	return j.store.Get(ctx, jobID)
}

func (j *Jobs) List(ctx context.Context, userID string) ([]Job, error) {
	return j.store.List(ctx, userID)
}

// Wait blocks until the job finishes or ctx ends and returns its latest
// state.
func (j *Jobs) Wait(ctx context.Context, jobID string) (Job, error) {
	j.mu.Lock()
	done, ok := j.done[jobID]
	j.mu.Unlock()

	if ok {
		select {
		case <-done:
		case <-ctx.Done():
			return Job{}, ctx.Err()
		}
	}
	return j.store.Get(ctx, jobID)
}

// Close rejects further submits and waits for running jobs.
func (j *Jobs) Close() {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()
	j.wg.Wait()
}
