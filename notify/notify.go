// Package notify reports reconciliation progress to whoever is watching.
package notify

import (
	"context"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type EventType string

const (
	EventStatus          EventType = "status"
	EventLog             EventType = "log"
	EventTradesProcessed EventType = "trades_processed"
	EventComplete        EventType = "complete"
	EventError           EventType = "error"
)

// Event is one progress message. Trades and OpenPositions are counts.
type Event struct {
	Type          EventType `json:"type"`
	UserID        string    `json:"user_id"`
	JobID         string    `json:"job_id,omitempty"`
	Accounts      []string  `json:"accounts,omitempty"`
	Trades        int       `json:"trades_count"`
	OpenPositions int       `json:"open_positions_count"`
	Level         string    `json:"level,omitempty"`
	Message       string    `json:"message,omitempty"`
	Time          time.Time `json:"time"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Fire publishes e and logs a failure instead of returning it. Progress
// reporting never fails the work being reported on.
func Fire(ctx context.Context, p Publisher, log *zap.Logger, e Event) {
	if p == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if err := p.Publish(ctx, e); err != nil && log != nil {
		log.Warn("publish event failed",
			zap.String("type", string(e.Type)),
			zap.String("user_id", e.UserID),
			zap.Error(err),
		)
	}
}

// Multi publishes to every publisher and combines their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var err error
	for _, p := range m {
		if p == nil {
			continue
		}
		err = multierr.Append(err, p.Publish(ctx, e))
	}
	return err
}

// Close closes every member that holds resources.
func (m Multi) Close() error {
	var err error
	for _, p := range m {
		if c, ok := p.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// LogPublisher writes events to a zap logger at the event's level.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{log: log.Named("events")}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	fields := []zap.Field{
		zap.String("type", string(e.Type)),
		zap.String("user_id", e.UserID),
	}
	if e.JobID != "" {
		fields = append(fields, zap.String("job_id", e.JobID))
	}
	if len(e.Accounts) > 0 {
		fields = append(fields, zap.Strings("accounts", e.Accounts))
	}
	if e.Type == EventTradesProcessed || e.Type == EventComplete {
		fields = append(fields, zap.Int("trades", e.Trades), zap.Int("open_positions", e.OpenPositions))
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}

	switch e.Level {
	case "debug":
		p.log.Debug(msg, fields...)
	case "warn", "warning":
		p.log.Warn(msg, fields...)
	case "error":
		p.log.Error(msg, fields...)
	default:
		if e.Type == EventError {
			p.log.Error(msg, fields...)
		} else {
			p.log.Info(msg, fields...)
		}
	}
	return nil
}
