package service

import "fmt"

// ErrKind classifies why a service call failed.
type ErrKind int

const (
	// KindInvalid: the request itself was unusable.
	KindInvalid ErrKind = iota + 1
	// KindStorage: the journal or staging store failed.
	KindStorage
	// KindSource: fills could not be fetched.
	KindSource
	// KindNotFound: the batch or job does not exist.
	KindNotFound
)

func (k ErrKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindStorage:
		return "storage"
	case KindSource:
		return "source"
	case KindNotFound:
		return "not found"
	}
	return "unknown"
}

type Error struct {
	Kind ErrKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
