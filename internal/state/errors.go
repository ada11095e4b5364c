package state

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrFetchFailed marks a transport or server failure reported by a fetch.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrProtocolViolation marks a response that breaks the paging or payload contract.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrPageLimit is returned when a drain reaches its configured page bound.
	ErrPageLimit = errors.New("page limit reached")
	// ErrDrainTimeout is returned when a drain exceeds its configured duration.
	ErrDrainTimeout = errors.New("drain timed out")
)

// ErrorKind classifies a failure recorded in published state.
type ErrorKind int

const (
	KindFetchFailure ErrorKind = iota
	KindProtocolViolation
	KindLimitExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case KindFetchFailure:
		return "fetch_failure"
	case KindProtocolViolation:
		return "protocol_violation"
	case KindLimitExceeded:
		return "limit_exceeded"
	default:
		return "unknown"
	}
}

// ErrorInfo is the error value carried in published state. It is never
// mutated after creation, so copies may share it.
type ErrorInfo struct {
	Kind    ErrorKind
	Message string
	Err     error
	At      time.Time
}

func (e *ErrorInfo) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *ErrorInfo) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Classify converts err into an ErrorInfo stamped with at. It returns nil for
// a nil error.
func Classify(err error, at time.Time) *ErrorInfo {
	if err == nil {
		return nil
	}
	var existing *ErrorInfo
	if errors.As(err, &existing) && existing != nil {
		return existing
	}

	kind := KindFetchFailure
	switch {
	case errors.Is(err, ErrProtocolViolation):
		kind = KindProtocolViolation
	case errors.Is(err, ErrPageLimit), errors.Is(err, ErrDrainTimeout):
		kind = KindLimitExceeded
	}
	return &ErrorInfo{
		Kind:    kind,
		Message: err.Error(),
		Err:     err,
		At:      at,
	}
}

// IsCancellation reports whether err only reflects a cancelled or expired context.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
