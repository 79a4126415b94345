package search

import (
	"errors"
	"fmt"
)

var (
	ErrSearchInitiationFailed = errors.New("search initiation failed")
	ErrPollExhausted          = errors.New("poll budget exhausted without results")
	ErrNotStarted             = errors.New("poller has not been started")
	ErrAlreadyStarted         = errors.New("poller already started")
	ErrEmptySearchID          = errors.New("empty search id")
)

// InitiationError wraps the reason the provider did not hand out a usable
// search id. It matches ErrSearchInitiationFailed with errors.Is.
type InitiationError struct {
	Err error
}

func (e *InitiationError) Error() string {
	if e.Err == nil {
		return ErrSearchInitiationFailed.Error()
	}
	return ErrSearchInitiationFailed.Error() + ": " + e.Err.Error()
}

func (e *InitiationError) Unwrap() error {
	return e.Err
}

func (e *InitiationError) Is(target error) bool {
	return target == ErrSearchInitiationFailed
}

// PollTransportError is a network or decoding failure while polling a
// session that had not produced any result yet.
type PollTransportError struct {
	SearchID string
	Attempt  int
	Err      error
}

func (e *PollTransportError) Error() string {
	return fmt.Sprintf("poll %d of search %s: %v", e.Attempt, e.SearchID, e.Err)
}

func (e *PollTransportError) Unwrap() error {
	return e.Err
}
