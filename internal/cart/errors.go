package cart

import "errors"

var (
	ErrBookingMutationFailed = errors.New("booking mutation failed")
	ErrLineNotFound          = errors.New("cart line not found")
	ErrEmptyCart             = errors.New("cart has no pending lines")
)

// MutationError is a rejected cart or checkout call. It matches
// ErrBookingMutationFailed with errors.Is and is never retried here.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string {
	return "cart " + e.Op + ": " + ErrBookingMutationFailed.Error() + ": " + e.Err.Error()
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

func (e *MutationError) Is(target error) bool {
	return target == ErrBookingMutationFailed
}
