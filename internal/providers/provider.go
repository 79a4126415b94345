package providers

import (
	"context"
	"errors"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

// Provider is an upstream flight search vendor. A search is started once and
// then polled for progressively completed result pages.
type Provider interface {
	Name() string
	StartSearch(ctx context.Context, req models.SearchRequest) (string, error)
	Results(ctx context.Context, searchID string) (models.ResultsPage, error)
}

var (
	ErrSearchNotFound = errors.New("search not found")
	ErrUnavailable    = errors.New("provider temporarily unavailable")
)

type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Err:      err,
	}
}

// Temporary reports whether a failed call may succeed when retried.
func Temporary(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return false
}
