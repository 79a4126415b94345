package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

// Starter submits a search to the provider-facing endpoint.
type Starter interface {
	StartSearch(ctx context.Context, req models.SearchRequest) (string, error)
}

// ResultsFetcher reads the current state of a search session.
type ResultsFetcher interface {
	Results(ctx context.Context, searchID string) (models.ResultsPage, error)
}

type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

type Initiator struct {
	starter Starter
	options
}

func NewInitiator(starter Starter, opts ...Option) *Initiator {
	return &Initiator{starter: starter, options: buildOptions(opts)}
}

// Start validates req and submits it once. Validation failures are returned
// as models.ValidationError without touching the network. Provider failures
// are reported as ErrSearchInitiationFailed and are not retried.
func (i *Initiator) Start(ctx context.Context, req models.SearchRequest) (string, error) {
	if err := req.Validate(i.now()); err != nil {
		return "", err
	}

	searchID, err := i.starter.StartSearch(ctx, req)
	if err != nil {
		i.logger.Warn("search initiation failed",
			"origin", req.Origin, "destination", req.Destination, "date", req.Date, "error", err)
		return "", &InitiationError{Err: err}
	}
	if searchID == "" {
		return "", &InitiationError{Err: ErrEmptySearchID}
	}

	i.logger.Info("search started",
		"search_id", searchID, "origin", req.Origin, "destination", req.Destination, "date", req.Date)
	return searchID, nil
}
