package search

import (
	"context"

	"github.com/dharmasatrya/flightbooking/internal/aggregator"
	"github.com/dharmasatrya/flightbooking/internal/models"
)

// Client is the backend surface a full search needs.
type Client interface {
	Starter
	ResultsFetcher
}

// Service runs a search from submission to a final merged result set.
type Service struct {
	client Client
	cfg    Config
	opts   []Option
}

func NewService(client Client, cfg Config, opts ...Option) *Service {
	return &Service{client: client, cfg: cfg, opts: opts}
}

// Start initiates req and returns a poller already bound to the new search
// id. Callers drive it with Run or Tick and read the merged set from its
// Aggregator.
func (s *Service) Start(ctx context.Context, req models.SearchRequest) (*Poller, error) {
	searchID, err := NewInitiator(s.client, s.opts...).Start(ctx, req)
	if err != nil {
		return nil, err
	}

	poller := NewPoller(s.client, aggregator.NewAggregator(), s.cfg, s.opts...)
	if err := poller.Start(searchID); err != nil {
		return nil, err
	}
	return poller, nil
}

// Search initiates req and polls it to completion. The returned session is
// valid even when err is non-nil, except for validation and initiation
// failures where no session exists.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (Session, error) {
	poller, err := s.Start(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return poller.Run(ctx)
}
