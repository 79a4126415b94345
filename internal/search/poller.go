package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/aggregator"
	"github.com/dharmasatrya/flightbooking/internal/models"
)

type State int

const (
	StateIdle State = iota
	StatePolling
	StateComplete
	StateExhausted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateComplete:
		return "complete"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) Terminal() bool {
	return s >= StateComplete
}

type Config struct {
	// Interval is the fixed delay between poll cycles when driven by Run.
	Interval time.Duration
	// MaxAttempts bounds the number of poll requests. Zero means unbounded.
	MaxAttempts int
	// MaxDuration bounds wall time since Start. Zero means unbounded.
	MaxDuration time.Duration
	// StallCycles is how many consecutive polls must repeat the previous
	// completion value before the session counts as stalled.
	StallCycles int
	// StallThreshold is the completion percentage a stalled session must
	// exceed for its partial results to be accepted as final.
	StallThreshold int
}

func DefaultConfig() Config {
	return Config{
		Interval:       2 * time.Second,
		MaxAttempts:    30,
		StallCycles:    3,
		StallThreshold: 50,
	}
}

// Session is a point-in-time view of a poller.
type Session struct {
	SearchID          string                `json:"searchId"`
	State             string                `json:"state"`
	CompletionPercent int                   `json:"completionPercent"`
	Attempts          int                   `json:"attemptsMade"`
	Results           []models.FlightResult `json:"results"`
	// NoFlights is set when the provider finished without any result.
	NoFlights bool `json:"noFlights,omitempty"`
	// Stalled is set when polling stopped on the stuck-counter heuristic.
	Stalled bool `json:"stalled,omitempty"`
	// Partial is set when a transport error ended polling after results
	// had already been merged.
	Partial bool `json:"partial,omitempty"`
}

// Poller is the state machine behind one search session:
//
//	Idle -> Polling -> {Complete, Exhausted, Failed, Cancelled}
//
// Each Tick issues at most one results request. Ticks are expected to be
// driven by a single scheduler; a Tick that overlaps one still in flight is a
// no-op. Responses are assumed to arrive in the order they were requested;
// nothing reconciles a stale page that arrives late.
type Poller struct {
	cfg     Config
	fetcher ResultsFetcher
	agg     *aggregator.Aggregator
	options

	mu        sync.Mutex
	state     State
	searchID  string
	startedAt time.Time
	attempts  int
	complete  int
	unchanged int
	inFlight  bool
	noFlights bool
	stalled   bool
	partial   bool
	err       error
}

func NewPoller(fetcher ResultsFetcher, agg *aggregator.Aggregator, cfg Config, opts ...Option) *Poller {
	if agg == nil {
		agg = aggregator.NewAggregator()
	}
	if cfg.StallCycles <= 0 {
		cfg.StallCycles = DefaultConfig().StallCycles
	}
	return &Poller{
		cfg:     cfg,
		fetcher: fetcher,
		agg:     agg,
		options: buildOptions(opts),
	}
}

// Start moves the poller from Idle to Polling for searchID.
func (p *Poller) Start(searchID string) error {
	if searchID == "" {
		return ErrEmptySearchID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return ErrAlreadyStarted
	}
	p.searchID = searchID
	p.state = StatePolling
	p.startedAt = p.now()
	return nil
}

// Tick performs one poll cycle and returns the resulting state. The error is
// non-nil only on the cycle that moves the poller into Failed or into an
// Exhausted state without results, or when ctx ends the request. Terminal
// pollers return their state without issuing a request.
func (p *Poller) Tick(ctx context.Context) (State, error) {
	p.mu.Lock()
	switch {
	case p.state == StateIdle:
		p.mu.Unlock()
		return StateIdle, ErrNotStarted
	case p.state != StatePolling || p.inFlight:
		state := p.state
		p.mu.Unlock()
		return state, nil
	}
	p.inFlight = true
	searchID := p.searchID
	p.mu.Unlock()

	page, err := p.fetcher.Results(ctx, searchID)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false

	if p.state != StatePolling {
		// Cancelled while the request was in flight.
		return p.state, nil
	}
	if err != nil && ctx.Err() != nil {
		return p.state, ctx.Err()
	}

	p.attempts++
	if err != nil {
		return p.failTransport(searchID, err)
	}

	merged := p.agg.Merge(page.Results)
	p.observe(page.Complete)
	total := p.agg.Len()

	p.logger.Debug("poll cycle",
		"search_id", searchID, "attempt", p.attempts, "complete", page.Complete,
		"added", merged.Added, "duplicates", merged.Duplicates, "total", total)

	switch {
	case page.Complete >= 100 && total > 0:
		p.finish(StateComplete)
	case page.Complete >= 100:
		p.noFlights = true
		p.finish(StateComplete)
	case total > 0 && p.isStalled():
		p.stalled = true
		p.finish(StateComplete)
	case p.budgetSpent():
		p.finish(StateExhausted)
		if total == 0 {
			p.err = fmt.Errorf("search %s after %d attempts: %w", searchID, p.attempts, ErrPollExhausted)
			return p.state, p.err
		}
	}
	return p.state, nil
}

func (p *Poller) failTransport(searchID string, err error) (State, error) {
	if p.agg.Len() > 0 {
		p.partial = true
		p.logger.Warn("poll failed, keeping partial results",
			"search_id", searchID, "attempt", p.attempts, "results", p.agg.Len(), "error", err)
		p.finish(StateComplete)
		return p.state, nil
	}

	p.err = &PollTransportError{SearchID: searchID, Attempt: p.attempts, Err: err}
	p.logger.Error("poll failed before any result", "search_id", searchID, "attempt", p.attempts, "error", err)
	p.finish(StateFailed)
	return p.state, p.err
}

// observe records the reported completion. The provider does not promise a
// monotonic counter, so the value is taken as reported.
func (p *Poller) observe(complete int) {
	if p.attempts > 1 && complete == p.complete {
		p.unchanged++
	} else {
		p.unchanged = 0
	}
	p.complete = complete
}

func (p *Poller) isStalled() bool {
	return p.unchanged >= p.cfg.StallCycles && p.complete > p.cfg.StallThreshold
}

func (p *Poller) budgetSpent() bool {
	if p.cfg.MaxAttempts > 0 && p.attempts >= p.cfg.MaxAttempts {
		return true
	}
	return p.cfg.MaxDuration > 0 && p.now().Sub(p.startedAt) >= p.cfg.MaxDuration
}

func (p *Poller) finish(state State) {
	p.state = state
	p.logger.Info("polling stopped",
		"search_id", p.searchID, "state", state.String(), "attempts", p.attempts,
		"complete", p.complete, "results", p.agg.Len(), "dropped", p.agg.Dropped())
}

// Cancel stops scheduling for a session whose owner went away. A request
// already in flight is not interrupted, but its response is discarded.
func (p *Poller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Terminal() {
		return
	}
	p.state = StateCancelled
	p.logger.Info("polling cancelled", "search_id", p.searchID, "attempts", p.attempts)
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err is the error that ended the session, if any.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Poller) Session() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Session{
		SearchID:          p.searchID,
		State:             p.state.String(),
		CompletionPercent: p.complete,
		Attempts:          p.attempts,
		Results:           p.agg.Results(),
		NoFlights:         p.noFlights,
		Stalled:           p.stalled,
		Partial:           p.partial,
	}
}

func (p *Poller) Aggregator() *aggregator.Aggregator {
	return p.agg
}

// Run drives the poller on a fixed-delay ticker until it reaches a terminal
// state or ctx is done. The first cycle runs immediately. When ctx ends the
// poller is cancelled, so no further cycle is ever scheduled for it.
func (p *Poller) Run(ctx context.Context) (Session, error) {
	interval := p.cfg.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state, err := p.Tick(ctx)
		if state.Terminal() {
			return p.Session(), err
		}
		if errors.Is(err, ErrNotStarted) {
			return p.Session(), err
		}

		select {
		case <-ctx.Done():
			p.Cancel()
			return p.Session(), ctx.Err()
		case <-ticker.C:
		}
	}
}
