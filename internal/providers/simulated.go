package providers

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/flightbooking/internal/models"
	"github.com/dharmasatrya/flightbooking/internal/timezone"
)

var (
	simCarriers = []string{"AF", "BA", "DL", "KL", "LH", "UA", "SQ", "EK"}
	simHubs     = []string{"AMS", "FRA", "DXB", "SIN", "LHR"}
)

type SimulatedConfig struct {
	// Trips is the number of itineraries a search eventually yields.
	Trips int
	// Step is how many completion points each poll adds.
	Step int
	// Resend is how many already released trips are sent again per poll.
	Resend      int
	FailureRate float64
	Seed        int64
}

func DefaultSimulatedConfig() SimulatedConfig {
	return SimulatedConfig{
		Trips:  12,
		Step:   25,
		Resend: 2,
		Seed:   time.Now().UnixNano(),
	}
}

type simSearch struct {
	trips    []models.FlightResult
	released int
	complete int
}

// SimulatedProvider is an in-memory vendor for local development and tests.
// Results trickle out over several polls and repeat earlier trips the way
// real vendors do.
type SimulatedProvider struct {
	cfg      SimulatedConfig
	mu       sync.Mutex
	rng      *rand.Rand
	searches map[string]*simSearch
}

func NewSimulatedProvider(cfg SimulatedConfig) *SimulatedProvider {
	if cfg.Trips < 0 {
		cfg.Trips = 0
	}
	if cfg.Step <= 0 {
		cfg.Step = 25
	}
	return &SimulatedProvider{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		searches: make(map[string]*simSearch),
	}
}

func (p *SimulatedProvider) Name() string {
	return "simulated"
}

func (p *SimulatedProvider) StartSearch(ctx context.Context, req models.SearchRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	day, err := time.ParseInLocation(models.DateLayout, req.Date, timezone.GetLocationByAirport(req.Origin))
	if err != nil {
		return "", NewProviderError(p.Name(), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	trips := make([]models.FlightResult, 0, p.cfg.Trips)
	for i := 0; i < p.cfg.Trips; i++ {
		trips = append(trips, p.trip(i, day, req))
	}

	id := uuid.NewString()
	p.searches[id] = &simSearch{trips: trips}
	return id, nil
}

func (p *SimulatedProvider) Results(ctx context.Context, searchID string) (models.ResultsPage, error) {
	if err := ctx.Err(); err != nil {
		return models.ResultsPage{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.searches[searchID]
	if !ok {
		return models.ResultsPage{}, NewProviderError(p.Name(), fmt.Errorf("%w: %s", ErrSearchNotFound, searchID))
	}
	if p.cfg.FailureRate > 0 && p.rng.Float64() < p.cfg.FailureRate {
		return models.ResultsPage{}, NewProviderError(p.Name(), ErrUnavailable)
	}

	s.complete = min(100, s.complete+p.cfg.Step)
	target := int(math.Ceil(float64(len(s.trips)) * float64(s.complete) / 100))

	from := max(0, s.released-p.cfg.Resend)
	page := models.ResultsPage{
		Complete: s.complete,
		Results:  append([]models.FlightResult(nil), s.trips[from:target]...),
	}
	s.released = target
	return page, nil
}

func (p *SimulatedProvider) trip(i int, day time.Time, req models.SearchRequest) models.FlightResult {
	carrier := simCarriers[p.rng.Intn(len(simCarriers))]
	dep := day.Add(time.Duration(6+i%16)*time.Hour + time.Duration(p.rng.Intn(4)*15)*time.Minute)

	var legs []models.Leg
	if req.DirectOnly || i%3 != 2 {
		d := 90 + p.rng.Intn(540)
		legs = []models.Leg{p.leg(req.Origin, req.Destination, carrier, dep, d)}
	} else {
		hub := p.hub(req.Origin, req.Destination)
		d1 := 60 + p.rng.Intn(300)
		d2 := 60 + p.rng.Intn(300)
		first := p.leg(req.Origin, hub, carrier, dep, d1)
		second := p.leg(hub, req.Destination, carrier, first.Arrival.Add(75*time.Minute), d2)
		legs = []models.Leg{first, second}
	}

	price := math.Round((80+p.rng.Float64()*900)*100) / 100
	return models.FlightResult{
		TripID:         uuid.NewString(),
		Legs:           legs,
		Price:          price,
		Currency:       "USD",
		CabinClass:     req.CabinClass,
		SeatsAvailable: 1 + p.rng.Intn(9),
	}
}

func (p *SimulatedProvider) leg(from, to, carrier string, dep time.Time, minutes int) models.Leg {
	return models.Leg{
		Origin:          from,
		Destination:     to,
		Departure:       dep.UTC(),
		Arrival:         dep.Add(time.Duration(minutes) * time.Minute).UTC(),
		Carrier:         carrier,
		FlightNumber:    fmt.Sprintf("%s%d", carrier, 100+p.rng.Intn(900)),
		DurationMinutes: minutes,
	}
}

func (p *SimulatedProvider) hub(origin, destination string) string {
	for _, h := range simHubs {
		if h != origin && h != destination {
			return h
		}
	}
	return simHubs[0]
}
