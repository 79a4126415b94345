package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
	"github.com/dharmasatrya/flightbooking/internal/ratelimit"
	"github.com/dharmasatrya/flightbooking/internal/timezone"
)

type vendorStartResponse struct {
	SearchID string `json:"search_id"`
}

type vendorResultsResponse struct {
	Complete int               `json:"complete"`
	Trips    []json.RawMessage `json:"trips"`
}

type vendorTrip struct {
	TripID string      `json:"trip_id"`
	Legs   []vendorLeg `json:"legs"`
	Price  vendorPrice `json:"price"`
	Cabin  string      `json:"cabin"`
	Seats  int         `json:"seats"`
}

type vendorLeg struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Departs  string `json:"departs"`
	Arrives  string `json:"arrives"`
	Carrier  string `json:"carrier"`
	FlightNo string `json:"flight_no"`
	Duration int    `json:"duration_minutes"`
}

type vendorPrice struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("vendor returned %d: %s", e.code, e.body)
}

func (e *statusError) Temporary() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

type HTTPConfig struct {
	Name        string
	BaseURL     string
	Client      *http.Client
	Limiter     *ratelimit.KeyedLimiter
	RetryDelays []time.Duration
	Logger      *slog.Logger
}

func DefaultRetryDelays() []time.Duration {
	return []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}
}

// HTTPProvider talks to a vendor REST API:
//
//	POST {base}/searches        -> {"search_id": "..."}
//	GET  {base}/searches/{id}   -> {"complete": 0-100, "trips": [...]}
type HTTPProvider struct {
	cfg HTTPConfig
}

func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid provider url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Name == "" {
		cfg.Name = "vendor"
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewKeyedLimiterWithDefaults()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HTTPProvider{cfg: cfg}, nil
}

func (p *HTTPProvider) Name() string {
	return p.cfg.Name
}

// StartSearch retries temporary failures along the configured delay ladder.
// Permanent failures are returned at once.
func (p *HTTPProvider) StartSearch(ctx context.Context, req models.SearchRequest) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= len(p.cfg.RetryDelays); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.cfg.RetryDelays[attempt-1]):
			case <-ctx.Done():
				return "", NewProviderError(p.Name(), ctx.Err())
			}
		}

		var resp vendorStartResponse
		err := p.do(ctx, http.MethodPost, "/searches", models.NewSearchBody(req), &resp)
		if err == nil {
			if resp.SearchID == "" {
				return "", NewProviderError(p.Name(), errors.New("empty search id"))
			}
			return resp.SearchID, nil
		}

		lastErr = err
		p.cfg.Logger.Warn("provider start attempt failed", "provider", p.Name(), "attempt", attempt+1, "error", err)
		if !Temporary(err) {
			break
		}
	}

	return "", NewProviderError(p.Name(), lastErr)
}

func (p *HTTPProvider) Results(ctx context.Context, searchID string) (models.ResultsPage, error) {
	var resp vendorResultsResponse
	if err := p.do(ctx, http.MethodGet, "/searches/"+url.PathEscape(searchID), nil, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			err = fmt.Errorf("%w: %s", ErrSearchNotFound, searchID)
		}
		return models.ResultsPage{}, NewProviderError(p.Name(), err)
	}

	page := models.ResultsPage{Complete: resp.Complete, Results: make([]models.FlightResult, 0, len(resp.Trips))}
	for _, raw := range resp.Trips {
		result, err := normalize(raw)
		if err != nil {
			p.cfg.Logger.Warn("skipping malformed trip", "provider", p.Name(), "search_id", searchID, "error", err)
			continue
		}
		page.Results = append(page.Results, result)
	}
	return page, nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body, dest any) error {
	if err := p.cfg.Limiter.Wait(ctx, p.Name()); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.cfg.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// normalize maps one vendor trip to a FlightResult. Leg times without an
// offset are local to the leg's own airport.
func normalize(raw json.RawMessage) (models.FlightResult, error) {
	var t vendorTrip
	if err := json.Unmarshal(raw, &t); err != nil {
		return models.FlightResult{}, err
	}
	if t.TripID == "" {
		return models.FlightResult{}, errors.New("trip without id")
	}
	if len(t.Legs) == 0 {
		return models.FlightResult{}, fmt.Errorf("trip %s has no legs", t.TripID)
	}

	legs := make([]models.Leg, 0, len(t.Legs))
	for _, l := range t.Legs {
		dep, err := timezone.ParseTimeWithOffset(l.Departs, timezone.ZoneName(l.From))
		if err != nil {
			return models.FlightResult{}, fmt.Errorf("trip %s departure: %w", t.TripID, err)
		}
		arr, err := timezone.ParseTimeWithOffset(l.Arrives, timezone.ZoneName(l.To))
		if err != nil {
			return models.FlightResult{}, fmt.Errorf("trip %s arrival: %w", t.TripID, err)
		}
		duration := l.Duration
		if duration == 0 {
			duration = int(arr.Sub(dep).Minutes())
		}
		legs = append(legs, models.Leg{
			Origin:          strings.ToUpper(l.From),
			Destination:     strings.ToUpper(l.To),
			Departure:       dep.UTC(),
			Arrival:         arr.UTC(),
			Carrier:         l.Carrier,
			FlightNumber:    l.FlightNo,
			DurationMinutes: duration,
		})
	}

	return models.FlightResult{
		TripID:         t.TripID,
		Legs:           legs,
		Price:          t.Price.Amount,
		Currency:       strings.ToUpper(t.Price.Currency),
		CabinClass:     strings.ToLower(t.Cabin),
		SeatsAvailable: t.Seats,
		ProviderRaw:    append(json.RawMessage(nil), raw...),
	}, nil
}
