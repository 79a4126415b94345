package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

type fakeBackend struct {
	searchID string
	startErr error
	started  []models.SearchRequest
	*scriptedFetcher
}

func (b *fakeBackend) StartSearch(ctx context.Context, req models.SearchRequest) (string, error) {
	b.started = append(b.started, req)
	return b.searchID, b.startErr
}

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func jfkToCDG() models.SearchRequest {
	return models.SearchRequest{
		Origin:      "JFK",
		Destination: "CDG",
		Date:        "2026-11-01",
		Passengers:  models.PassengerCounts{Adults: 1},
		CabinClass:  models.CabinEconomy,
	}
}

func TestInitiatorStart(t *testing.T) {
	backend := &fakeBackend{searchID: "abc123"}
	initiator := NewInitiator(backend, WithClock(fixedClock), WithLogger(quietLogger()))

	req := jfkToCDG()
	req.Origin = "jfk"
	id, err := initiator.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if id != "abc123" {
		t.Errorf("id = %q", id)
	}
	if len(backend.started) != 1 || backend.started[0].Origin != "JFK" {
		t.Errorf("submitted %+v", backend.started)
	}
}

func TestInitiatorValidationMakesNoCall(t *testing.T) {
	backend := &fakeBackend{searchID: "abc123"}
	initiator := NewInitiator(backend, WithClock(fixedClock), WithLogger(quietLogger()))

	req := jfkToCDG()
	req.Date = "2026-10-01"
	_, err := initiator.Start(context.Background(), req)

	var verr models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(backend.started) != 0 {
		t.Fatal("validation failure reached the network")
	}
}

func TestInitiatorFailures(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
	}{
		{"empty search id", &fakeBackend{}},
		{"non-success envelope", &fakeBackend{startErr: errors.New("provider rejected search")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initiator := NewInitiator(tt.backend, WithClock(fixedClock), WithLogger(quietLogger()))
			_, err := initiator.Start(context.Background(), jfkToCDG())
			if !errors.Is(err, ErrSearchInitiationFailed) {
				t.Fatalf("err = %v, want ErrSearchInitiationFailed", err)
			}
			if len(tt.backend.started) != 1 {
				t.Errorf("initiation retried: %d calls", len(tt.backend.started))
			}
		})
	}
}

func TestServiceSearchScenario(t *testing.T) {
	backend := &fakeBackend{
		searchID:        "abc123",
		scriptedFetcher: &scriptedFetcher{steps: []step{page(40), page(100, "f1")}},
	}
	cfg := DefaultConfig()
	cfg.Interval = time.Millisecond
	svc := NewService(backend, cfg, WithClock(fixedClock), WithLogger(quietLogger()))

	session, err := svc.Search(context.Background(), jfkToCDG())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if backend.Calls() != 2 {
		t.Errorf("polls = %d, want 2", backend.Calls())
	}
	if len(session.Results) != 1 || session.Results[0].ID != "f1" || session.Results[0].Price != 100 {
		t.Errorf("results = %+v", session.Results)
	}
	if session.SearchID != "abc123" || session.State != StateComplete.String() {
		t.Errorf("session = %+v", session)
	}
}

func TestServiceSearchInitiationFailure(t *testing.T) {
	backend := &fakeBackend{scriptedFetcher: &scriptedFetcher{steps: []step{page(100, "f1")}}}
	svc := NewService(backend, DefaultConfig(), WithClock(fixedClock), WithLogger(quietLogger()))

	if _, err := svc.Search(context.Background(), jfkToCDG()); !errors.Is(err, ErrSearchInitiationFailed) {
		t.Fatalf("err = %v", err)
	}
	if backend.Calls() != 0 {
		t.Error("polled without a search id")
	}
}
