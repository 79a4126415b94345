package ranking

import (
	"testing"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

func TestScores(t *testing.T) {
	dep := time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC)
	results := []models.FlightResult{
		{ID: "a", Price: 200, Legs: []models.Leg{{Departure: dep, Arrival: dep.Add(100 * time.Minute)}}},
		{ID: "b", Price: 100, Legs: []models.Leg{
			{Departure: dep, Arrival: dep.Add(60 * time.Minute)},
			{Departure: dep.Add(150 * time.Minute), Arrival: dep.Add(200 * time.Minute)},
		}},
	}

	scores := Scores(results)
	if len(scores) != 2 {
		t.Fatalf("got %d scores", len(scores))
	}
	// a: price 100%, duration 50%, no stops -> 50 + 15 = 65
	if scores[0] != 65 {
		t.Errorf("a score = %v, want 65", scores[0])
	}
	// b: price 50%, duration 100%, one stop -> 25 + 30 + 3 = 58
	if scores[1] != 58 {
		t.Errorf("b score = %v, want 58", scores[1])
	}
}

func TestScoresEmpty(t *testing.T) {
	if got := Scores(nil); len(got) != 0 {
		t.Errorf("expected no scores, got %v", got)
	}
}
