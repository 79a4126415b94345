package aggregator

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/dharmasatrya/flightbooking/internal/filter"
	"github.com/dharmasatrya/flightbooking/internal/models"
)

func TestMergeFirstSeenWins(t *testing.T) {
	agg := NewAggregator()

	stats := agg.Merge([]models.FlightResult{
		{ID: "f1", Price: 500, CabinClass: "economy"},
		{ID: "f2", Price: 700, CabinClass: "economy"},
	})
	if stats.Added != 2 || stats.Duplicates != 0 {
		t.Fatalf("first batch stats = %+v", stats)
	}

	stats = agg.Merge([]models.FlightResult{
		{ID: "f1", Price: 450, CabinClass: "economy"},
		{TripID: "t3", Price: 300, CabinClass: "business"},
		{Price: 10},
	})
	if stats.Added != 1 || stats.Duplicates != 1 || stats.Unkeyed != 1 {
		t.Fatalf("second batch stats = %+v", stats)
	}

	results := agg.Results()
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ID != "f1" || results[0].Price != 500 {
		t.Errorf("first-seen f1 replaced: %+v", results[0])
	}
	if results[2].Key() != "t3" {
		t.Errorf("arrival order broken: %v", results[2].Key())
	}
	if agg.Dropped() != 1 {
		t.Errorf("Dropped() = %d", agg.Dropped())
	}
	if _, ok := agg.Get("missing"); ok {
		t.Error("Get found a key that was never merged")
	}
	if got, ok := agg.Get("f2"); !ok || got.Price != 700 {
		t.Errorf("Get(f2) = %+v, %v", got, ok)
	}
}

func TestMergeNeverDuplicates(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	agg := NewAggregator()

	for cycle := 0; cycle < 50; cycle++ {
		batch := make([]models.FlightResult, rng.Intn(12))
		for i := range batch {
			batch[i] = models.FlightResult{ID: fmt.Sprintf("f%d", rng.Intn(20)), Price: float64(rng.Intn(1000))}
		}
		agg.Merge(batch)

		seen := make(map[string]bool)
		for _, f := range agg.Results() {
			if seen[f.Key()] {
				t.Fatalf("cycle %d: duplicate key %s", cycle, f.Key())
			}
			seen[f.Key()] = true
		}
	}
}

func TestResultsReturnsCopy(t *testing.T) {
	agg := NewAggregator()
	agg.Merge([]models.FlightResult{{ID: "f1", Price: 1}})

	out := agg.Results()
	out[0].Price = 99

	if agg.Results()[0].Price != 1 {
		t.Error("mutating Results() output changed the aggregator")
	}
}

func TestView(t *testing.T) {
	agg := NewAggregator()
	agg.Merge([]models.FlightResult{
		{ID: "f1", Price: 500, CabinClass: "economy"},
		{ID: "f2", Price: 1500, CabinClass: "business"},
		{ID: "f3", Price: 400, CabinClass: "economy"},
	})

	view := agg.View(filter.Options{CabinClass: "economy", SortBy: filter.SortPrice})
	if len(view) != 2 || view[0].ID != "f3" || view[1].ID != "f1" {
		t.Fatalf("unexpected view %+v", view)
	}
	if agg.Results()[0].ID != "f1" {
		t.Error("View reordered the merged set")
	}
}
