package filter

import (
	"reflect"
	"testing"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

var base = time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

func flight(id, cabin string, price float64, depHour, minutes, legs int) models.FlightResult {
	dep := base.Add(time.Duration(depHour) * time.Hour)
	f := models.FlightResult{ID: id, CabinClass: cabin, Price: price, Currency: "USD"}
	per := time.Duration(minutes/legs) * time.Minute
	at := dep
	for i := 0; i < legs; i++ {
		f.Legs = append(f.Legs, models.Leg{
			Carrier:         "AF",
			Departure:       at,
			Arrival:         at.Add(per),
			DurationMinutes: minutes / legs,
		})
		at = at.Add(per)
	}
	return f
}

func ids(results []models.FlightResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func sample() []models.FlightResult {
	return []models.FlightResult{
		flight("a", "economy", 500, 9, 480, 1),
		flight("b", "business", 1800, 7, 470, 1),
		flight("c", "economy", 450, 12, 600, 2),
		flight("d", "economy", 500, 6, 420, 1),
		flight("e", "Economy", 450, 18, 510, 1),
	}
}

func TestApplySortStable(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"price ties keep arrival order", Options{SortBy: SortPrice}, []string{"c", "e", "a", "d", "b"}},
		{"price desc ties keep arrival order", Options{SortBy: SortPrice, SortOrder: "desc"}, []string{"b", "a", "d", "c", "e"}},
		{"duration", Options{SortBy: SortDuration}, []string{"d", "b", "a", "e", "c"}},
		{"departure", Options{SortBy: SortDeparture}, []string{"d", "b", "a", "c", "e"}},
		{"stops", Options{SortBy: SortStops}, []string{"a", "b", "d", "e", "c"}},
		{"unknown key falls back to price", Options{SortBy: "nonsense"}, []string{"c", "e", "a", "d", "b"}},
		{"cabin filter", Options{CabinClass: "economy", SortBy: SortPrice}, []string{"c", "e", "a", "d"}},
		{"direct only", Options{DirectOnly: true, SortBy: SortPrice}, []string{"e", "a", "d", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(sample(), tt.opts))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyIsPureAndIdempotent(t *testing.T) {
	in := sample()
	before := ids(in)
	opts := Options{CabinClass: "economy", SortBy: SortDuration}

	first := Apply(in, opts)
	second := Apply(in, opts)

	if !reflect.DeepEqual(ids(in), before) {
		t.Fatalf("input reordered: %v", ids(in))
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated Apply differs: %v vs %v", ids(first), ids(second))
	}
	if again := Apply(first, opts); !reflect.DeepEqual(again, first) {
		t.Fatalf("Apply on sorted output changed order: %v", ids(again))
	}
}

func TestApplyFilters(t *testing.T) {
	minPrice, maxPrice := 460.0, 1000.0
	maxStops := 0
	maxDuration := 500
	depMin := "07:00"

	got := ids(Apply(sample(), Options{PriceMin: &minPrice, PriceMax: &maxPrice}))
	if !reflect.DeepEqual(got, []string{"a", "d"}) {
		t.Errorf("price range: %v", got)
	}
	got = ids(Apply(sample(), Options{MaxStops: &maxStops, MaxDuration: &maxDuration}))
	if !reflect.DeepEqual(got, []string{"a", "d", "b"}) {
		t.Errorf("stops+duration: %v", got)
	}
	got = ids(Apply(sample(), Options{DepartureTimeMin: &depMin, Airlines: []string{"af"}}))
	if !reflect.DeepEqual(got, []string{"c", "e", "a", "b"}) {
		t.Errorf("departure min: %v", got)
	}
	if got := Apply(sample(), Options{Airlines: []string{"BA"}}); len(got) != 0 {
		t.Errorf("airline filter kept %v", ids(got))
	}
}

func TestCabinFilter(t *testing.T) {
	got := ids(Apply(sample(), Options{CabinClass: "Business"}))
	if !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("got %v", got)
	}
	if all := Apply(sample(), Options{}); len(all) != 5 {
		t.Errorf("empty cabin should keep all, got %d", len(all))
	}
}

func TestBestValueSort(t *testing.T) {
	results := []models.FlightResult{
		flight("slow-cheap", "economy", 300, 8, 900, 3),
		flight("fast-cheap", "economy", 320, 8, 400, 1),
		flight("fast-dear", "economy", 1200, 8, 380, 1),
	}
	got := ids(Apply(results, Options{SortBy: SortBestValue}))
	if got[0] != "fast-cheap" {
		t.Errorf("expected fast-cheap first, got %v", got)
	}
}
