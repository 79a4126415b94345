// Package filter narrows and orders a merged result set. Every function here
// is pure: the input slice is never reordered or modified, and sorting is
// stable so ties keep the order in which results first arrived.
package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
	"github.com/dharmasatrya/flightbooking/internal/ranking"
)

const (
	SortPrice     = "price"
	SortDuration  = "duration"
	SortDeparture = "departure"
	SortArrival   = "arrival"
	SortStops     = "stops"
	SortBestValue = "best_value"
)

type Options struct {
	CabinClass       string   `json:"cabin_class,omitempty"`
	DirectOnly       bool     `json:"direct_only,omitempty"`
	PriceMin         *float64 `json:"price_min,omitempty"`
	PriceMax         *float64 `json:"price_max,omitempty"`
	MaxStops         *int     `json:"max_stops,omitempty"`
	Airlines         []string `json:"airlines,omitempty"`
	DepartureTimeMin *string  `json:"departure_time_min,omitempty"`
	DepartureTimeMax *string  `json:"departure_time_max,omitempty"`
	MaxDuration      *int     `json:"max_duration,omitempty"`
	SortBy           string   `json:"sort_by,omitempty"`
	SortOrder        string   `json:"sort_order,omitempty"`
}

func Apply(results []models.FlightResult, opts Options) []models.FlightResult {
	filtered := applyFilters(results, opts)
	return applySort(filtered, opts.SortBy, opts.SortOrder)
}

func applyFilters(results []models.FlightResult, opts Options) []models.FlightResult {
	out := make([]models.FlightResult, 0, len(results))
	for _, f := range results {
		if matches(f, opts) {
			out = append(out, f)
		}
	}
	return out
}

func matches(f models.FlightResult, opts Options) bool {
	if opts.CabinClass != "" && !strings.EqualFold(f.CabinClass, opts.CabinClass) {
		return false
	}
	if opts.DirectOnly && f.Stops() > 0 {
		return false
	}

	if opts.PriceMin != nil && f.Price < *opts.PriceMin {
		return false
	}
	if opts.PriceMax != nil && f.Price > *opts.PriceMax {
		return false
	}

	if opts.MaxStops != nil && f.Stops() > *opts.MaxStops {
		return false
	}

	if len(opts.Airlines) > 0 && !operatedBy(f, opts.Airlines) {
		return false
	}

	dep := f.DepartureTime()
	if opts.DepartureTimeMin != nil && !dep.IsZero() {
		if minTime, err := parseTimeOfDay(*opts.DepartureTimeMin); err == nil {
			if dep.Hour()*60+dep.Minute() < minTime {
				return false
			}
		}
	}
	if opts.DepartureTimeMax != nil && !dep.IsZero() {
		if maxTime, err := parseTimeOfDay(*opts.DepartureTimeMax); err == nil {
			if dep.Hour()*60+dep.Minute() > maxTime {
				return false
			}
		}
	}

	if opts.MaxDuration != nil && f.TotalMinutes() > *opts.MaxDuration {
		return false
	}

	return true
}

func operatedBy(f models.FlightResult, airlines []string) bool {
	for _, carrier := range f.Carriers() {
		for _, airline := range airlines {
			if strings.EqualFold(carrier, airline) {
				return true
			}
		}
	}
	return false
}

func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func applySort(results []models.FlightResult, sortBy, sortOrder string) []models.FlightResult {
	if len(results) < 2 {
		return results
	}

	descending := strings.EqualFold(sortOrder, "desc")

	var less func(i, j int) bool
	switch strings.ToLower(sortBy) {
	case SortDuration:
		less = func(i, j int) bool {
			return results[i].TotalMinutes() < results[j].TotalMinutes()
		}
	case SortDeparture:
		less = func(i, j int) bool {
			return results[i].DepartureTime().Before(results[j].DepartureTime())
		}
	case SortArrival:
		less = func(i, j int) bool {
			return results[i].ArrivalTime().Before(results[j].ArrivalTime())
		}
	case SortStops:
		less = func(i, j int) bool {
			return results[i].Stops() < results[j].Stops()
		}
	case SortBestValue:
		return sortByScore(results, descending)
	default:
		less = func(i, j int) bool {
			return results[i].Price < results[j].Price
		}
	}

	if descending {
		asc := less
		less = func(i, j int) bool { return asc(j, i) }
	}
	sort.SliceStable(results, less)
	return results
}

// sortByScore keeps the score attached to its result while sorting.
func sortByScore(results []models.FlightResult, descending bool) []models.FlightResult {
	type scored struct {
		flight models.FlightResult
		score  float64
	}
	scores := ranking.Scores(results)
	items := make([]scored, len(results))
	for i := range results {
		items[i] = scored{flight: results[i], score: scores[i]}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if descending {
			return items[i].score > items[j].score
		}
		return items[i].score < items[j].score
	})
	for i := range items {
		results[i] = items[i].flight
	}
	return results
}
