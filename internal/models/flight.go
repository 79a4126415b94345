package models

import (
	"encoding/json"
	"time"
)

type Leg struct {
	Origin          string    `json:"origin" bson:"origin"`
	Destination     string    `json:"destination" bson:"destination"`
	Departure       time.Time `json:"departure" bson:"departure"`
	Arrival         time.Time `json:"arrival" bson:"arrival"`
	Carrier         string    `json:"carrier" bson:"carrier"`
	FlightNumber    string    `json:"flightNumber" bson:"flightNumber"`
	DurationMinutes int       `json:"durationMinutes" bson:"durationMinutes"`
}

// FlightResult is one priced itinerary as reported by the provider. It is
// never modified after it has been received.
type FlightResult struct {
	ID             string          `json:"id,omitempty" bson:"id,omitempty"`
	TripID         string          `json:"trip_id,omitempty" bson:"tripId,omitempty"`
	Legs           []Leg           `json:"legs" bson:"legs"`
	Price          float64         `json:"price" bson:"price"`
	Currency       string          `json:"currency" bson:"currency"`
	CabinClass     string          `json:"cabinClass" bson:"cabinClass"`
	SeatsAvailable int             `json:"seatsAvailable" bson:"seatsAvailable"`
	ProviderRaw    json.RawMessage `json:"providerRaw,omitempty" bson:"-"`
}

// Key returns the identity key used to deduplicate results across poll
// cycles. Empty means the result cannot be identified.
func (f FlightResult) Key() string {
	if f.ID != "" {
		return f.ID
	}
	return f.TripID
}

func (f FlightResult) Stops() int {
	if len(f.Legs) == 0 {
		return 0
	}
	return len(f.Legs) - 1
}

func (f FlightResult) DepartureTime() time.Time {
	if len(f.Legs) == 0 {
		return time.Time{}
	}
	return f.Legs[0].Departure
}

func (f FlightResult) ArrivalTime() time.Time {
	if len(f.Legs) == 0 {
		return time.Time{}
	}
	return f.Legs[len(f.Legs)-1].Arrival
}

// TotalMinutes is the door-to-door duration including layovers. When leg
// timestamps are missing it falls back to the sum of leg durations.
func (f FlightResult) TotalMinutes() int {
	dep, arr := f.DepartureTime(), f.ArrivalTime()
	if !dep.IsZero() && !arr.IsZero() && arr.After(dep) {
		return int(arr.Sub(dep).Minutes())
	}
	total := 0
	for _, l := range f.Legs {
		total += l.DurationMinutes
	}
	return total
}

func (f FlightResult) Carriers() []string {
	seen := make(map[string]bool)
	carriers := make([]string, 0, len(f.Legs))
	for _, l := range f.Legs {
		if l.Carrier == "" || seen[l.Carrier] {
			continue
		}
		seen[l.Carrier] = true
		carriers = append(carriers, l.Carrier)
	}
	return carriers
}
