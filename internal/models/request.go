package models

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

const (
	CabinEconomy        = "economy"
	CabinPremiumEconomy = "premium_economy"
	CabinBusiness       = "business"
	CabinFirst          = "first"
)

var cabinClasses = map[string]bool{
	CabinEconomy:        true,
	CabinPremiumEconomy: true,
	CabinBusiness:       true,
	CabinFirst:          true,
}

type PassengerCounts struct {
	Adults   int `json:"adults" bson:"adults"`
	Children int `json:"children" bson:"children"`
	Infants  int `json:"infants" bson:"infants"`
}

func (p PassengerCounts) Total() int {
	return p.Adults + p.Children + p.Infants
}

// Validate checks the counts on their own. Adults must be present and each
// infant travels on an adult's lap.
func (p PassengerCounts) Validate() error {
	if p.Adults < 1 {
		return ErrNoAdults
	}
	if p.Children < 0 || p.Infants < 0 {
		return ErrNegativePassengers
	}
	if p.Infants > p.Adults {
		return ErrTooManyInfants
	}
	return nil
}

type SearchRequest struct {
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	Date        string          `json:"date"`
	Passengers  PassengerCounts `json:"passengers"`
	CabinClass  string          `json:"cabinClass"`
	DirectOnly  bool            `json:"directOnly"`
}

// Validate normalises the request in place and rejects it when it cannot be
// sent to the provider. now is the caller's clock; the travel date must be
// the same calendar day or later.
func (r *SearchRequest) Validate(now time.Time) error {
	r.Origin = strings.ToUpper(strings.TrimSpace(r.Origin))
	r.Destination = strings.ToUpper(strings.TrimSpace(r.Destination))
	r.CabinClass = strings.ToLower(strings.TrimSpace(r.CabinClass))

	if r.Origin == "" {
		return ErrMissingOrigin
	}
	if !IsAirportCode(r.Origin) {
		return ErrInvalidOrigin
	}
	if r.Destination == "" {
		return ErrMissingDestination
	}
	if !IsAirportCode(r.Destination) {
		return ErrInvalidDestination
	}
	if r.Origin == r.Destination {
		return ErrSameAirports
	}
	if r.Date == "" {
		return ErrMissingDate
	}
	date, err := time.ParseInLocation(DateLayout, r.Date, now.Location())
	if err != nil {
		return ErrInvalidDate
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return ErrDateInPast
	}
	if err := r.Passengers.Validate(); err != nil {
		return err
	}
	if r.CabinClass == "" {
		r.CabinClass = CabinEconomy
	}
	if !cabinClasses[r.CabinClass] {
		return ErrInvalidCabinClass
	}
	return nil
}

// IsAirportCode reports whether s is a three-letter IATA airport code.
func IsAirportCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin      ValidationError = "origin is required"
	ErrInvalidOrigin      ValidationError = "origin must be a 3-letter airport code"
	ErrMissingDestination ValidationError = "destination is required"
	ErrInvalidDestination ValidationError = "destination must be a 3-letter airport code"
	ErrSameAirports       ValidationError = "origin and destination must differ"
	ErrMissingDate        ValidationError = "date is required"
	ErrInvalidDate        ValidationError = "date must be formatted as YYYY-MM-DD"
	ErrDateInPast         ValidationError = "date must be today or later"
	ErrNoAdults           ValidationError = "at least one adult is required"
	ErrNegativePassengers ValidationError = "passenger counts cannot be negative"
	ErrTooManyInfants     ValidationError = "infants cannot outnumber adults"
	ErrInvalidCabinClass  ValidationError = "cabin class must be economy, premium_economy, business or first"
	ErrInvalidQuantity    ValidationError = "quantity must be at least 1"
	ErrMissingFlight      ValidationError = "flight result without id"
	ErrInvalidPrice       ValidationError = "flight price cannot be negative"
	ErrMissingCurrency    ValidationError = "flight price has no currency"
)
