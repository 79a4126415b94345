package ranking

import (
	"math"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

const (
	PriceWeight    = 0.5
	DurationWeight = 0.3
	StopsWeight    = 0.2
)

// Scores returns the best-value score of every result, index-aligned with
// the input. The input is not modified.
func Scores(results []models.FlightResult) []float64 {
	scores := make([]float64, len(results))
	if len(results) == 0 {
		return scores
	}

	maxPrice := findMaxPrice(results)
	maxDuration := findMaxDuration(results)

	for i, f := range results {
		scores[i] = CalculateBestValue(f, maxPrice, maxDuration)
	}
	return scores
}

// Lower score = better value
func CalculateBestValue(flight models.FlightResult, maxPrice, maxDuration float64) float64 {
	priceScore := 0.0
	if maxPrice > 0 {
		priceScore = (flight.Price / maxPrice) * 100
	}

	durationScore := 0.0
	if maxDuration > 0 {
		durationScore = (float64(flight.TotalMinutes()) / maxDuration) * 100
	}

	stopsScore := float64(flight.Stops()) * 15
	score := (priceScore * PriceWeight) + (durationScore * DurationWeight) + (stopsScore * StopsWeight)

	return math.Round(score*100) / 100
}

func findMaxPrice(results []models.FlightResult) float64 {
	maxPrice := 0.0
	for _, f := range results {
		if f.Price > maxPrice {
			maxPrice = f.Price
		}
	}
	return maxPrice
}

func findMaxDuration(results []models.FlightResult) float64 {
	maxDuration := 0.0
	for _, f := range results {
		if dur := float64(f.TotalMinutes()); dur > maxDuration {
			maxDuration = dur
		}
	}
	return maxDuration
}
