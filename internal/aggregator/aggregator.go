// Package aggregator accumulates the result batches of one search session.
//
// Batches arrive once per poll cycle and routinely repeat results that were
// already delivered. The aggregator keeps exactly one entry per identity key:
// the first one seen. Later copies are ignored even if their content differs,
// so a result's position in arrival order never changes once merged.
package aggregator

import (
	"sync"

	"github.com/dharmasatrya/flightbooking/internal/filter"
	"github.com/dharmasatrya/flightbooking/internal/models"
)

type Aggregator struct {
	mu      sync.RWMutex
	results []models.FlightResult
	index   map[string]int
	dropped int
}

// MergeStats describes the effect of one Merge call.
type MergeStats struct {
	Added      int
	Duplicates int
	Unkeyed    int
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		results: make([]models.FlightResult, 0),
		index:   make(map[string]int),
	}
}

// Merge appends the results of batch whose identity key has not been seen.
// Results without any identity key are dropped because they cannot be
// deduplicated.
func (a *Aggregator) Merge(batch []models.FlightResult) MergeStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	var stats MergeStats
	for _, f := range batch {
		key := f.Key()
		if key == "" {
			stats.Unkeyed++
			a.dropped++
			continue
		}
		if _, ok := a.index[key]; ok {
			stats.Duplicates++
			continue
		}
		a.index[key] = len(a.results)
		a.results = append(a.results, f)
		stats.Added++
	}
	return stats
}

// Results returns a copy of the merged set in arrival order.
func (a *Aggregator) Results() []models.FlightResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]models.FlightResult, len(a.results))
	copy(out, a.results)
	return out
}

func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.results)
}

// Get looks up a merged result by identity key.
func (a *Aggregator) Get(key string) (models.FlightResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i, ok := a.index[key]
	if !ok {
		return models.FlightResult{}, false
	}
	return a.results[i], true
}

// Dropped is the number of unkeyed results discarded so far.
func (a *Aggregator) Dropped() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dropped
}

// View filters and sorts the merged set without changing it.
func (a *Aggregator) View(opts filter.Options) []models.FlightResult {
	return filter.Apply(a.Results(), opts)
}
