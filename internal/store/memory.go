package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

type MemoryStore struct {
	mu       sync.RWMutex
	lines    map[string]models.CartLine
	bookings map[string]models.Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lines:    make(map[string]models.CartLine),
		bookings: make(map[string]models.Booking),
	}
}

func (s *MemoryStore) InsertLine(_ context.Context, line models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[line.BookingID] = line
	return nil
}

func (s *MemoryStore) ListLines(_ context.Context, userID string) ([]models.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]models.CartLine, 0)
	for _, l := range s.lines {
		if l.UserID == userID {
			lines = append(lines, l)
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].BookingID < lines[j].BookingID
		}
		return lines[i].CreatedAt.Before(lines[j].CreatedAt)
	})
	return lines, nil
}

func (s *MemoryStore) GetLine(_ context.Context, userID, id string) (models.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lines[id]
	if !ok || l.UserID != userID {
		return models.CartLine{}, ErrNotFound
	}
	return l, nil
}

func (s *MemoryStore) ReplaceLine(_ context.Context, line models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.lines[line.BookingID]
	if !ok || existing.UserID != line.UserID {
		return ErrNotFound
	}
	s.lines[line.BookingID] = line
	return nil
}

func (s *MemoryStore) DeleteLine(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[id]
	if !ok || l.UserID != userID {
		return ErrNotFound
	}
	delete(s.lines, id)
	return nil
}

func (s *MemoryStore) ConfirmLines(_ context.Context, userID, checkoutID string, ids []string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, id := range ids {
		l, ok := s.lines[id]
		if !ok || l.UserID != userID || l.Status != models.CartStatusPending {
			continue
		}
		l.Status = models.CartStatusConfirmed
		l.CheckoutID = checkoutID
		l.UpdatedAt = at
		s.lines[id] = l
		changed++
	}
	return changed, nil
}

func (s *MemoryStore) ReleaseLines(_ context.Context, userID, checkoutID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	released := 0
	for id, l := range s.lines {
		if l.UserID != userID || l.CheckoutID != checkoutID || l.Status != models.CartStatusConfirmed {
			continue
		}
		l.Status = models.CartStatusPending
		l.CheckoutID = ""
		l.UpdatedAt = at
		s.lines[id] = l
		released++
	}
	return released, nil
}

func (s *MemoryStore) InsertBooking(_ context.Context, booking models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[booking.ID] = booking
	return nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id string) (models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) DeleteBooking(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bookings, id)
	return nil
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}
