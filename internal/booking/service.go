// Package booking owns cart lines on the server and turns them into
// confirmed bookings.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/flightbooking/internal/models"
	"github.com/dharmasatrya/flightbooking/internal/store"
)

var (
	ErrEmptyCart      = errors.New("no pending cart lines")
	ErrLineNotPending = errors.New("cart line is no longer pending")
	ErrMixedCurrency  = errors.New("cart lines are priced in different currencies")
	ErrCheckoutRace   = errors.New("cart changed during checkout")

	// ErrStatusNotSettable guards statuses only checkout and fulfilment set.
	ErrStatusNotSettable = errors.New("cart line status can only be changed to cancelled")
)

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

type Service struct {
	store  store.Store
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateSelection(flight models.FlightResult, passengers models.PassengerCounts, quantity int) error {
	if flight.Key() == "" {
		return models.ErrMissingFlight
	}
	if err := passengers.Validate(); err != nil {
		return err
	}
	if quantity < 1 {
		return models.ErrInvalidQuantity
	}
	if flight.Price < 0 {
		return models.ErrInvalidPrice
	}
	if flight.Currency == "" {
		return models.ErrMissingCurrency
	}
	return nil
}

func (s *Service) AddLine(ctx context.Context, userID string, req models.AddCartRequest) (models.CartLine, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := validateSelection(req.Flight, req.Passengers, req.Quantity); err != nil {
		return models.CartLine{}, err
	}

	now := s.now()
	line := models.CartLine{
		BookingID:  s.newID(),
		UserID:     userID,
		Flight:     req.Flight,
		Passengers: req.Passengers,
		Quantity:   req.Quantity,
		Status:     models.CartStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.InsertLine(ctx, line); err != nil {
		return models.CartLine{}, fmt.Errorf("failed to save cart line: %w", err)
	}
	s.logger.Info("cart line added", "user_id", userID, "booking_id", line.BookingID, "flight", req.Flight.Key())
	return line, nil
}

func (s *Service) Lines(ctx context.Context, userID string) ([]models.CartLine, error) {
	return s.store.ListLines(ctx, userID)
}

// UpdateLine changes quantity and/or status. Quantity can only change while
// the line is pending. The only status a client may set is cancelled;
// confirmed comes from Checkout.
func (s *Service) UpdateLine(ctx context.Context, userID, id string, req models.UpdateCartRequest) (models.CartLine, error) {
	line, err := s.store.GetLine(ctx, userID, id)
	if err != nil {
		return models.CartLine{}, err
	}

	now := s.now()
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return models.CartLine{}, models.ErrInvalidQuantity
		}
		if line.Status != models.CartStatusPending {
			return models.CartLine{}, ErrLineNotPending
		}
		line.Quantity = *req.Quantity
		line.UpdatedAt = now
	}
	if req.Status != nil && *req.Status != line.Status {
		if *req.Status != models.CartStatusCancelled {
			return models.CartLine{}, ErrStatusNotSettable
		}
		if err := line.Advance(*req.Status, now); err != nil {
			return models.CartLine{}, err
		}
	}

	if err := s.store.ReplaceLine(ctx, line); err != nil {
		return models.CartLine{}, err
	}
	return line, nil
}

func (s *Service) DeleteLine(ctx context.Context, userID, id string) error {
	return s.store.DeleteLine(ctx, userID, id)
}

// Checkout confirms every pending line of the user as one booking. Every
// line is checked before anything is written.
func (s *Service) Checkout(ctx context.Context, userID, customer string) (models.Booking, error) {
	lines, err := s.store.ListLines(ctx, userID)
	if err != nil {
		return models.Booking{}, err
	}

	pending := make([]models.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.Status == models.CartStatusPending {
			pending = append(pending, l)
		}
	}

	booking, err := s.build(userID, customer, pending)
	if err != nil {
		return models.Booking{}, err
	}

	if err := s.store.InsertBooking(ctx, booking); err != nil {
		return models.Booking{}, fmt.Errorf("failed to save booking: %w", err)
	}

	ids := make([]string, len(pending))
	for i, l := range pending {
		ids[i] = l.BookingID
	}
	n, err := s.store.ConfirmLines(ctx, userID, booking.ID, ids, booking.CreatedAt)
	if err == nil && n != len(ids) {
		err = ErrCheckoutRace
	}
	if err != nil {
		s.rollback(ctx, userID, booking.ID)
		return models.Booking{}, fmt.Errorf("failed to confirm cart lines: %w", err)
	}

	s.logger.Info("checkout complete", "user_id", userID, "booking_id", booking.ID, "lines", len(pending), "total", booking.TotalAmount)
	return booking, nil
}

// rollback returns the lines confirmed under bookingID to pending and drops
// the booking. It runs on a fresh context so a cancelled request still
// cleans up.
func (s *Service) rollback(ctx context.Context, userID, bookingID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if n, err := s.store.ReleaseLines(ctx, userID, bookingID, s.now()); err != nil {
		s.logger.Error("failed to release cart lines", "booking_id", bookingID, "error", err)
	} else if n > 0 {
		s.logger.Warn("released cart lines after failed checkout", "booking_id", bookingID, "lines", n)
	}
	if err := s.store.DeleteBooking(ctx, bookingID); err != nil {
		s.logger.Error("failed to roll back booking", "booking_id", bookingID, "error", err)
	}
}

// GuestCheckout books lines held in an anonymous visitor's local cart.
func (s *Service) GuestCheckout(ctx context.Context, customer string, lines []models.CartLine) (models.Booking, error) {
	pending := make([]models.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.Status == "" {
			l.Status = models.CartStatusPending
		}
		if l.BookingID == "" {
			l.BookingID = s.newID()
		}
		l.UserID = ""
		pending = append(pending, l)
	}

	booking, err := s.build("", customer, pending)
	if err != nil {
		return models.Booking{}, err
	}
	if err := s.store.InsertBooking(ctx, booking); err != nil {
		return models.Booking{}, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.Info("guest checkout complete", "booking_id", booking.ID, "lines", len(pending), "total", booking.TotalAmount)
	return booking, nil
}

func (s *Service) Booking(ctx context.Context, id string) (models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *Service) build(userID, customer string, pending []models.CartLine) (models.Booking, error) {
	if len(pending) == 0 {
		return models.Booking{}, ErrEmptyCart
	}

	now := s.now()
	id := s.newID()
	confirmed := make([]models.CartLine, len(pending))
	var total float64
	currency := ""
	for i, l := range pending {
		if err := validateSelection(l.Flight, l.Passengers, l.Quantity); err != nil {
			return models.Booking{}, fmt.Errorf("line %s: %w", l.BookingID, err)
		}
		if err := l.Advance(models.CartStatusConfirmed, now); err != nil {
			return models.Booking{}, fmt.Errorf("line %s: %w", l.BookingID, err)
		}
		if currency == "" {
			currency = l.Flight.Currency
		} else if l.Flight.Currency != currency {
			return models.Booking{}, ErrMixedCurrency
		}
		l.CheckoutID = id
		total += l.Amount()
		confirmed[i] = l
	}

	return models.Booking{
		ID:          id,
		UserID:      userID,
		Customer:    customer,
		Lines:       confirmed,
		TotalAmount: total,
		Currency:    currency,
		Status:      models.CartStatusConfirmed,
		CreatedAt:   now,
	}, nil
}
