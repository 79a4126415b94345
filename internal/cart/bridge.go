// Package cart turns a selected flight result into a booking.
//
// Anonymous visitors keep their cart in client-local storage and nothing is
// sent to the backend until checkout. Once a bearer token is present every
// operation goes to the backend's /cart endpoints instead. The Bridge picks
// the strategy per call, so signing in or out takes effect immediately.
package cart

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

// Strategy is one place a cart can live.
type Strategy interface {
	Lines(ctx context.Context) ([]models.CartLine, error)
	Add(ctx context.Context, line models.CartLine) (models.CartLine, error)
	Remove(ctx context.Context, id string) error
	SetQuantity(ctx context.Context, id string, n int) (models.CartLine, error)
	Checkout(ctx context.Context, customer string) (models.Booking, error)
}

// Session reports the current bearer token. Empty means anonymous.
type Session interface {
	Token() string
}

type StaticSession string

func (s StaticSession) Token() string { return string(s) }

type Option func(*Bridge)

func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(b *Bridge) { b.newID = newID }
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

type Bridge struct {
	session Session
	local   Strategy
	remote  Strategy
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

func NewBridge(session Session, local, remote Strategy, opts ...Option) *Bridge {
	b := &Bridge{
		session: session,
		local:   local,
		remote:  remote,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) Authenticated() bool {
	return b.session != nil && b.session.Token() != ""
}

func (b *Bridge) strategy() Strategy {
	if b.Authenticated() {
		return b.remote
	}
	return b.local
}

func (b *Bridge) AddToCart(ctx context.Context, result models.FlightResult, passengers models.PassengerCounts) (models.CartLine, error) {
	if result.Key() == "" {
		return models.CartLine{}, models.ErrMissingFlight
	}
	if err := passengers.Validate(); err != nil {
		return models.CartLine{}, err
	}

	now := b.now()
	line := models.CartLine{
		BookingID:  b.newID(),
		Flight:     result,
		Passengers: passengers,
		Quantity:   1,
		Status:     models.CartStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	added, err := b.strategy().Add(ctx, line)
	if err != nil {
		return models.CartLine{}, err
	}
	b.logger.Info("added to cart", "booking_id", added.BookingID, "flight", result.Key(), "authenticated", b.Authenticated())
	return added, nil
}

func (b *Bridge) RemoveFromCart(ctx context.Context, id string) error {
	if err := b.strategy().Remove(ctx, id); err != nil {
		return err
	}
	b.logger.Info("removed from cart", "booking_id", id, "authenticated", b.Authenticated())
	return nil
}

func (b *Bridge) UpdateQuantity(ctx context.Context, id string, n int) (models.CartLine, error) {
	if n < 1 {
		return models.CartLine{}, models.ErrInvalidQuantity
	}
	return b.strategy().SetQuantity(ctx, id, n)
}

func (b *Bridge) Lines(ctx context.Context) ([]models.CartLine, error) {
	return b.strategy().Lines(ctx)
}

// Checkout turns every pending line into one confirmed booking with a single
// backend call. On failure the cart is left exactly as it was.
func (b *Bridge) Checkout(ctx context.Context, customer string) (models.Booking, error) {
	booking, err := b.strategy().Checkout(ctx, customer)
	if err != nil {
		b.logger.Warn("checkout failed", "authenticated", b.Authenticated(), "error", err)
		return models.Booking{}, err
	}
	b.logger.Info("checkout complete", "booking_id", booking.ID, "lines", len(booking.Lines), "total", booking.TotalAmount)
	return booking, nil
}
