// Package store persists cart lines and bookings.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store is scoped by user for cart lines. Bookings are looked up by id alone
// so guest bookings stay reachable.
type Store interface {
	InsertLine(ctx context.Context, line models.CartLine) error
	ListLines(ctx context.Context, userID string) ([]models.CartLine, error)
	GetLine(ctx context.Context, userID, id string) (models.CartLine, error)
	ReplaceLine(ctx context.Context, line models.CartLine) error
	DeleteLine(ctx context.Context, userID, id string) error
	// ConfirmLines moves the given pending lines to confirmed under
	// checkoutID and reports how many were changed. Lines no longer pending
	// are left alone.
	ConfirmLines(ctx context.Context, userID, checkoutID string, ids []string, at time.Time) (int, error)
	// ReleaseLines puts lines confirmed under checkoutID back to pending.
	ReleaseLines(ctx context.Context, userID, checkoutID string, at time.Time) (int, error)

	InsertBooking(ctx context.Context, booking models.Booking) error
	GetBooking(ctx context.Context, id string) (models.Booking, error)
	DeleteBooking(ctx context.Context, id string) error

	Close(ctx context.Context) error
}
