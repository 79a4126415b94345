package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

const DefaultStorageKey = "flightbooking.cart"

// Checkouter submits pending lines for confirmation.
type Checkouter interface {
	Checkout(ctx context.Context, req models.CheckoutRequest) (models.Booking, error)
}

// LocalCart keeps cart lines as one JSON array under a single storage key.
// Every operation is a read-modify-write of that array; callers that share
// a Storage between processes must serialise their own access.
type LocalCart struct {
	storage  Storage
	key      string
	checkout Checkouter
	now      func() time.Time
}

func NewLocalCart(storage Storage, key string, checkout Checkouter) *LocalCart {
	if key == "" {
		key = DefaultStorageKey
	}
	return &LocalCart{storage: storage, key: key, checkout: checkout, now: time.Now}
}

func (c *LocalCart) load(ctx context.Context) ([]models.CartLine, error) {
	data, ok, err := c.storage.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read local cart: %w", err)
	}
	if !ok || len(data) == 0 {
		return []models.CartLine{}, nil
	}
	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode local cart: %w", err)
	}
	return lines, nil
}

func (c *LocalCart) save(ctx context.Context, lines []models.CartLine) error {
	if len(lines) == 0 {
		return c.storage.Remove(ctx, c.key)
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode local cart: %w", err)
	}
	return c.storage.Set(ctx, c.key, data)
}

func (c *LocalCart) Lines(ctx context.Context) ([]models.CartLine, error) {
	return c.load(ctx)
}

func (c *LocalCart) Add(ctx context.Context, line models.CartLine) (models.CartLine, error) {
	lines, err := c.load(ctx)
	if err != nil {
		return models.CartLine{}, err
	}
	lines = append(lines, line)
	if err := c.save(ctx, lines); err != nil {
		return models.CartLine{}, err
	}
	return line, nil
}

func (c *LocalCart) Remove(ctx context.Context, id string) error {
	lines, err := c.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(lines, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	lines = append(lines[:idx], lines[idx+1:]...)
	return c.save(ctx, lines)
}

func (c *LocalCart) SetQuantity(ctx context.Context, id string, n int) (models.CartLine, error) {
	lines, err := c.load(ctx)
	if err != nil {
		return models.CartLine{}, err
	}
	idx := indexOf(lines, id)
	if idx < 0 {
		return models.CartLine{}, fmt.Errorf("%w: %s", ErrLineNotFound, id)
	}
	lines[idx].Quantity = n
	lines[idx].UpdatedAt = c.now()
	if err := c.save(ctx, lines); err != nil {
		return models.CartLine{}, err
	}
	return lines[idx], nil
}

// Checkout sends the pending lines as a guest checkout. Only after the
// backend confirms are those lines dropped from storage.
func (c *LocalCart) Checkout(ctx context.Context, customer string) (models.Booking, error) {
	lines, err := c.load(ctx)
	if err != nil {
		return models.Booking{}, err
	}

	pending := make([]models.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.Status == models.CartStatusPending {
			pending = append(pending, l)
		}
	}
	if len(pending) == 0 {
		return models.Booking{}, ErrEmptyCart
	}

	booking, err := c.checkout.Checkout(ctx, models.CheckoutRequest{Customer: customer, Lines: pending})
	if err != nil {
		return models.Booking{}, &MutationError{Op: "checkout", Err: err}
	}

	remaining := make([]models.CartLine, 0, len(lines)-len(pending))
	for _, l := range lines {
		if l.Status != models.CartStatusPending {
			remaining = append(remaining, l)
		}
	}
	if err := c.save(ctx, remaining); err != nil {
		return booking, fmt.Errorf("booking %s confirmed but local cart was not cleared: %w", booking.ID, err)
	}
	return booking, nil
}

func indexOf(lines []models.CartLine, id string) int {
	for i, l := range lines {
		if l.BookingID == id {
			return i
		}
	}
	return -1
}
