package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dharmasatrya/flightbooking/internal/client"
	"github.com/dharmasatrya/flightbooking/internal/models"
)

// API is the backend surface of an authenticated cart.
type API interface {
	Checkouter
	ListCart(ctx context.Context) ([]models.CartLine, error)
	AddCart(ctx context.Context, req models.AddCartRequest) (models.CartLine, error)
	UpdateCart(ctx context.Context, id string, req models.UpdateCartRequest) (models.CartLine, error)
	DeleteCart(ctx context.Context, id string) error
}

// RemoteCart stores lines in the backend's booking collection.
type RemoteCart struct {
	api API
}

func NewRemoteCart(api API) *RemoteCart {
	return &RemoteCart{api: api}
}

func (c *RemoteCart) Lines(ctx context.Context) ([]models.CartLine, error) {
	lines, err := c.api.ListCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	return lines, nil
}

func (c *RemoteCart) Add(ctx context.Context, line models.CartLine) (models.CartLine, error) {
	created, err := c.api.AddCart(ctx, models.AddCartRequest{
		Flight:     line.Flight,
		Passengers: line.Passengers,
		Quantity:   line.Quantity,
	})
	if err != nil {
		return models.CartLine{}, &MutationError{Op: "add", Err: err}
	}
	return created, nil
}

func (c *RemoteCart) Remove(ctx context.Context, id string) error {
	if err := c.api.DeleteCart(ctx, id); err != nil {
		return &MutationError{Op: "remove", Err: notFound(err, id)}
	}
	return nil
}

func (c *RemoteCart) SetQuantity(ctx context.Context, id string, n int) (models.CartLine, error) {
	line, err := c.api.UpdateCart(ctx, id, models.UpdateCartRequest{Quantity: &n})
	if err != nil {
		return models.CartLine{}, &MutationError{Op: "update", Err: notFound(err, id)}
	}
	return line, nil
}

// Checkout asks the backend to confirm the user's pending lines. The
// backend owns those lines, so nothing is kept or cleared locally.
func (c *RemoteCart) Checkout(ctx context.Context, customer string) (models.Booking, error) {
	booking, err := c.api.Checkout(ctx, models.CheckoutRequest{Customer: customer})
	if err != nil {
		return models.Booking{}, &MutationError{Op: "checkout", Err: err}
	}
	return booking, nil
}

func notFound(err error, id string) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s: %w", ErrLineNotFound, id, err)
	}
	return err
}
