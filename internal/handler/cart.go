package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightbooking/internal/auth"
	"github.com/dharmasatrya/flightbooking/internal/booking"
	"github.com/dharmasatrya/flightbooking/internal/confirmation"
	"github.com/dharmasatrya/flightbooking/internal/models"
)

type CartHandler struct {
	bookings *booking.Service
	logger   *slog.Logger
}

func NewCartHandler(svc *booking.Service, logger *slog.Logger) *CartHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartHandler{bookings: svc, logger: logger}
}

func (h *CartHandler) List(c echo.Context) error {
	lines, err := h.bookings.Lines(c.Request().Context(), auth.UserID(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHandler) Add(c echo.Context) error {
	var req models.AddCartRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	line, err := h.bookings.AddLine(c.Request().Context(), auth.UserID(c), req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, line)
}

func (h *CartHandler) Update(c echo.Context) error {
	var req models.UpdateCartRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	if req.Status != nil && !req.Status.Valid() {
		return errorJSON(c, http.StatusBadRequest, "validation_error", "unknown status "+string(*req.Status))
	}
	line, err := h.bookings.UpdateLine(c.Request().Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, line)
}

func (h *CartHandler) Delete(c echo.Context) error {
	if err := h.bookings.DeleteLine(c.Request().Context(), auth.UserID(c), c.Param("id")); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout books the signed-in user's pending lines, or the lines in the
// body for an anonymous guest.
func (h *CartHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
	}

	var (
		b   models.Booking
		err error
	)
	if userID := auth.UserID(c); userID != "" {
		b, err = h.bookings.Checkout(ctx, userID, req.Customer)
	} else {
		b, err = h.bookings.GuestCheckout(ctx, req.Customer, req.Lines)
	}
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, b)
}

type BookingHandler struct {
	bookings *booking.Service
	logger   *slog.Logger
}

func NewBookingHandler(svc *booking.Service, logger *slog.Logger) *BookingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingHandler{bookings: svc, logger: logger}
}

// lookup hides bookings owned by another user. Guest bookings are reachable
// by id alone.
func (h *BookingHandler) lookup(c echo.Context) (models.Booking, bool, error) {
	b, err := h.bookings.Booking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return models.Booking{}, false, writeError(c, h.logger, err)
	}
	if b.UserID != "" && b.UserID != auth.UserID(c) {
		return models.Booking{}, false, errorJSON(c, http.StatusNotFound, "not_found", "Resource not found")
	}
	return b, true, nil
}

func (h *BookingHandler) Get(c echo.Context) error {
	b, ok, err := h.lookup(c)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Confirmation(c echo.Context) error {
	b, ok, err := h.lookup(c)
	if !ok {
		return err
	}
	text, err := confirmation.Text(b)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.String(http.StatusOK, text)
}
