package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightbooking/internal/booking"
	"github.com/dharmasatrya/flightbooking/internal/models"
	"github.com/dharmasatrya/flightbooking/internal/providers"
	"github.com/dharmasatrya/flightbooking/internal/store"
)

func errorJSON(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, models.ErrorResponse{
		Error:   code,
		Message: msg,
		Code:    status,
	})
}

// writeError maps domain errors to HTTP responses.
func writeError(c echo.Context, logger *slog.Logger, err error) error {
	var (
		verr       models.ValidationError
		transition *models.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		return errorJSON(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.As(err, &transition):
		return errorJSON(c, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, providers.ErrSearchNotFound):
		return errorJSON(c, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, booking.ErrEmptyCart):
		return errorJSON(c, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, booking.ErrMixedCurrency):
		return errorJSON(c, http.StatusBadRequest, "mixed_currency", err.Error())
	case errors.Is(err, booking.ErrLineNotPending), errors.Is(err, booking.ErrCheckoutRace),
		errors.Is(err, booking.ErrStatusNotSettable):
		return errorJSON(c, http.StatusConflict, "conflict", err.Error())
	case providers.Temporary(err):
		return errorJSON(c, http.StatusBadGateway, "provider_unavailable", "Flight provider is temporarily unavailable")
	}

	var pe *providers.ProviderError
	if errors.As(err, &pe) {
		logger.Error("provider call failed", "provider", pe.Provider, "error", pe.Err)
		return errorJSON(c, http.StatusBadGateway, "provider_error", "Flight provider request failed")
	}

	logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	return errorJSON(c, http.StatusInternalServerError, "internal_error", "Something went wrong")
}
