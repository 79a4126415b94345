package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

const userIDKey = "userId"

// Middleware attaches the user id of a valid bearer token to the context.
// Requests without an Authorization header pass through as anonymous; a
// header that does not hold a valid token is rejected with 401.
func Middleware(issuer *Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return unauthorized(c, "Authorization header must be a bearer token")
			}

			userID, err := issuer.Parse(strings.TrimSpace(token))
			if err != nil {
				return unauthorized(c, "Invalid or expired token")
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if UserID(c) == "" {
			return unauthorized(c, "Sign in to use the cart")
		}
		return next(c)
	}
}

func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: msg,
		Code:    http.StatusUnauthorized,
	})
}
