// Package middleware holds the echo middleware shared by every route
// group: authentication, role guards, request ids, request logging, rate
// limiting and response caching.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-reservation/internal/model"
)

// Context keys written by JWTAuth and RequestID.
const (
	ActorKey     = "actor"
	UserIDKey    = "user_id"
	RoleKey      = "role"
	RequestIDKey = "request_id"
)

// ActorFrom returns the authenticated caller stored by JWTAuth.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(ActorKey).(model.Actor)
	return a, ok && a.UsuarioID != 0
}

// currentUserID is the caller's id as a string, or "anon".
func currentUserID(c echo.Context) string {
	if a, ok := ActorFrom(c); ok {
		return strconv.FormatUint(a.UsuarioID, 10)
	}
	return "anon"
}

// abort writes the JSON error body used across the API.
func abort(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{
		"status":  status,
		"error":   code,
		"message": message,
	})
}

func unauthorized(c echo.Context, message string) error {
	return abort(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}
