package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-reservation/internal/model"
)

// RequireRole aborts with 403 unless the authenticated actor holds one
// of roles.  It must run after JWTAuth.
func RequireRole(roles ...model.Rol) echo.MiddlewareFunc {
	allowed := make(map[model.Rol]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return unauthorized(c, "authentication required")
			}
			if !allowed[actor.Rol] {
				return abort(c, http.StatusForbidden, string(model.CodeForbidden), "role not allowed")
			}
			return next(c)
		}
	}
}
