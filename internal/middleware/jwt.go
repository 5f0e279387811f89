package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-reservation/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the caller as a
// model.Actor under ActorKey (plus user_id and role for older readers).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return unauthorized(c, "invalid token")
			}
			actor, err := claims.Actor()
			if err != nil {
				return unauthorized(c, "invalid claims")
			}
			c.Set(ActorKey, actor)
			c.Set(UserIDKey, actor.UsuarioID)
			c.Set(RoleKey, string(actor.Rol))
			return next(c)
		}
	}
}
