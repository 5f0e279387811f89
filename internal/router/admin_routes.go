package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-reservation/internal/handler"
	"github.com/iliyamo/event-reservation/internal/middleware"
	"github.com/iliyamo/event-reservation/internal/model"
)

// RegisterAdminReservas registers the administrador-only reservation
// operations.
func RegisterAdminReservas(e *echo.Echo, h *handler.ReservaHandler, jwtSecret string) {
	jwt := middleware.JWTAuth(jwtSecret)
	admin := middleware.RequireRole(model.RolAdministrador)

	e.POST("/v1/reservas/:id/reactivar", h.ReactivateReserva, jwt, admin)
	e.DELETE("/v1/reservas/:id", h.DeleteReserva, jwt, admin)
}
