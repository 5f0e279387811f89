package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-reservation/internal/handler"
	"github.com/iliyamo/event-reservation/internal/middleware"
)

// RegisterReservas registers the reservation endpoints any authenticated
// usuario may call.  Writes that can consume capacity are rate limited.
func RegisterReservas(e *echo.Echo, h *handler.ReservaHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	jwt := middleware.JWTAuth(jwtSecret)

	e.POST("/v1/reservas", h.CreateReserva, jwt, limit)
	e.GET("/v1/reservas/:id", h.GetReserva, jwt)
	e.PATCH("/v1/reservas/:id", h.UpdateReserva, jwt, limit)
	e.POST("/v1/reservas/:id/cancelar", h.CancelReserva, jwt, limit)
	e.GET("/v1/mis-reservas", h.MisReservas, jwt)
}
