package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-reservation/internal/handler"
	"github.com/iliyamo/event-reservation/internal/middleware"
	"github.com/iliyamo/event-reservation/internal/model"
)

// RegisterProductor registers event management and reporting under /v1
// for productores and administradores.  Ownership is checked in the
// handlers.
func RegisterProductor(e *echo.Echo, ev *handler.EventoHandler, st *handler.EstadisticasHandler, jwtSecret string) {
	jwt := middleware.JWTAuth(jwtSecret)
	productor := middleware.RequireRole(model.RolProductor, model.RolAdministrador)

	e.POST("/v1/eventos", ev.CreateEvento, jwt, productor)
	e.DELETE("/v1/eventos/:id", ev.DeleteEvento, jwt, productor)
	e.GET("/v1/eventos/:id/reservas", ev.ListReservasDeEvento, jwt, productor)

	// clientes are allowed too; the handler narrows them to their own figures
	e.GET("/v1/estadisticas", st.GetEstadisticas, jwt)
}
