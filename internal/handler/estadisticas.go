package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-reservation/internal/middleware"
	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/policy"
	"github.com/iliyamo/event-reservation/internal/service"
)

type EstadisticasHandler struct {
	Reservas *service.ReservaService
	Log      *zap.Logger
}

func NewEstadisticasHandler(reservas *service.ReservaService, log *zap.Logger) *EstadisticasHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EstadisticasHandler{Reservas: reservas, Log: log}
}

// GetEstadisticas handles GET /v1/estadisticas?eventoId=&usuarioId=.
// A cliente without usuarioId gets its own figures.
func (h *EstadisticasHandler) GetEstadisticas(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	var alcance model.AlcanceEstadisticas
	for name, dst := range map[string]**uint64{"eventoId": &alcance.EventoID, "usuarioId": &alcance.UsuarioID} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, codeValidationFailed, "invalid "+name)
		}
		*dst = &id
	}
	if alcance.UsuarioID == nil && !actor.EsAdmin() && !actor.EsProductor() {
		alcance.UsuarioID = &actor.UsuarioID
	}

	var owner uint64
	if alcance.UsuarioID != nil {
		owner = *alcance.UsuarioID
	}
	if !policy.Allow(actor, policy.VerEstadisticas, owner) {
		return reject(c, policy.Deny(policy.VerEstadisticas))
	}

	st, err := h.Reservas.ObtenerEstadisticas(c.Request().Context(), alcance)
	if err != nil {
		return respondError(c, h.Log, "estadisticas", err)
	}
	return c.JSON(http.StatusOK, st)
}
