package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/event-reservation/internal/middleware"
	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/policy"
	"github.com/iliyamo/event-reservation/internal/service"
)

// ReservaHandler exposes the admission engine over HTTP.  Access policy is
// decided here, before the engine runs; the engine only receives the
// actor for attribution.
type ReservaHandler struct {
	Reservas *service.ReservaService
	Log      *zap.Logger
}

func NewReservaHandler(reservas *service.ReservaService, log *zap.Logger) *ReservaHandler {
	if reservas == nil {
		panic("nil service passed to NewReservaHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReservaHandler{Reservas: reservas, Log: log}
}

// crearReservaReq keeps cantidad and precioUnitario unchecked: their
// rules belong to the engine and have their own rejection codes.
type crearReservaReq struct {
	EventoID       uint64           `json:"eventoId" validate:"required"`
	UsuarioID      *uint64          `json:"usuarioId"`
	Cantidad       *int             `json:"cantidad"`
	PrecioUnitario *decimal.Decimal `json:"precioUnitario"`
	Comentarios    *string          `json:"comentarios" validate:"omitempty,max=500"`
}

type actualizarReservaReq struct {
	Cantidad       *int             `json:"cantidad"`
	PrecioUnitario *decimal.Decimal `json:"precioUnitario"`
	Comentarios    *string          `json:"comentarios" validate:"omitempty,max=500"`
}

// CreateReserva handles POST /v1/reservas.  A cliente books for itself;
// an administrador may pass usuarioId to book for someone else.
func (h *ReservaHandler) CreateReserva(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	var req crearReservaReq
	if err := bind(c, &req); err != nil {
		return validationFailed(c, err)
	}
	owner := actor.UsuarioID
	if req.UsuarioID != nil {
		owner = *req.UsuarioID
	}
	if !policy.Allow(actor, policy.CrearReserva, owner) {
		return reject(c, policy.Deny(policy.CrearReserva))
	}

	r, err := h.Reservas.AdmitirReserva(c.Request().Context(), service.SolicitudReserva{
		UsuarioID:      owner,
		EventoID:       req.EventoID,
		Cantidad:       req.Cantidad,
		PrecioUnitario: req.PrecioUnitario,
		Comentarios:    req.Comentarios,
	})
	if err != nil {
		return respondError(c, h.Log, "admitir reserva", err)
	}
	return c.JSON(http.StatusCreated, r)
}

// GetReserva handles GET /v1/reservas/:id.
func (h *ReservaHandler) GetReserva(c echo.Context) error {
	_, r, err := h.autorizar(c, policy.VerReserva)
	if err != nil || r == nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// MisReservas handles GET /v1/mis-reservas, optionally narrowed by
// ?eventoId=.
func (h *ReservaHandler) MisReservas(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	alcance := model.AlcanceEstadisticas{UsuarioID: &actor.UsuarioID}
	if v := c.QueryParam("eventoId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, codeValidationFailed, "invalid eventoId")
		}
		alcance.EventoID = &id
	}
	reservas, err := h.Reservas.ListarReservas(c.Request().Context(), alcance)
	if err != nil {
		return respondError(c, h.Log, "mis reservas", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": reservas})
}

// UpdateReserva handles PATCH /v1/reservas/:id.
func (h *ReservaHandler) UpdateReserva(c echo.Context) error {
	var req actualizarReservaReq
	if err := bind(c, &req); err != nil {
		return validationFailed(c, err)
	}
	actor, r, err := h.autorizar(c, policy.ActualizarReserva)
	if err != nil || r == nil {
		return err
	}
	out, err := h.Reservas.ActualizarReserva(c.Request().Context(), r.ID, service.CambiosReserva{
		Cantidad:       req.Cantidad,
		PrecioUnitario: req.PrecioUnitario,
		Comentarios:    req.Comentarios,
	}, actor)
	if err != nil {
		return respondError(c, h.Log, "actualizar reserva", err)
	}
	return c.JSON(http.StatusOK, out)
}

// CancelReserva handles POST /v1/reservas/:id/cancelar.
func (h *ReservaHandler) CancelReserva(c echo.Context) error {
	actor, r, err := h.autorizar(c, policy.CancelarReserva)
	if err != nil || r == nil {
		return err
	}
	out, err := h.Reservas.CancelarReserva(c.Request().Context(), r.ID, actor)
	if err != nil {
		return respondError(c, h.Log, "cancelar reserva", err)
	}
	return c.JSON(http.StatusOK, out)
}

// ReactivateReserva handles POST /v1/reservas/:id/reactivar.
func (h *ReservaHandler) ReactivateReserva(c echo.Context) error {
	actor, r, err := h.autorizar(c, policy.ReactivarReserva)
	if err != nil || r == nil {
		return err
	}
	out, err := h.Reservas.ReactivarReserva(c.Request().Context(), r.ID, actor)
	if err != nil {
		return respondError(c, h.Log, "reactivar reserva", err)
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteReserva handles DELETE /v1/reservas/:id.  The row is hidden and
// its estado kept.
func (h *ReservaHandler) DeleteReserva(c echo.Context) error {
	actor, r, err := h.autorizar(c, policy.EliminarReserva)
	if err != nil || r == nil {
		return err
	}
	if _, err := h.Reservas.EliminarReserva(c.Request().Context(), r.ID, actor); err != nil {
		return respondError(c, h.Log, "eliminar reserva", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// autorizar resolves the actor and the :id reservation and applies op's
// policy against its owner.  When the returned reservation is nil the
// response has already been written and err is what the handler returns.
func (h *ReservaHandler) autorizar(c echo.Context, op policy.Operacion) (model.Actor, *model.Reserva, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return actor, nil, fail(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return actor, nil, invalidID(c, "reserva")
	}
	r, err := h.Reservas.ObtenerReserva(c.Request().Context(), id)
	if err != nil {
		return actor, nil, respondError(c, h.Log, string(op), err)
	}
	if !policy.Allow(actor, op, r.UsuarioID) {
		return actor, nil, reject(c, policy.Deny(op))
	}
	return actor, r, nil
}
