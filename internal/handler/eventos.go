package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/event-reservation/internal/middleware"
	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/policy"
	"github.com/iliyamo/event-reservation/internal/repository"
	"github.com/iliyamo/event-reservation/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// EventoHandler serves the event catalogue and its derived availability.
type EventoHandler struct {
	Eventos  repository.EventoStore
	Reservas *service.ReservaService
	Log      *zap.Logger

	// Cache and CachePrefix identify the listing cache to drop after a
	// write; a nil Cache disables invalidation.
	Cache       *redis.Client
	CachePrefix string

	Now func() time.Time
}

func NewEventoHandler(eventos repository.EventoStore, reservas *service.ReservaService, log *zap.Logger) *EventoHandler {
	if eventos == nil || reservas == nil {
		panic("nil dependency passed to NewEventoHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EventoHandler{
		Eventos:  eventos,
		Reservas: reservas,
		Log:      log,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

type crearEventoReq struct {
	Nombre          string           `json:"nombre" validate:"required,max=200"`
	Descripcion     string           `json:"descripcion" validate:"max=2000"`
	Ubicacion       string           `json:"ubicacion" validate:"max=255"`
	Fecha           time.Time        `json:"fecha" validate:"required,future"`
	CapacidadMaxima *int             `json:"capacidadMaxima" validate:"omitempty,min=0"`
	PrecioEntrada   *decimal.Decimal `json:"precioEntrada"`
	// ProductorID lets an administrador publish on behalf of a productor.
	ProductorID *uint64 `json:"productorId"`
}

// eventoDetalle is an event plus its availability snapshot.
type eventoDetalle struct {
	model.Evento
	Disponibilidad model.Disponibilidad `json:"disponibilidad"`
}

type paginaEventos struct {
	Items    []model.Evento `json:"items"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// CreateEvento handles POST /v1/eventos.
func (h *EventoHandler) CreateEvento(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	if !policy.Allow(actor, policy.CrearEvento, actor.UsuarioID) {
		return reject(c, policy.Deny(policy.CrearEvento))
	}

	var req crearEventoReq
	if err := bind(c, &req); err != nil {
		return validationFailed(c, err)
	}
	precio := decimal.Zero
	if req.PrecioEntrada != nil {
		if req.PrecioEntrada.IsNegative() {
			return reject(c, model.Reject(model.CodeNegativePrice, "el precio de entrada no puede ser negativo"))
		}
		precio = *req.PrecioEntrada
	}
	productor := actor.UsuarioID
	if req.ProductorID != nil && actor.EsAdmin() {
		productor = *req.ProductorID
	}

	ev := &model.Evento{
		ProductorID:     productor,
		Nombre:          strings.TrimSpace(req.Nombre),
		Descripcion:     req.Descripcion,
		Ubicacion:       req.Ubicacion,
		Fecha:           req.Fecha.UTC(),
		CapacidadMaxima: req.CapacidadMaxima,
		PrecioEntrada:   precio,
		Auditoria:       model.NuevaAuditoria(h.Now()),
	}
	if err := h.Eventos.CreateEvento(c.Request().Context(), ev); err != nil {
		return respondError(c, h.Log, "create evento", err)
	}
	h.invalidate(c)
	h.Log.Info("evento creado", zap.Uint64("evento_id", ev.ID), zap.Uint64("productor_id", ev.ProductorID))
	return c.JSON(http.StatusCreated, ev)
}

// ListEventos handles GET /v1/eventos.  Query: q, productorId,
// incluirPasados, page (from 1) and pageSize.
func (h *EventoHandler) ListEventos(c echo.Context) error {
	filtro := repository.FiltroEventos{Texto: c.QueryParam("q")}
	if v := c.QueryParam("productorId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, codeValidationFailed, "invalid productorId")
		}
		filtro.ProductorID = &id
	}
	if pasados, _ := strconv.ParseBool(c.QueryParam("incluirPasados")); !pasados {
		now := h.Now()
		filtro.Desde = &now
	}
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := queryInt(c, "pageSize", defaultPageSize)
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	filtro.Limit = size
	filtro.Offset = (page - 1) * size

	eventos, err := h.Eventos.ListEventos(c.Request().Context(), filtro)
	if err != nil {
		return respondError(c, h.Log, "list eventos", err)
	}
	return c.JSON(http.StatusOK, paginaEventos{Items: eventos, Page: page, PageSize: size})
}

// GetEvento handles GET /v1/eventos/:id.
func (h *EventoHandler) GetEvento(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "evento")
	}
	ev, err := h.visible(c, id)
	if err != nil {
		return respondError(c, h.Log, "get evento", err)
	}
	d, err := h.Reservas.ObtenerCuposDisponibles(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, "get evento", err)
	}
	return c.JSON(http.StatusOK, eventoDetalle{Evento: *ev, Disponibilidad: d})
}

// GetCupos handles GET /v1/eventos/:id/cupos.  Never cached.
func (h *EventoHandler) GetCupos(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "evento")
	}
	d, err := h.Reservas.ObtenerCuposDisponibles(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, "cupos", err)
	}
	return c.JSON(http.StatusOK, d)
}

// DeleteEvento handles DELETE /v1/eventos/:id.  The row is only hidden;
// its reservations are kept.
func (h *EventoHandler) DeleteEvento(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "evento")
	}
	ev, err := h.visible(c, id)
	if err != nil {
		return respondError(c, h.Log, "delete evento", err)
	}
	if !policy.Allow(actor, policy.EliminarEvento, ev.ProductorID) {
		return reject(c, policy.Deny(policy.EliminarEvento))
	}
	if err := h.Eventos.SoftDeleteEvento(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrEventoNotFound) {
			return reject(c, model.Reject(model.CodeEventNotFound, "el evento %d no existe", id))
		}
		return respondError(c, h.Log, "delete evento", err)
	}
	h.invalidate(c)
	h.Log.Info("evento eliminado", zap.Uint64("evento_id", id), zap.Uint64("actor_id", actor.UsuarioID))
	return c.NoContent(http.StatusNoContent)
}

// ListReservasDeEvento handles GET /v1/eventos/:id/reservas.
func (h *EventoHandler) ListReservasDeEvento(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "evento")
	}
	ev, err := h.visible(c, id)
	if err != nil {
		return respondError(c, h.Log, "reservas de evento", err)
	}
	if !policy.Allow(actor, policy.VerOcupacion, ev.ProductorID) {
		return reject(c, policy.Deny(policy.VerOcupacion))
	}
	reservas, err := h.Reservas.ListarReservas(c.Request().Context(), model.AlcanceEstadisticas{EventoID: &id})
	if err != nil {
		return respondError(c, h.Log, "reservas de evento", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": reservas})
}

// visible loads an active event; hidden ones answer EventNotFound.
func (h *EventoHandler) visible(c echo.Context, id uint64) (*model.Evento, error) {
	ev, err := h.Eventos.FindEventoByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrEventoNotFound) || (err == nil && !ev.Activo) {
		return nil, model.Reject(model.CodeEventNotFound, "el evento %d no existe", id)
	}
	return ev, err
}

func (h *EventoHandler) invalidate(c echo.Context) {
	if err := middleware.InvalidateCache(c.Request().Context(), h.Cache, h.CachePrefix); err != nil {
		h.Log.Warn("invalidate eventos cache failed", zap.Error(err))
	}
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
