// Package service holds the reservation admission engine.  Every operation
// that consumes or releases event capacity runs inside the repository's
// per-event critical section, so "recompute occupancy, validate, write"
// cannot interleave with another writer on the same event.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/queue"
	"github.com/iliyamo/event-reservation/internal/repository"
)

// EventPublisher receives lifecycle messages after a mutation commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservaEvent) error
}

// NopPublisher drops every message.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.ReservaEvent) error { return nil }

const publishTimeout = 3 * time.Second

// ReservaServiceConfig tunes the engine.  Zero values fall back to the
// defaults (50 units, 5 active reservations, time.Now).
type ReservaServiceConfig struct {
	MaxCantidad         int
	MaxActivasPorEvento int
	Now                 func() time.Time
}

// SolicitudReserva is the admission request.  Cantidad is a pointer so a
// missing quantity can be told apart from zero.
type SolicitudReserva struct {
	UsuarioID      uint64
	EventoID       uint64
	Cantidad       *int
	PrecioUnitario *decimal.Decimal
	Comentarios    *string
}

// CambiosReserva is a partial update; nil fields are left as they are.
type CambiosReserva struct {
	Cantidad       *int
	PrecioUnitario *decimal.Decimal
	Comentarios    *string
}

type ReservaService struct {
	repo        repository.ReservaRepository
	pub         EventPublisher
	log         *zap.Logger
	maxCantidad int
	maxActivas  int
	now         func() time.Time
}

func NewReservaService(repo repository.ReservaRepository, pub EventPublisher, log *zap.Logger, cfg *ReservaServiceConfig) *ReservaService {
	if cfg == nil {
		cfg = &ReservaServiceConfig{}
	}
	if pub == nil {
		pub = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &ReservaService{
		repo:        repo,
		pub:         pub,
		log:         log,
		maxCantidad: cfg.MaxCantidad,
		maxActivas:  cfg.MaxActivasPorEvento,
		now:         cfg.Now,
	}
	if s.maxCantidad < model.CantidadMinima {
		s.maxCantidad = model.CantidadMaxima
	}
	if s.maxActivas < 1 {
		s.maxActivas = 5
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// AdmitirReserva validates req and stores a new RESERVADA reservation.
// Rules are evaluated in a fixed order and the first failure is returned
// as a *model.Rejection; the quantity check runs before any lookup.
func (s *ReservaService) AdmitirReserva(ctx context.Context, req SolicitudReserva) (*model.Reserva, error) {
	if err := s.validarCantidad(req.Cantidad); err != nil {
		return nil, s.rechazo("admitir", err, zap.Uint64("evento_id", req.EventoID), zap.Uint64("usuario_id", req.UsuarioID))
	}
	cantidad := *req.Cantidad

	var creada *model.Reserva
	err := s.repo.WithEventoLock(ctx, req.EventoID, func(st repository.ReservaStore) error {
		now := s.now()
		ev, err := eventoAdmisible(ctx, st, req.EventoID, now)
		if err != nil {
			return err
		}
		activas, err := st.FindActiveReservasByEvento(ctx, ev.ID)
		if err != nil {
			return err
		}
		if err := verificarCupo(ev, activas, cantidad, now); err != nil {
			return err
		}
		if err := s.verificarUnicidad(ctx, st, req.UsuarioID, ev.ID); err != nil {
			return err
		}

		precio := ev.PrecioEntrada
		if req.PrecioUnitario != nil {
			if req.PrecioUnitario.IsNegative() {
				return model.Reject(model.CodeNegativePrice, "el precio unitario no puede ser negativo")
			}
			precio = *req.PrecioUnitario
		}

		r := model.NuevaReserva(req.UsuarioID, ev.ID, cantidad, precio, req.Comentarios, now)
		if err := st.SaveReserva(ctx, r); err != nil {
			return err
		}
		creada = r
		return nil
	})
	if err != nil {
		return nil, s.fallo("admitir", err, zap.Uint64("evento_id", req.EventoID), zap.Uint64("usuario_id", req.UsuarioID))
	}

	s.log.Info("reserva admitida",
		zap.Uint64("reserva_id", creada.ID),
		zap.Uint64("evento_id", creada.EventoID),
		zap.Uint64("usuario_id", creada.UsuarioID),
		zap.Int("cantidad", creada.Cantidad),
		zap.String("precio_total", creada.PrecioTotal.StringFixed(2)),
	)
	s.publicar(ctx, queue.TipoCreada, creada, req.UsuarioID)
	return creada, nil
}

// CancelarReserva moves a RESERVADA reservation to CANCELADA, releasing
// its capacity.
func (s *ReservaService) CancelarReserva(ctx context.Context, id uint64, actor model.Actor) (*model.Reserva, error) {
	return s.mutar(ctx, "cancelar", queue.TipoCancelada, id, actor, func(_ repository.ReservaStore, r *model.Reserva, now time.Time) error {
		return r.Cancelar(now)
	})
}

// ReactivarReserva moves a CANCELADA reservation back to RESERVADA.  The
// event must still accept it: availability, capacity for the full
// quantity and the one-active-per-usuario rule are re-validated.  On
// failure nothing is written.
func (s *ReservaService) ReactivarReserva(ctx context.Context, id uint64, actor model.Actor) (*model.Reserva, error) {
	return s.mutar(ctx, "reactivar", queue.TipoReactivada, id, actor, func(st repository.ReservaStore, r *model.Reserva, now time.Time) error {
		if !r.EstaCancelada() {
			return model.TransicionInvalida(r.Estado, model.EstadoReservada)
		}
		ev, err := eventoAdmisible(ctx, st, r.EventoID, now)
		if err != nil {
			return err
		}
		activas, err := st.FindActiveReservasByEvento(ctx, ev.ID)
		if err != nil {
			return err
		}
		if err := verificarCupo(ev, activas, r.Cantidad, now); err != nil {
			return err
		}
		if err := s.verificarUnicidad(ctx, st, r.UsuarioID, ev.ID); err != nil {
			return err
		}
		return r.Reactivar(now)
	})
}

// ActualizarReserva applies a partial update to a RESERVADA reservation.
// Growing the quantity only needs the increment to fit in the event's
// remaining capacity, since the reservation already holds its current
// quantity.  The total is always recomputed.
func (s *ReservaService) ActualizarReserva(ctx context.Context, id uint64, cambios CambiosReserva, actor model.Actor) (*model.Reserva, error) {
	if cambios.Cantidad != nil {
		if err := s.validarCantidad(cambios.Cantidad); err != nil {
			return nil, s.rechazo("actualizar", err, zap.Uint64("reserva_id", id))
		}
	}
	if cambios.PrecioUnitario != nil && cambios.PrecioUnitario.IsNegative() {
		err := model.Reject(model.CodeNegativePrice, "el precio unitario no puede ser negativo")
		return nil, s.rechazo("actualizar", err, zap.Uint64("reserva_id", id))
	}

	return s.mutar(ctx, "actualizar", queue.TipoActualizada, id, actor, func(st repository.ReservaStore, r *model.Reserva, now time.Time) error {
		if r.EstaCancelada() {
			return &model.Rejection{
				Code:    model.CodeInvalidStateTransition,
				Message: "la reserva está CANCELADA; debe reactivarse antes de modificarla",
				Estado:  r.Estado,
			}
		}
		if cambios.Cantidad != nil {
			if delta := *cambios.Cantidad - r.Cantidad; delta > 0 {
				ev, err := eventoAdmisible(ctx, st, r.EventoID, now)
				if err != nil {
					return err
				}
				activas, err := st.FindActiveReservasByEvento(ctx, ev.ID)
				if err != nil {
					return err
				}
				if d := ev.Disponibilidad(activas, now); !d.Admite(delta) {
					return model.CuposInsuficientes(delta, d.Cupos())
				}
			}
			r.CambiarCantidad(*cambios.Cantidad, now)
		}
		if cambios.PrecioUnitario != nil {
			r.CambiarPrecioUnitario(*cambios.PrecioUnitario, now)
		}
		if cambios.Comentarios != nil {
			r.CambiarComentarios(cambios.Comentarios, now)
		}
		r.Touch(now)
		return nil
	})
}

// EliminarReserva hides the reservation (activo=0).  Its estado is left
// as is, but a hidden reservation no longer holds capacity.
func (s *ReservaService) EliminarReserva(ctx context.Context, id uint64, actor model.Actor) (*model.Reserva, error) {
	return s.mutar(ctx, "eliminar", queue.TipoEliminada, id, actor, func(_ repository.ReservaStore, r *model.Reserva, now time.Time) error {
		r.Eliminar(now)
		return nil
	})
}

// ObtenerReserva returns a visible reservation.
func (s *ReservaService) ObtenerReserva(ctx context.Context, id uint64) (*model.Reserva, error) {
	r, err := buscarReserva(ctx, s.repo, id)
	if err != nil {
		return nil, s.fallo("obtener", err, zap.Uint64("reserva_id", id))
	}
	return r, nil
}

// ObtenerCuposDisponibles recomputes the event's availability from the
// stored reservations on every call.
func (s *ReservaService) ObtenerCuposDisponibles(ctx context.Context, eventoID uint64) (model.Disponibilidad, error) {
	ev, err := s.repo.FindEventoByID(ctx, eventoID)
	if err == nil && !ev.Activo {
		err = repository.ErrEventoNotFound
	}
	if err != nil {
		return model.Disponibilidad{}, s.fallo("cupos", eventoNoEncontrado(err, eventoID), zap.Uint64("evento_id", eventoID))
	}
	activas, err := s.repo.FindActiveReservasByEvento(ctx, eventoID)
	if err != nil {
		return model.Disponibilidad{}, s.fallo("cupos", err, zap.Uint64("evento_id", eventoID))
	}
	return ev.Disponibilidad(activas, s.now()), nil
}

// ObtenerEstadisticas aggregates the reservations in scope as stored now.
func (s *ReservaService) ObtenerEstadisticas(ctx context.Context, alcance model.AlcanceEstadisticas) (model.Estadisticas, error) {
	reservas, err := s.repo.ListReservas(ctx, alcance)
	if err != nil {
		return model.Estadisticas{}, s.fallo("estadisticas", err)
	}
	return model.CalcularEstadisticas(reservas), nil
}

// ListarReservas returns the visible reservations in scope, newest first.
func (s *ReservaService) ListarReservas(ctx context.Context, alcance model.AlcanceEstadisticas) ([]model.Reserva, error) {
	reservas, err := s.repo.ListReservas(ctx, alcance)
	if err != nil {
		return nil, s.fallo("listar", err)
	}
	return reservas, nil
}

// mutar loads the reservation, locks its event, re-reads it under the
// lock, applies fn and saves.  Nothing is written when fn fails.
func (s *ReservaService) mutar(
	ctx context.Context,
	op string,
	tipo queue.Tipo,
	id uint64,
	actor model.Actor,
	fn func(st repository.ReservaStore, r *model.Reserva, now time.Time) error,
) (*model.Reserva, error) {
	fields := []zap.Field{zap.Uint64("reserva_id", id), zap.Uint64("actor_id", actor.UsuarioID)}

	actual, err := buscarReserva(ctx, s.repo, id)
	if err != nil {
		return nil, s.fallo(op, err, fields...)
	}

	var out *model.Reserva
	err = s.repo.WithEventoLock(ctx, actual.EventoID, func(st repository.ReservaStore) error {
		r, err := buscarReserva(ctx, st, id)
		if err != nil {
			return err
		}
		if err := fn(st, r, s.now()); err != nil {
			return err
		}
		if err := st.SaveReserva(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, s.fallo(op, err, fields...)
	}

	s.log.Info("reserva "+string(tipo),
		zap.Uint64("reserva_id", out.ID),
		zap.Uint64("evento_id", out.EventoID),
		zap.Uint64("actor_id", actor.UsuarioID),
		zap.String("estado", string(out.Estado)),
	)
	s.publicar(ctx, tipo, out, actor.UsuarioID)
	return out, nil
}

func (s *ReservaService) validarCantidad(cantidad *int) error {
	if cantidad == nil {
		return model.Reject(model.CodeInvalidQuantity, "la cantidad es obligatoria")
	}
	if *cantidad < model.CantidadMinima || *cantidad > s.maxCantidad {
		return model.Reject(model.CodeInvalidQuantity,
			"la cantidad debe estar entre %d y %d, recibida %d", model.CantidadMinima, s.maxCantidad, *cantidad)
	}
	return nil
}

// verificarUnicidad enforces one active reservation per usuario and
// event.  The per-event ceiling below it cannot trigger while the first
// rule holds; it stays as a second guard should the first be relaxed.
func (s *ReservaService) verificarUnicidad(ctx context.Context, st repository.ReservaStore, usuarioID, eventoID uint64) error {
	propias, err := st.FindActiveReservasByUsuarioAndEvento(ctx, usuarioID, eventoID)
	if err != nil {
		return err
	}
	if len(propias) > 0 {
		return model.Reject(model.CodeDuplicateActiveReservation,
			"el usuario %d ya tiene una reserva activa (%d) para el evento %d", usuarioID, propias[0].ID, eventoID)
	}
	if len(propias) >= s.maxActivas {
		return model.Reject(model.CodeActiveReservationLimitReached,
			"el usuario %d alcanzó el máximo de %d reservas activas para el evento %d", usuarioID, s.maxActivas, eventoID)
	}
	return nil
}

func (s *ReservaService) publicar(ctx context.Context, tipo queue.Tipo, r *model.Reserva, actorID uint64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ev := queue.NewReservaEvent(tipo, r, actorID, s.now())
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Warn("publish reserva event failed",
			zap.String("routing_key", ev.RoutingKey()),
			zap.Uint64("reserva_id", r.ID),
			zap.Error(err),
		)
	}
}

// rechazo logs an expected rejection and returns it unchanged.
func (s *ReservaService) rechazo(op string, rej error, fields ...zap.Field) error {
	if r, ok := model.AsRejection(rej); ok {
		fields = append(fields, zap.String("code", string(r.Code)))
	}
	s.log.Info("reserva rechazada", append(fields, zap.String("op", op), zap.String("motivo", rej.Error()))...)
	return rej
}

// fallo routes err to rechazo for business outcomes and logs anything
// else as an infrastructure failure.
func (s *ReservaService) fallo(op string, err error, fields ...zap.Field) error {
	if _, ok := model.AsRejection(err); ok {
		return s.rechazo(op, err, fields...)
	}
	s.log.Error("reserva "+op+" failed", append(fields, zap.Error(err))...)
	return fmt.Errorf("%s reserva: %w", op, err)
}

// eventoAdmisible loads the event and checks it exists, is active and is
// not in the past.
func eventoAdmisible(ctx context.Context, st repository.ReservaStore, eventoID uint64, now time.Time) (*model.Evento, error) {
	ev, err := st.FindEventoByID(ctx, eventoID)
	if err != nil {
		return nil, eventoNoEncontrado(err, eventoID)
	}
	if !ev.Activo {
		return nil, model.Reject(model.CodeEventInactive, "el evento %d no está activo", eventoID)
	}
	if ev.EsPasado(now) {
		return nil, model.Reject(model.CodeEventExpired, "el evento %d ya ocurrió", eventoID)
	}
	return ev, nil
}

// verificarCupo checks that cantidad units fit.  A sold-out event reports
// the capacity counts; EventUnavailable is kept for events that never
// accept bookings.
func verificarCupo(ev *model.Evento, activas []model.Reserva, cantidad int, now time.Time) error {
	d := ev.Disponibilidad(activas, now)
	if !ev.Ilimitado() && *ev.CapacidadMaxima == 0 {
		return model.Reject(model.CodeEventUnavailable, "el evento %d no admite reservas", ev.ID)
	}
	if !d.Admite(cantidad) {
		return model.CuposInsuficientes(cantidad, d.Cupos())
	}
	return nil
}

func buscarReserva(ctx context.Context, st repository.ReservaStore, id uint64) (*model.Reserva, error) {
	r, err := st.FindReservaByID(ctx, id)
	if errors.Is(err, repository.ErrReservaNotFound) || (err == nil && !r.Activo) {
		return nil, model.Reject(model.CodeReservationNotFound, "la reserva %d no existe", id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func eventoNoEncontrado(err error, eventoID uint64) error {
	if errors.Is(err, repository.ErrEventoNotFound) {
		return model.Reject(model.CodeEventNotFound, "el evento %d no existe", eventoID)
	}
	return err
}
