// Package queue carries reservation lifecycle messages over RabbitMQ: the
// payload, a publisher bound to a topic exchange and the audit consumer
// that appends every message to a log file.
package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-reservation/internal/model"
)

// Tipo names a committed reservation mutation.
type Tipo string

const (
	TipoCreada      Tipo = "creada"
	TipoCancelada   Tipo = "cancelada"
	TipoReactivada  Tipo = "reactivada"
	TipoActualizada Tipo = "actualizada"
	TipoEliminada   Tipo = "eliminada"
)

// ReservaEvent is published after a reservation mutation commits.  It
// carries enough to audit the change without reading the database.
type ReservaEvent struct {
	ID             string              `json:"id"`
	Tipo           Tipo                `json:"tipo"`
	ReservaID      uint64              `json:"reservaId"`
	UsuarioID      uint64              `json:"usuarioId"`
	EventoID       uint64              `json:"eventoId"`
	ActorID        uint64              `json:"actorId"`
	Cantidad       int                 `json:"cantidad"`
	PrecioUnitario decimal.Decimal     `json:"precioUnitario"`
	PrecioTotal    decimal.Decimal     `json:"precioTotal"`
	Estado         model.EstadoReserva `json:"estado"`
	Activo         bool                `json:"activo"`
	OcurridoEn     time.Time           `json:"ocurridoEn"`
}

// NewReservaEvent snapshots r under a fresh message id.
func NewReservaEvent(tipo Tipo, r *model.Reserva, actorID uint64, now time.Time) ReservaEvent {
	return ReservaEvent{
		ID:             uuid.NewString(),
		Tipo:           tipo,
		ReservaID:      r.ID,
		UsuarioID:      r.UsuarioID,
		EventoID:       r.EventoID,
		ActorID:        actorID,
		Cantidad:       r.Cantidad,
		PrecioUnitario: r.PrecioUnitario,
		PrecioTotal:    r.PrecioTotal,
		Estado:         r.Estado,
		Activo:         r.Activo,
		OcurridoEn:     now.UTC(),
	}
}

// RoutingKey is "reserva.<tipo>".
func (e ReservaEvent) RoutingKey() string { return "reserva." + string(e.Tipo) }
