package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EstadoReserva is the lifecycle state of a reservation.
type EstadoReserva string

const (
	EstadoReservada EstadoReserva = "RESERVADA"
	EstadoCancelada EstadoReserva = "CANCELADA"
)

// IsValid checks if the state is one of the known values.
func (s EstadoReserva) IsValid() bool {
	switch s {
	case EstadoReservada, EstadoCancelada:
		return true
	}
	return false
}

// Quantity bounds accepted for a single reservation.
const (
	CantidadMinima = 1
	CantidadMaxima = 50
)

// Reserva records a usuario's booking of Cantidad units of an event.
// Estado (is the booking honored) and Activo (is the row visible at all)
// are independent axes: an admin may hide a RESERVADA row without
// cancelling it.
//
// Fields:
//
//	ID             – primary key identifier.
//	UsuarioID      – owner; immutable after creation.
//	EventoID       – booked event; immutable after creation.
//	Cantidad       – units booked, 1..50.
//	PrecioUnitario – price per unit, defaults to the event's PrecioEntrada.
//	PrecioTotal    – always PrecioUnitario × Cantidad.
//	Estado         – RESERVADA or CANCELADA.
//	FechaReserva   – creation instant; immutable.
//	Comentarios    – optional free text.
type Reserva struct {
	ID             uint64          `json:"id"`             // reservas.id
	UsuarioID      uint64          `json:"usuarioId"`      // reservas.usuario_id
	EventoID       uint64          `json:"eventoId"`       // reservas.evento_id
	Cantidad       int             `json:"cantidad"`       // reservas.cantidad
	PrecioUnitario decimal.Decimal `json:"precioUnitario"` // reservas.precio_unitario
	PrecioTotal    decimal.Decimal `json:"precioTotal"`    // reservas.precio_total
	Estado         EstadoReserva   `json:"estado"`         // reservas.estado
	FechaReserva   time.Time       `json:"fechaReserva"`   // reservas.fecha_reserva
	Comentarios    *string         `json:"comentarios"`    // reservas.comentarios (nullable)
	Auditoria
}

// NuevaReserva builds a RESERVADA reservation stamped at now with its
// total already computed.  Admission rules are the caller's concern.
func NuevaReserva(usuarioID, eventoID uint64, cantidad int, precioUnitario decimal.Decimal, comentarios *string, now time.Time) *Reserva {
	r := &Reserva{
		UsuarioID:      usuarioID,
		EventoID:       eventoID,
		Cantidad:       cantidad,
		PrecioUnitario: precioUnitario,
		Estado:         EstadoReservada,
		FechaReserva:   now,
		Comentarios:    comentarios,
		Auditoria:      NuevaAuditoria(now),
	}
	r.recalcularTotal()
	return r
}

// EstaActiva reports whether the reservation currently holds capacity.
func (r *Reserva) EstaActiva() bool {
	return r.Estado == EstadoReservada && r.Activo
}

// EstaCancelada reports whether the reservation is in CANCELADA.
func (r *Reserva) EstaCancelada() bool { return r.Estado == EstadoCancelada }

// PerteneceA reports whether usuarioID owns the reservation.
func (r *Reserva) PerteneceA(usuarioID uint64) bool { return r.UsuarioID == usuarioID }

// Cancelar moves RESERVADA -> CANCELADA.
func (r *Reserva) Cancelar(now time.Time) error {
	if r.Estado != EstadoReservada {
		return TransicionInvalida(r.Estado, EstadoCancelada)
	}
	r.Estado = EstadoCancelada
	r.Touch(now)
	return nil
}

// Reactivar moves CANCELADA -> RESERVADA.  Capacity must be re-checked
// by the caller before calling it.
func (r *Reserva) Reactivar(now time.Time) error {
	if r.Estado != EstadoCancelada {
		return TransicionInvalida(r.Estado, EstadoReservada)
	}
	r.Estado = EstadoReservada
	r.Touch(now)
	return nil
}

// CambiarCantidad sets a new quantity and recomputes the total.
func (r *Reserva) CambiarCantidad(cantidad int, now time.Time) {
	r.Cantidad = cantidad
	r.recalcularTotal()
	r.Touch(now)
}

// CambiarPrecioUnitario sets a new unit price and recomputes the total.
func (r *Reserva) CambiarPrecioUnitario(precio decimal.Decimal, now time.Time) {
	r.PrecioUnitario = precio
	r.recalcularTotal()
	r.Touch(now)
}

// CambiarComentarios replaces the free-text comment.
func (r *Reserva) CambiarComentarios(comentarios *string, now time.Time) {
	r.Comentarios = comentarios
	r.Touch(now)
}

// Eliminar hides the row.  Estado is left untouched.
func (r *Reserva) Eliminar(now time.Time) {
	r.Activo = false
	r.Touch(now)
}

// Clone returns a copy that shares no pointers with r.
func (r *Reserva) Clone() Reserva {
	c := *r
	if r.Comentarios != nil {
		s := *r.Comentarios
		c.Comentarios = &s
	}
	return c
}

func (r *Reserva) recalcularTotal() {
	r.PrecioTotal = r.PrecioUnitario.Mul(decimal.NewFromInt(int64(r.Cantidad)))
}
