// Package policy decides whether an authenticated actor may run an
// operation on a resource owned by a given usuario.
package policy

import (
	"github.com/iliyamo/event-reservation/internal/model"
)

// Operacion names a guarded operation.
type Operacion string

const (
	CrearReserva      Operacion = "reserva.crear"
	VerReserva        Operacion = "reserva.ver"
	ActualizarReserva Operacion = "reserva.actualizar"
	CancelarReserva   Operacion = "reserva.cancelar"
	ReactivarReserva  Operacion = "reserva.reactivar"
	EliminarReserva   Operacion = "reserva.eliminar"
	CrearEvento       Operacion = "evento.crear"
	EliminarEvento    Operacion = "evento.eliminar"
	VerOcupacion      Operacion = "evento.ocupacion"
	VerEstadisticas   Operacion = "estadisticas.ver"
)

// Allow reports whether actor may perform op on a resource owned by
// ownerID.  For reservations the owner is the booking usuario; for events
// it is the productor.
func Allow(actor model.Actor, op Operacion, ownerID uint64) bool {
	if actor.UsuarioID == 0 {
		return false
	}
	if actor.EsAdmin() {
		return true
	}
	propio := actor.UsuarioID == ownerID

	switch op {
	case CrearReserva, ActualizarReserva, CancelarReserva:
		return propio
	case VerReserva:
		return propio || actor.EsProductor()
	case CrearEvento:
		return actor.EsProductor()
	case EliminarEvento:
		return actor.EsProductor() && propio
	case VerOcupacion:
		return actor.EsProductor()
	case VerEstadisticas:
		// clientes only see their own figures
		return actor.EsProductor() || propio
	}
	// reactivation, deletion and anything unknown are admin only
	return false
}

// Deny builds the FORBIDDEN rejection for op.
func Deny(op Operacion) *model.Rejection {
	return model.Reject(model.CodeForbidden, "operación %s no permitida", op)
}
