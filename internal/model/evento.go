package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VentanaProximo is how far ahead an event counts as "próximo".
const VentanaProximo = 24 * time.Hour

// Evento represents a bookable event published by a productor.  Its
// occupancy is never stored: it is derived on every read from the
// reservations that reference it (see Disponibilidad).
//
// Fields:
//
//	ID              – primary key identifier.
//	ProductorID     – usuario that organizes the event.
//	Nombre          – display name.
//	Descripcion     – free text.
//	Ubicacion       – venue label.
//	Fecha           – scheduled start.
//	CapacidadMaxima – nil means unlimited; 0 means no reservations accepted.
//	PrecioEntrada   – default unit price for new reservations.
type Evento struct {
	ID              uint64          `json:"id"`              // eventos.id
	ProductorID     uint64          `json:"productorId"`     // eventos.productor_id
	Nombre          string          `json:"nombre"`          // eventos.nombre
	Descripcion     string          `json:"descripcion"`     // eventos.descripcion
	Ubicacion       string          `json:"ubicacion"`       // eventos.ubicacion
	Fecha           time.Time       `json:"fecha"`           // eventos.fecha
	CapacidadMaxima *int            `json:"capacidadMaxima"` // eventos.capacidad_maxima (nullable)
	PrecioEntrada   decimal.Decimal `json:"precioEntrada"`   // eventos.precio_entrada
	Auditoria
}

// Ilimitado reports whether the event has no capacity ceiling.
func (e *Evento) Ilimitado() bool { return e.CapacidadMaxima == nil }

// EsPasado reports whether the event date is before now.
func (e *Evento) EsPasado(now time.Time) bool { return e.Fecha.Before(now) }

// EsProximo reports whether the event starts within the next 24 hours.
func (e *Evento) EsProximo(now time.Time) bool {
	return e.Fecha.After(now) && e.Fecha.Before(now.Add(VentanaProximo))
}

// CantidadReservasActivas sums Cantidad over the reservations that
// belong to this event and are active.  Rows for other events or in
// any other state are ignored, so callers may pass a superset.
func (e *Evento) CantidadReservasActivas(reservas []Reserva) int {
	total := 0
	for i := range reservas {
		if reservas[i].EventoID == e.ID && reservas[i].EstaActiva() {
			total += reservas[i].Cantidad
		}
	}
	return total
}

// CuposDisponibles returns the remaining capacity clamped at zero.  The
// second result is false when the event is unlimited, in which case the
// first result carries no meaning.
func (e *Evento) CuposDisponibles(reservas []Reserva) (int, bool) {
	if e.Ilimitado() {
		return 0, false
	}
	cupos := *e.CapacidadMaxima - e.CantidadReservasActivas(reservas)
	if cupos < 0 {
		cupos = 0
	}
	return cupos, true
}

// IsDisponible reports whether the event can still take reservations:
// not in the past and, when limited, occupancy below capacity.
func (e *Evento) IsDisponible(reservas []Reserva, now time.Time) bool {
	if e.EsPasado(now) {
		return false
	}
	if e.Ilimitado() {
		return true
	}
	return e.CantidadReservasActivas(reservas) < *e.CapacidadMaxima
}

// Disponibilidad is the read-side snapshot of an event's occupancy at a
// given instant.  CuposDisponibles is nil for unlimited events.
type Disponibilidad struct {
	EventoID                uint64 `json:"eventoId"`
	CapacidadMaxima         *int   `json:"capacidadMaxima"`
	CantidadReservasActivas int    `json:"cantidadReservasActivas"`
	CuposDisponibles        *int   `json:"cuposDisponibles"`
	Ilimitado               bool   `json:"ilimitado"`
	Disponible              bool   `json:"disponible"`
	EventoPasado            bool   `json:"eventoPasado"`
	EventoProximo           bool   `json:"eventoProximo"`
}

// Disponibilidad computes the snapshot from the given reservations.
func (e *Evento) Disponibilidad(reservas []Reserva, now time.Time) Disponibilidad {
	d := Disponibilidad{
		EventoID:                e.ID,
		CapacidadMaxima:         e.CapacidadMaxima,
		CantidadReservasActivas: e.CantidadReservasActivas(reservas),
		Ilimitado:               e.Ilimitado(),
		Disponible:              e.IsDisponible(reservas, now),
		EventoPasado:            e.EsPasado(now),
		EventoProximo:           e.EsProximo(now),
	}
	if cupos, limitado := e.CuposDisponibles(reservas); limitado {
		d.CuposDisponibles = &cupos
	}
	return d
}

// Admite reports whether cantidad more units fit in the remaining capacity.
func (d Disponibilidad) Admite(cantidad int) bool {
	return d.Ilimitado || (d.CuposDisponibles != nil && *d.CuposDisponibles >= cantidad)
}

// Cupos returns the remaining capacity, or -1 for unlimited events.
// Only meant for messages and logs.
func (d Disponibilidad) Cupos() int {
	if d.CuposDisponibles == nil {
		return -1
	}
	return *d.CuposDisponibles
}
