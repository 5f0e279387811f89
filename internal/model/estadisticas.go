package model

import "github.com/shopspring/decimal"

// AlcanceEstadisticas narrows a reservation query.  Nil fields match
// everything.  Soft-deleted rows are never included.
type AlcanceEstadisticas struct {
	EventoID  *uint64
	UsuarioID *uint64
}

// Incluye reports whether r falls within the scope.
func (a AlcanceEstadisticas) Incluye(r *Reserva) bool {
	if !r.Activo {
		return false
	}
	if a.EventoID != nil && r.EventoID != *a.EventoID {
		return false
	}
	if a.UsuarioID != nil && r.UsuarioID != *a.UsuarioID {
		return false
	}
	return true
}

// Estadisticas is a derived report over a set of reservations.  Money
// aggregates cover active reservations only; quantity bounds cover every
// visible reservation in scope.
type Estadisticas struct {
	Total               int             `json:"total"`
	Activas             int             `json:"activas"`
	Canceladas          int             `json:"canceladas"`
	EntradasReservadas  int             `json:"entradasReservadas"`
	SumaPrecioTotal     decimal.Decimal `json:"sumaPrecioTotal"`
	PromedioPrecioTotal decimal.Decimal `json:"promedioPrecioTotal"`
	CantidadMinima      int             `json:"cantidadMinima"`
	CantidadMaxima      int             `json:"cantidadMaxima"`
}

// CalcularEstadisticas aggregates reservas.  Averages are rounded to two
// decimal places.
func CalcularEstadisticas(reservas []Reserva) Estadisticas {
	st := Estadisticas{SumaPrecioTotal: decimal.Zero, PromedioPrecioTotal: decimal.Zero}
	for i := range reservas {
		r := &reservas[i]
		st.Total++
		if st.Total == 1 || r.Cantidad < st.CantidadMinima {
			st.CantidadMinima = r.Cantidad
		}
		if r.Cantidad > st.CantidadMaxima {
			st.CantidadMaxima = r.Cantidad
		}
		switch r.Estado {
		case EstadoReservada:
			st.Activas++
			st.EntradasReservadas += r.Cantidad
			st.SumaPrecioTotal = st.SumaPrecioTotal.Add(r.PrecioTotal)
		case EstadoCancelada:
			st.Canceladas++
		}
	}
	if st.Activas > 0 {
		st.PromedioPrecioTotal = st.SumaPrecioTotal.Div(decimal.NewFromInt(int64(st.Activas))).Round(2)
	}
	return st
}
