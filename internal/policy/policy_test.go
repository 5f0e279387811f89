package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-reservation/internal/model"
)

func TestAllow(t *testing.T) {
	cliente := model.Actor{UsuarioID: 1, Rol: model.RolCliente}
	productor := model.Actor{UsuarioID: 2, Rol: model.RolProductor}
	admin := model.Actor{UsuarioID: 3, Rol: model.RolAdministrador}

	tests := []struct {
		name  string
		actor model.Actor
		op    Operacion
		owner uint64
		want  bool
	}{
		{"cliente books for self", cliente, CrearReserva, 1, true},
		{"cliente books for other", cliente, CrearReserva, 9, false},
		{"cliente cancels own", cliente, CancelarReserva, 1, true},
		{"cliente cancels other", cliente, CancelarReserva, 9, false},
		{"cliente views own", cliente, VerReserva, 1, true},
		{"cliente views other", cliente, VerReserva, 9, false},
		{"cliente reactivates own", cliente, ReactivarReserva, 1, false},
		{"cliente deletes own", cliente, EliminarReserva, 1, false},
		{"cliente creates event", cliente, CrearEvento, 1, false},
		{"cliente occupancy", cliente, VerOcupacion, 9, false},
		{"cliente own stats", cliente, VerEstadisticas, 1, true},
		{"cliente global stats", cliente, VerEstadisticas, 0, false},
		{"productor views any reservation", productor, VerReserva, 9, true},
		{"productor occupancy", productor, VerOcupacion, 9, true},
		{"productor cancels other", productor, CancelarReserva, 9, false},
		{"productor deletes own event", productor, EliminarEvento, 2, true},
		{"productor deletes other event", productor, EliminarEvento, 9, false},
		{"productor reactivates", productor, ReactivarReserva, 2, false},
		{"admin cancels other", admin, CancelarReserva, 9, true},
		{"admin reactivates", admin, ReactivarReserva, 9, true},
		{"admin deletes", admin, EliminarReserva, 9, true},
		{"anonymous", model.Actor{Rol: model.RolAdministrador}, VerReserva, 0, false},
		{"unknown op", productor, Operacion("x"), 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allow(tt.actor, tt.op, tt.owner))
		})
	}
}

func TestDeny(t *testing.T) {
	err := Deny(EliminarReserva)
	assert.True(t, errors.Is(err, model.ErrForbidden))
	assert.Contains(t, err.Error(), "reserva.eliminar")
}
