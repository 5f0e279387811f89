package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-reservation/internal/model"
)

func newSQLMock(t *testing.T) (sqlmock.Sqlmock, func() (*EventoRepo, *UserRepo, *TokenRepo)) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, func() (*EventoRepo, *UserRepo, *TokenRepo) {
		return NewEventoRepo(db), NewUserRepo(db), NewTokenRepo(db)
	}
}

func TestEventoRepo_ListEventos_Filters(t *testing.T) {
	mock, repos := newSQLMock(t)
	eventos, _, _ := repos()
	desde := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	productor := uint64(4)

	mock.ExpectQuery(`FROM eventos WHERE activo = 1 AND productor_id = \? AND fecha >= \? AND \(LOWER\(nombre\) LIKE \? OR LOWER\(ubicacion\) LIKE \?\) ORDER BY fecha ASC, id ASC LIMIT \? OFFSET \?`).
		WithArgs(productor, desde, "%jazz%", "%jazz%", 20, 40).
		WillReturnRows(sqlmock.NewRows(eventoCols).
			AddRow(3, 4, "Jazz", "", "Teatro", desde, nil, "15.00", true, desde, desde))

	list, err := eventos.ListEventos(context.Background(), FiltroEventos{
		ProductorID: &productor,
		Desde:       &desde,
		Texto:       " Jazz ",
		Limit:       20,
		Offset:      40,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].CapacidadMaxima)
	assert.Equal(t, "15", list[0].PrecioEntrada.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventoRepo_SoftDeleteEvento(t *testing.T) {
	mock, repos := newSQLMock(t)
	eventos, _, _ := repos()
	ctx := context.Background()

	mock.ExpectExec(`UPDATE eventos SET activo = 0`).WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, eventos.SoftDeleteEvento(ctx, 7))

	mock.ExpectExec(`UPDATE eventos SET activo = 0`).WithArgs(uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM eventos WHERE id = \?`).WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows(eventoCols))
	assert.ErrorIs(t, eventos.SoftDeleteEvento(ctx, 8), ErrEventoNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create(t *testing.T) {
	mock, repos := newSQLMock(t)
	_, users, _ := repos()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO usuarios`).
		WithArgs("ana@example.com", "hash", "Ana", model.RolCliente, true, now, now).
		WillReturnResult(sqlmock.NewResult(12, 1))
	u := &model.Usuario{Email: "  Ana@Example.com ", PasswordHash: "hash", Nombre: "Ana", Rol: model.RolCliente, Auditoria: model.NuevaAuditoria(now)}
	require.NoError(t, users.Create(ctx, u))
	assert.Equal(t, uint64(12), u.ID)
	assert.Equal(t, "ana@example.com", u.Email)

	mock.ExpectExec(`INSERT INTO usuarios`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	dup := &model.Usuario{Email: "ana@example.com", Auditoria: model.NuevaAuditoria(now)}
	assert.ErrorIs(t, users.Create(ctx, dup), ErrEmailExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail(t *testing.T) {
	mock, repos := newSQLMock(t)
	_, users, _ := repos()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "email", "password_hash", "nombre", "rol", "activo", "fecha_creacion", "fecha_modificacion"}

	mock.ExpectQuery(`FROM usuarios WHERE email=\?`).WithArgs("bo@example.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "bo@example.com", "h", "Bo", "PRODUCTOR", true, now, now))
	u, err := users.GetByEmail(ctx, "BO@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RolProductor, u.Rol)

	mock.ExpectQuery(`FROM usuarios WHERE id=\?`).WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = users.GetByID(ctx, 99)
	assert.ErrorIs(t, err, ErrUsuarioNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	mock, repos := newSQLMock(t)
	_, _, tokens := repos()
	ctx := context.Background()
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	tokens.Now = func() time.Time { return now }
	cols := []string{"usuario_id", "expires_at", "revoked_at"}

	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).WithArgs("live").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(5, now.Add(time.Hour), nil))
	id, err := tokens.ValidateRefresh(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(5, now.Add(-time.Hour), nil))
	_, err = tokens.ValidateRefresh(ctx, "expired")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(5, now.Add(time.Hour), now))
	_, err = tokens.ValidateRefresh(ctx, "revoked")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = tokens.ValidateRefresh(ctx, "missing")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at=\? WHERE usuario_id=\?`).
		WithArgs(now, uint64(5)).WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, tokens.RevokeAllForUser(ctx, 5))
	require.NoError(t, mock.ExpectationsWereMet())
}
