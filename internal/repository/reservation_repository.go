package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/event-reservation/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same query code
// runs inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const reservaColumns = `id, usuario_id, evento_id, cantidad, precio_unitario, precio_total,
       estado, fecha_reserva, comentarios, activo, fecha_creacion, fecha_modificacion`

// ReservaRepo is the MySQL implementation of ReservaRepository.  All
// timestamps are stored in UTC.
type ReservaRepo struct {
	db *sql.DB
	reservaStore
}

// NewReservaRepo returns a ReservaRepo bound to db.
func NewReservaRepo(db *sql.DB) *ReservaRepo {
	return &ReservaRepo{db: db, reservaStore: reservaStore{q: db}}
}

// WithEventoLock opens a transaction, locks the event row with
// SELECT ... FOR UPDATE and runs fn against the transaction.  Concurrent
// callers for the same event queue on the row lock until commit or
// rollback.  A missing event row is not an error here: fn observes it
// through FindEventoByID.
func (r *ReservaRepo) WithEventoLock(ctx context.Context, eventoID uint64, fn func(ReservaStore) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM eventos WHERE id = ? FOR UPDATE`, eventoID).Scan(&locked)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock evento %d: %w", eventoID, err)
	}

	if err := fn(reservaStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// ListReservas returns visible reservations in scope, newest first.
func (r *ReservaRepo) ListReservas(ctx context.Context, alcance model.AlcanceEstadisticas) ([]model.Reserva, error) {
	where := []string{"activo = 1"}
	args := make([]any, 0, 2)
	if alcance.EventoID != nil {
		where = append(where, "evento_id = ?")
		args = append(args, *alcance.EventoID)
	}
	if alcance.UsuarioID != nil {
		where = append(where, "usuario_id = ?")
		args = append(args, *alcance.UsuarioID)
	}
	q := `SELECT ` + reservaColumns + ` FROM reservas WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id DESC`
	return r.queryReservas(ctx, q, args...)
}

// reservaStore holds the queries shared by the pool-bound repository and
// the transaction-bound store handed to WithEventoLock callbacks.
type reservaStore struct {
	q querier
}

func (s reservaStore) FindEventoByID(ctx context.Context, id uint64) (*model.Evento, error) {
	return findEvento(ctx, s.q, id)
}

func (s reservaStore) FindActiveReservasByEvento(ctx context.Context, eventoID uint64) ([]model.Reserva, error) {
	const q = `SELECT ` + reservaColumns + ` FROM reservas
               WHERE evento_id = ? AND estado = ? AND activo = 1`
	return s.queryReservas(ctx, q, eventoID, model.EstadoReservada)
}

func (s reservaStore) FindActiveReservasByUsuarioAndEvento(ctx context.Context, usuarioID, eventoID uint64) ([]model.Reserva, error) {
	const q = `SELECT ` + reservaColumns + ` FROM reservas
               WHERE usuario_id = ? AND evento_id = ? AND estado = ? AND activo = 1`
	return s.queryReservas(ctx, q, usuarioID, eventoID, model.EstadoReservada)
}

func (s reservaStore) FindReservaByID(ctx context.Context, id uint64) (*model.Reserva, error) {
	const q = `SELECT ` + reservaColumns + ` FROM reservas WHERE id = ?`
	res, err := scanReserva(s.q.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find reserva %d: %w", id, err)
	}
	return res, nil
}

// SaveReserva inserts new rows and updates the mutable columns of
// existing ones.  usuario_id, evento_id and fecha_reserva are never
// rewritten.
func (s reservaStore) SaveReserva(ctx context.Context, r *model.Reserva) error {
	if r.ID == 0 {
		const ins = `INSERT INTO reservas (usuario_id, evento_id, cantidad, precio_unitario, precio_total,
                     estado, fecha_reserva, comentarios, activo, fecha_creacion, fecha_modificacion)
                     VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		res, err := s.q.ExecContext(ctx, ins,
			r.UsuarioID, r.EventoID, r.Cantidad, r.PrecioUnitario, r.PrecioTotal,
			r.Estado, r.FechaReserva.UTC(), nullString(r.Comentarios), r.Activo,
			r.FechaCreacion.UTC(), r.FechaModificacion.UTC())
		if err != nil {
			return fmt.Errorf("insert reserva: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert reserva: %w", err)
		}
		r.ID = uint64(id)
		return nil
	}
	const upd = `UPDATE reservas SET cantidad = ?, precio_unitario = ?, precio_total = ?, estado = ?,
                 comentarios = ?, activo = ?, fecha_modificacion = ?
                 WHERE id = ?`
	res, err := s.q.ExecContext(ctx, upd,
		r.Cantidad, r.PrecioUnitario, r.PrecioTotal, r.Estado,
		nullString(r.Comentarios), r.Activo, r.FechaModificacion.UTC(), r.ID)
	if err != nil {
		return fmt.Errorf("update reserva %d: %w", r.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for an identical row as well, so confirm existence.
		var one int
		if err := s.q.QueryRowContext(ctx, `SELECT 1 FROM reservas WHERE id = ?`, r.ID).Scan(&one); errors.Is(err, sql.ErrNoRows) {
			return ErrReservaNotFound
		}
	}
	return nil
}

func (s reservaStore) queryReservas(ctx context.Context, q string, args ...any) ([]model.Reserva, error) {
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservas: %w", err)
	}
	defer rows.Close()
	out := make([]model.Reserva, 0)
	for rows.Next() {
		res, err := scanReserva(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reserva: %w", err)
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservas: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReserva(row rowScanner) (*model.Reserva, error) {
	var (
		r           model.Reserva
		estado      string
		comentarios sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.UsuarioID, &r.EventoID, &r.Cantidad, &r.PrecioUnitario, &r.PrecioTotal,
		&estado, &r.FechaReserva, &comentarios, &r.Activo, &r.FechaCreacion, &r.FechaModificacion,
	)
	if err != nil {
		return nil, err
	}
	r.Estado = model.EstadoReserva(estado)
	if comentarios.Valid {
		c := comentarios.String
		r.Comentarios = &c
	}
	return &r, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
