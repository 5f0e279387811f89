package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/event-reservation/internal/model"
)

const eventoColumns = `id, productor_id, nombre, descripcion, ubicacion, fecha, capacidad_maxima,
       precio_entrada, activo, fecha_creacion, fecha_modificacion`

// EventoRepo manages persistence for eventos.
type EventoRepo struct {
	db *sql.DB
}

func NewEventoRepo(db *sql.DB) *EventoRepo { return &EventoRepo{db: db} }

// CreateEvento inserts e and fills its ID.
func (r *EventoRepo) CreateEvento(ctx context.Context, e *model.Evento) error {
	const q = `INSERT INTO eventos (productor_id, nombre, descripcion, ubicacion, fecha, capacidad_maxima,
               precio_entrada, activo, fecha_creacion, fecha_modificacion)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var capacidad sql.NullInt64
	if e.CapacidadMaxima != nil {
		capacidad = sql.NullInt64{Int64: int64(*e.CapacidadMaxima), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q,
		e.ProductorID, e.Nombre, e.Descripcion, e.Ubicacion, e.Fecha.UTC(), capacidad,
		e.PrecioEntrada, e.Activo, e.FechaCreacion.UTC(), e.FechaModificacion.UTC())
	if err != nil {
		return fmt.Errorf("insert evento: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert evento: %w", err)
	}
	e.ID = uint64(id)
	return nil
}

func (r *EventoRepo) FindEventoByID(ctx context.Context, id uint64) (*model.Evento, error) {
	return findEvento(ctx, r.db, id)
}

// ListEventos orders by fecha then id.
func (r *EventoRepo) ListEventos(ctx context.Context, f FiltroEventos) ([]model.Evento, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if !f.IncluirInactivos {
		where = append(where, "activo = 1")
	}
	if f.ProductorID != nil {
		where = append(where, "productor_id = ?")
		args = append(args, *f.ProductorID)
	}
	if f.Desde != nil {
		where = append(where, "fecha >= ?")
		args = append(args, f.Desde.UTC())
	}
	if t := strings.TrimSpace(f.Texto); t != "" {
		where = append(where, "(LOWER(nombre) LIKE ? OR LOWER(ubicacion) LIKE ?)")
		like := "%" + strings.ToLower(t) + "%"
		args = append(args, like, like)
	}
	var sb strings.Builder
	sb.WriteString(`SELECT ` + eventoColumns + ` FROM eventos`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY fecha ASC, id ASC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list eventos: %w", err)
	}
	defer rows.Close()
	out := make([]model.Evento, 0)
	for rows.Next() {
		e, err := scanEvento(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evento: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// SoftDeleteEvento hides the event.  Its reservations are left untouched.
func (r *EventoRepo) SoftDeleteEvento(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE eventos SET activo = 0, fecha_modificacion = UTC_TIMESTAMP() WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete evento %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or already inactive; tell them apart.
		if _, err := findEvento(ctx, r.db, id); err != nil {
			return err
		}
	}
	return nil
}

func findEvento(ctx context.Context, q querier, id uint64) (*model.Evento, error) {
	e, err := scanEvento(q.QueryRowContext(ctx, `SELECT `+eventoColumns+` FROM eventos WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find evento %d: %w", id, err)
	}
	return e, nil
}

func scanEvento(row rowScanner) (*model.Evento, error) {
	var (
		e         model.Evento
		capacidad sql.NullInt64
	)
	err := row.Scan(
		&e.ID, &e.ProductorID, &e.Nombre, &e.Descripcion, &e.Ubicacion, &e.Fecha, &capacidad,
		&e.PrecioEntrada, &e.Activo, &e.FechaCreacion, &e.FechaModificacion,
	)
	if err != nil {
		return nil, err
	}
	if capacidad.Valid {
		c := int(capacidad.Int64)
		e.CapacidadMaxima = &c
	}
	return &e, nil
}
