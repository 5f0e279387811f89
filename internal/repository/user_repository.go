package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/event-reservation/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const usuarioColumns = "id,email,password_hash,nombre,rol,activo,fecha_creacion,fecha_modificacion"

// Create inserts u (PasswordHash already computed) and fills its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.Usuario) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO usuarios (email, password_hash, nombre, rol, activo, fecha_creacion, fecha_modificacion) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Nombre, u.Rol, u.Activo, u.FechaCreacion.UTC(), u.FechaModificacion.UTC())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.Usuario, error) {
	return r.getOne(ctx, "SELECT "+usuarioColumns+" FROM usuarios WHERE email=? LIMIT 1", normalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.Usuario, error) {
	return r.getOne(ctx, "SELECT "+usuarioColumns+" FROM usuarios WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.Usuario, error) {
	var (
		u   model.Usuario
		rol string
	)
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Nombre, &rol, &u.Activo, &u.FechaCreacion, &u.FechaModificacion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUsuarioNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Rol = model.ParseRol(rol)
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
