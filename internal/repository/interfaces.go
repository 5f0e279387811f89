package repository

import (
	"context"
	"time"

	"github.com/iliyamo/event-reservation/internal/model"
)

// ReservaStore is the read/write surface the admission engine needs
// inside an event-scoped critical section.
type ReservaStore interface {
	// FindEventoByID returns ErrEventoNotFound when the id is unknown.
	// Soft-deleted events are returned; callers check Activo.
	FindEventoByID(ctx context.Context, id uint64) (*model.Evento, error)

	// FindActiveReservasByEvento returns every RESERVADA, visible reservation
	// of the event.
	FindActiveReservasByEvento(ctx context.Context, eventoID uint64) ([]model.Reserva, error)

	// FindActiveReservasByUsuarioAndEvento narrows the above to one owner.
	FindActiveReservasByUsuarioAndEvento(ctx context.Context, usuarioID, eventoID uint64) ([]model.Reserva, error)

	// FindReservaByID returns ErrReservaNotFound when the id is unknown.
	FindReservaByID(ctx context.Context, id uint64) (*model.Reserva, error)

	// SaveReserva inserts when ID is zero (and fills ID) or updates otherwise.
	SaveReserva(ctx context.Context, r *model.Reserva) error
}

// ReservaRepository adds the locking discipline and reporting queries.
type ReservaRepository interface {
	ReservaStore

	// WithEventoLock runs fn while holding an exclusive lock on the event,
	// so "recompute occupancy, validate, write" is serialized per event.
	// fn must only use the store it receives.  Writes made by fn are
	// discarded when fn returns an error.
	WithEventoLock(ctx context.Context, eventoID uint64, fn func(ReservaStore) error) error

	// ListReservas returns the visible reservations matching the scope,
	// newest first.
	ListReservas(ctx context.Context, alcance model.AlcanceEstadisticas) ([]model.Reserva, error)
}

// FiltroEventos selects events for listing.
// Desde, when set, drops events scheduled before it.  Texto matches
// nombre or ubicacion, case-insensitively.
type FiltroEventos struct {
	ProductorID      *uint64
	Desde            *time.Time
	Texto            string
	IncluirInactivos bool
	Limit            int
	Offset           int
}

// EventoStore is the event CRUD surface used by the event handlers.
type EventoStore interface {
	CreateEvento(ctx context.Context, e *model.Evento) error
	FindEventoByID(ctx context.Context, id uint64) (*model.Evento, error)
	ListEventos(ctx context.Context, filtro FiltroEventos) ([]model.Evento, error)
	// SoftDeleteEvento sets activo=0; the row and its reservations stay.
	SoftDeleteEvento(ctx context.Context, id uint64) error
}

// UsuarioStore persists accounts.  GetBy* return ErrUsuarioNotFound and
// Create returns ErrEmailExists on a duplicate email.
type UsuarioStore interface {
	Create(ctx context.Context, u *model.Usuario) error
	GetByEmail(ctx context.Context, email string) (*model.Usuario, error)
	GetByID(ctx context.Context, id uint64) (*model.Usuario, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, usuarioID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, usuarioID uint64) error
}
