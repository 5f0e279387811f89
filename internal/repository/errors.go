// Package repository defines the persistence ports used by the
// reservation engine and their MySQL and in-memory implementations.
// The sentinel values below let higher layers tell "row missing" apart
// from infrastructure failures without depending on database/sql.
package repository

import "errors"

// ErrEventoNotFound is returned when no event row has the requested id.
var ErrEventoNotFound = errors.New("evento not found")

// ErrReservaNotFound is returned when no reservation row has the
// requested id.
var ErrReservaNotFound = errors.New("reserva not found")

// ErrUsuarioNotFound is returned by user lookups that match nothing.
var ErrUsuarioNotFound = errors.New("usuario not found")

// ErrEmailExists is returned when registering an email already in use.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenInvalid is returned for unknown, expired or revoked refresh
// tokens.  Handlers should translate it into a 401.
var ErrTokenInvalid = errors.New("refresh token invalid")
