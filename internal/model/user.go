package model

import "time"

// Rol is the role claim carried in access tokens.
type Rol string

const (
	RolCliente       Rol = "CLIENTE"
	RolProductor     Rol = "PRODUCTOR"
	RolAdministrador Rol = "ADMINISTRADOR"
)

// ParseRol normalizes a role name; unknown values fall back to CLIENTE.
func ParseRol(s string) Rol {
	switch Rol(s) {
	case RolProductor, RolAdministrador:
		return Rol(s)
	}
	return RolCliente
}

// Usuario represents an account as stored in the `usuarios` table.
//
// Fields:
//
//	ID           – primary key identifier.
//	Email        – unique, stored lower-cased.
//	PasswordHash – bcrypt hash.
//	Nombre       – display name.
//	Rol          – CLIENTE, PRODUCTOR or ADMINISTRADOR.
type Usuario struct {
	ID           uint64 // usuarios.id
	Email        string // usuarios.email
	PasswordHash string // usuarios.password_hash
	Nombre       string // usuarios.nombre
	Rol          Rol    // usuarios.rol
	Auditoria
}

// RefreshToken models a row of `refresh_tokens`.  Only the SHA-256 of
// the raw token is persisted.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UsuarioID uint64     // refresh_tokens.usuario_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Actor is the already-authenticated caller of an operation.  It is
// threaded explicitly through every call instead of being looked up
// from request-global state.
type Actor struct {
	UsuarioID uint64
	Rol       Rol
}

// EsAdmin reports whether the actor is an administrador.
func (a Actor) EsAdmin() bool { return a.Rol == RolAdministrador }

// EsProductor reports whether the actor is a productor.
func (a Actor) EsProductor() bool { return a.Rol == RolProductor }
