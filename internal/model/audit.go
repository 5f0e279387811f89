package model

import "time"

// Auditoria groups the bookkeeping columns shared by every table.  It
// is embedded by value in each entity so the fields are promoted
// (e.g. evento.Activo) without any inheritance chain.
//
// Fields:
//
//	Activo            – soft-delete flag; false hides the row entirely.
//	FechaCreacion     – set on the first Touch and never changed after.
//	FechaModificacion – refreshed on every Touch.
type Auditoria struct {
	Activo            bool      `json:"activo"`            // *.activo (tinyint 0/1)
	FechaCreacion     time.Time `json:"fechaCreacion"`     // *.fecha_creacion
	FechaModificacion time.Time `json:"fechaModificacion"` // *.fecha_modificacion
}

// NuevaAuditoria returns an active audit block stamped at now.
func NuevaAuditoria(now time.Time) Auditoria {
	a := Auditoria{Activo: true}
	a.Touch(now)
	return a
}

// Touch records a write at now.  It must be called by every mutation.
func (a *Auditoria) Touch(now time.Time) {
	if a.FechaCreacion.IsZero() {
		a.FechaCreacion = now
	}
	a.FechaModificacion = now
}
