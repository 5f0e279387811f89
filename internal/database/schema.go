package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the DDL applied by Migrate, in dependency order.
// capacidad_maxima NULL means unlimited.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS usuarios (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		nombre VARCHAR(120) NOT NULL DEFAULT '',
		rol ENUM('CLIENTE','PRODUCTOR','ADMINISTRADOR') NOT NULL DEFAULT 'CLIENTE',
		activo TINYINT(1) NOT NULL DEFAULT 1,
		fecha_creacion DATETIME NOT NULL,
		fecha_modificacion DATETIME NOT NULL,
		UNIQUE KEY uq_usuarios_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		usuario_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_usuario (usuario_id),
		CONSTRAINT fk_refresh_tokens_usuario FOREIGN KEY (usuario_id) REFERENCES usuarios (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS eventos (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		productor_id BIGINT UNSIGNED NOT NULL,
		nombre VARCHAR(200) NOT NULL,
		descripcion TEXT NOT NULL,
		ubicacion VARCHAR(200) NOT NULL DEFAULT '',
		fecha DATETIME NOT NULL,
		capacidad_maxima INT NULL,
		precio_entrada DECIMAL(12,2) NOT NULL DEFAULT 0,
		activo TINYINT(1) NOT NULL DEFAULT 1,
		fecha_creacion DATETIME NOT NULL,
		fecha_modificacion DATETIME NOT NULL,
		KEY idx_eventos_fecha (activo, fecha),
		KEY idx_eventos_productor (productor_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservas (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		usuario_id BIGINT UNSIGNED NOT NULL,
		evento_id BIGINT UNSIGNED NOT NULL,
		cantidad INT NOT NULL,
		precio_unitario DECIMAL(12,2) NOT NULL,
		precio_total DECIMAL(14,2) NOT NULL,
		estado ENUM('RESERVADA','CANCELADA') NOT NULL DEFAULT 'RESERVADA',
		fecha_reserva DATETIME NOT NULL,
		comentarios TEXT NULL,
		activo TINYINT(1) NOT NULL DEFAULT 1,
		fecha_creacion DATETIME NOT NULL,
		fecha_modificacion DATETIME NOT NULL,
		KEY idx_reservas_evento (evento_id, estado, activo),
		KEY idx_reservas_usuario_evento (usuario_id, evento_id, estado),
		CONSTRAINT fk_reservas_evento FOREIGN KEY (evento_id) REFERENCES eventos (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.  It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
