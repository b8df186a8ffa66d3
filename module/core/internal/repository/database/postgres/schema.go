package postgres

import (
	"database/sql"
	"fmt"
)

// EnsureSchema creates the two append-only record sets if they do not
// exist yet. Neither table is ever updated or deleted from.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS geofences (
			id BIGSERIAL PRIMARY KEY,
			coords_json TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS position_reports (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			received_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
