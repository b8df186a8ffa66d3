package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agrisense/fieldwatch/module/core/domain"
	"github.com/agrisense/fieldwatch/module/core/internal/repository/database"
)

var _ database.GeofenceRepository = (*GeofenceRepo)(nil)

type GeofenceRepo struct {
	db *sql.DB
}

func NewGeofenceRepo(db *sql.DB) *GeofenceRepo {
	return &GeofenceRepo{db: db}
}

func (r *GeofenceRepo) Save(ctx context.Context, vertices []domain.LatLon) (*domain.Geofence, error) {
	coords, err := json.Marshal(vertices)
	if err != nil {
		return nil, fmt.Errorf("marshal coordinates: %w", err)
	}

	createdAt := time.Now().UTC()
	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO geofences (coords_json, created_at) VALUES ($1, $2) RETURNING id`,
		string(coords), createdAt,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert geofence: %w", err)
	}

	return &domain.Geofence{ID: id, Vertices: vertices, CreatedAt: createdAt}, nil
}

func (r *GeofenceRepo) Current(ctx context.Context) (*domain.Geofence, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, coords_json, created_at FROM geofences ORDER BY id DESC LIMIT 1`,
	)

	var (
		g      domain.Geofence
		coords string
	)
	if err := row.Scan(&g.ID, &coords, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoGeofence
		}
		return nil, fmt.Errorf("query current geofence: %w", err)
	}
	if err := json.Unmarshal([]byte(coords), &g.Vertices); err != nil {
		return nil, fmt.Errorf("unmarshal coordinates: %w", err)
	}
	return &g, nil
}
