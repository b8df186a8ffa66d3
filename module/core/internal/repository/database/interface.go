package database

import (
	"context"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

// GeofenceRepository stores immutable boundary versions. There is no
// update or delete: observers may cache a version by its id.
type GeofenceRepository interface {
	Save(ctx context.Context, vertices []domain.LatLon) (*domain.Geofence, error)
	Current(ctx context.Context) (*domain.Geofence, error)
}

// PositionRepository is the append-only position log.
type PositionRepository interface {
	Append(ctx context.Context, p *domain.Position) (*domain.Position, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Position, error)
}
