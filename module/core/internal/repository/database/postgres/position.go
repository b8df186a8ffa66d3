package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agrisense/fieldwatch/module/core/domain"
	"github.com/agrisense/fieldwatch/module/core/internal/repository/database"
)

var _ database.PositionRepository = (*PositionRepo)(nil)

type PositionRepo struct {
	db *sql.DB
}

func NewPositionRepo(db *sql.DB) *PositionRepo {
	return &PositionRepo{db: db}
}

// Append durably stores one report. The serial id gives a stable
// tie-break ordering when concurrent reports share a timestamp.
func (r *PositionRepo) Append(ctx context.Context, p *domain.Position) (*domain.Position, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO position_reports (device_id, lat, lon, received_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.DeviceID, p.Lat, p.Lon, p.ReceivedAt,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert position: %w", err)
	}

	stored := *p
	stored.ID = id
	return &stored, nil
}

func (r *PositionRepo) ListRecent(ctx context.Context, limit int) ([]domain.Position, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, lat, lon, received_at FROM position_reports ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent positions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.ID, &p.DeviceID, &p.Lat, &p.Lon, &p.ReceivedAt); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
