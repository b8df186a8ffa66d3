package service

import (
	"context"
	"time"

	"github.com/agrisense/fieldwatch/module/core/domain"
	"github.com/agrisense/fieldwatch/module/core/internal/repository/database"
)

type eventPublisher interface {
	Publish(ev domain.Event)
}

// IngestService validates and persists geofence and position submissions,
// then broadcasts the corresponding event. An event is only ever published
// after the durable write succeeded: observers never see data that failed
// to persist.
type IngestService struct {
	geofences database.GeofenceRepository
	positions database.PositionRepository
	publisher eventPublisher
	now       func() time.Time
}

func NewIngestService(geofences database.GeofenceRepository, positions database.PositionRepository, publisher eventPublisher) *IngestService {
	return &IngestService{
		geofences: geofences,
		positions: positions,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *IngestService) SubmitGeofence(ctx context.Context, vertices []domain.LatLon) (*domain.Geofence, error) {
	if err := domain.ValidateVertices(vertices); err != nil {
		return nil, err
	}

	saved, err := s.geofences.Save(ctx, vertices)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(domain.Event{Kind: domain.EventGeofenceUpdated, Geofence: saved})
	return saved, nil
}

func (s *IngestService) SubmitPosition(ctx context.Context, deviceID string, lat, lon float64) (*domain.Position, error) {
	if err := domain.ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	report := &domain.Position{
		DeviceID:   deviceID,
		Lat:        lat,
		Lon:        lon,
		ReceivedAt: s.now().UTC(),
	}

	saved, err := s.positions.Append(ctx, report)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(domain.Event{Kind: domain.EventPositionUpdated, Position: saved})
	return saved, nil
}

func (s *IngestService) CurrentGeofence(ctx context.Context) (*domain.Geofence, error) {
	return s.geofences.Current(ctx)
}

func (s *IngestService) RecentPositions(ctx context.Context, limit int) ([]domain.Position, error) {
	return s.positions.ListRecent(ctx, limit)
}
