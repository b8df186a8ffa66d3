package core

import (
	"context"
	"database/sql"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/agrisense/fieldwatch/module/core/alert"
	"github.com/agrisense/fieldwatch/module/core/internal/broker"
	handler "github.com/agrisense/fieldwatch/module/core/internal/handler/http"
	"github.com/agrisense/fieldwatch/module/core/internal/handler/subscriber"
	"github.com/agrisense/fieldwatch/module/core/internal/handler/ws"
	"github.com/agrisense/fieldwatch/module/core/internal/repository/database/postgres"
	"github.com/agrisense/fieldwatch/module/core/render"
	"github.com/agrisense/fieldwatch/module/core/service"
)

type Module struct {
	Ingest  *service.IngestService
	Tracker *service.Tracker

	bus        *broker.Bus
	handler    *handler.GeofenceHandler
	hub        *ws.Hub
	subscriber *subscriber.PositionSubscriber
}

// Build wires the geofence service: postgres repositories, the in-process
// realtime channel, the HTTP and websocket edges, the MQTT ingest path
// and the server-embedded detector that publishes exit alerts to AMQP
// and keeps the map artifact current.
func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, mapPath string) (*Module, error) {
	if err := postgres.EnsureSchema(db); err != nil {
		return nil, err
	}

	geofenceRepo := postgres.NewGeofenceRepo(db)
	positionRepo := postgres.NewPositionRepo(db)

	bus := broker.New()
	ingest := service.NewIngestService(geofenceRepo, positionRepo, bus)

	dispatcher, err := alert.NewAMQPDispatcher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("alert dispatcher: %w", err)
	}
	tracker := service.NewTracker(dispatcher, render.NewMapRenderer(mapPath))

	return &Module{
		Ingest:     ingest,
		Tracker:    tracker,
		bus:        bus,
		handler:    handler.NewGeofenceHandler(ingest),
		hub:        ws.NewHub(bus, ingest),
		subscriber: subscriber.NewPositionSubscriber(mqttClient, ingest),
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
	m.hub.Register(r)
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}

// Start launches the websocket fan-out and the embedded detector. The
// detector's polygon is seeded from the repository before it starts
// consuming events; missing geofence just means the fence arrives later
// as an event.
func (m *Module) Start(ctx context.Context) {
	go m.hub.Run(ctx)

	sub := m.bus.Subscribe()
	if fence, err := m.Ingest.CurrentGeofence(ctx); err == nil {
		m.Tracker.HandleGeofence(fence)
	}
	go func() {
		defer m.bus.Unsubscribe(sub)
		m.Tracker.Run(ctx, sub.Events())
	}()
}
