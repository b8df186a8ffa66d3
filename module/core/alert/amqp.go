// Package alert holds the exit-alert dispatchers. Dispatch is always
// best-effort: a failing sink is logged by the caller, never propagated
// into the detector's event-processing path.
package alert

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

const (
	ExchangeName = "fieldwatch.events"
	QueueName    = "geofence_alerts"
)

// AMQPDispatcher pushes exit alerts onto a durable fanout exchange so
// external consumers (pagers, dashboards) pick them up.
type AMQPDispatcher struct {
	ch *amqp.Channel
}

func NewAMQPDispatcher(conn *amqp.Connection) (*AMQPDispatcher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &AMQPDispatcher{ch: ch}, nil
}

type alertMessage struct {
	DeviceID string        `json:"device_id,omitempty"`
	Event    string        `json:"event"`
	Location alertLocation `json:"location"`
	FiredAt  string        `json:"fired_at"`
}

type alertLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (d *AMQPDispatcher) Fire(ctx context.Context, alert *domain.ExitAlert) error {
	msg := alertMessage{
		DeviceID: alert.DeviceID,
		Event:    "geofence_exit",
		Location: alertLocation{
			Latitude:  alert.Position.Lat,
			Longitude: alert.Position.Lon,
		},
		FiredAt: alert.FiredAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return d.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
