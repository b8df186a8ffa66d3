package subscriber

import (
	"context"
	"encoding/json"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

const topicPattern = "fieldwatch/device/+/position"

type ingestService interface {
	SubmitPosition(ctx context.Context, deviceID string, lat, lon float64) (*domain.Position, error)
}

type positionMessage struct {
	DeviceID string   `json:"device_id"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

// PositionSubscriber feeds device reports arriving over MQTT through the
// same validate-persist-broadcast pipeline as the HTTP entry point.
type PositionSubscriber struct {
	client mqtt.Client
	ingest ingestService
}

func NewPositionSubscriber(client mqtt.Client, ingest ingestService) *PositionSubscriber {
	return &PositionSubscriber{client: client, ingest: ingest}
}

func (s *PositionSubscriber) Start() error {
	token := s.client.Subscribe(topicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *PositionSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw positionMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("invalid position message: %v", err)
		return
	}
	if raw.Lat == nil || raw.Lon == nil {
		log.Printf("invalid position message: lat and lon are required")
		return
	}

	if _, err := s.ingest.SubmitPosition(context.Background(), raw.DeviceID, *raw.Lat, *raw.Lon); err != nil {
		log.Printf("submit position: %v", err)
	}
}
