package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

type mockIngest struct {
	submitFn func(ctx context.Context, deviceID string, lat, lon float64) (*domain.Position, error)
	calls    int
}

func (m *mockIngest) SubmitPosition(ctx context.Context, deviceID string, lat, lon float64) (*domain.Position, error) {
	m.calls++
	return m.submitFn(ctx, deviceID, lat, lon)
}

type fakeMQTTMessage struct {
	payload []byte
}

func (f *fakeMQTTMessage) Duplicate() bool   { return false }
func (f *fakeMQTTMessage) Qos() byte         { return 0 }
func (f *fakeMQTTMessage) Retained() bool    { return false }
func (f *fakeMQTTMessage) Topic() string     { return "fieldwatch/device/tractor-1/position" }
func (f *fakeMQTTMessage) MessageID() uint16 { return 0 }
func (f *fakeMQTTMessage) Payload() []byte   { return f.payload }
func (f *fakeMQTTMessage) Ack()              {}

func TestHandleMessage_Success(t *testing.T) {
	var gotDevice string
	var gotLat, gotLon float64
	ingest := &mockIngest{
		submitFn: func(_ context.Context, deviceID string, lat, lon float64) (*domain.Position, error) {
			gotDevice, gotLat, gotLon = deviceID, lat, lon
			return &domain.Position{ID: 1, DeviceID: deviceID, Lat: lat, Lon: lon}, nil
		},
	}

	sub := &PositionSubscriber{ingest: ingest}
	payload, _ := json.Marshal(map[string]any{"device_id": "tractor-1", "lat": -6.2088, "lon": 106.8456})
	sub.handleMessage(nil, &fakeMQTTMessage{payload: payload})

	if ingest.calls != 1 {
		t.Fatalf("expected 1 submit, got %d", ingest.calls)
	}
	if gotDevice != "tractor-1" {
		t.Errorf("expected tractor-1, got %s", gotDevice)
	}
	if gotLat != -6.2088 || gotLon != 106.8456 {
		t.Errorf("unexpected coordinates: %f,%f", gotLat, gotLon)
	}
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	ingest := &mockIngest{
		submitFn: func(_ context.Context, _ string, _, _ float64) (*domain.Position, error) {
			t.Fatal("SubmitPosition should not be called")
			return nil, nil
		},
	}

	sub := &PositionSubscriber{ingest: ingest}
	sub.handleMessage(nil, &fakeMQTTMessage{payload: []byte("not json")})
}

func TestHandleMessage_MissingCoordinates(t *testing.T) {
	ingest := &mockIngest{
		submitFn: func(_ context.Context, _ string, _, _ float64) (*domain.Position, error) {
			t.Fatal("SubmitPosition should not be called")
			return nil, nil
		},
	}

	sub := &PositionSubscriber{ingest: ingest}
	payload, _ := json.Marshal(map[string]any{"device_id": "tractor-1", "lat": -6.2})
	sub.handleMessage(nil, &fakeMQTTMessage{payload: payload})
}

func TestHandleMessage_SubmitError(t *testing.T) {
	ingest := &mockIngest{
		submitFn: func(_ context.Context, _ string, _, _ float64) (*domain.Position, error) {
			return nil, errors.New("db down")
		},
	}

	sub := &PositionSubscriber{ingest: ingest}
	payload, _ := json.Marshal(map[string]any{"lat": 95.0, "lon": 5.0})
	// Errors are logged and swallowed; the subscriber must not panic.
	sub.handleMessage(nil, &fakeMQTTMessage{payload: payload})
}
