package alert

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

func TestBellDispatcher_Fire(t *testing.T) {
	var buf bytes.Buffer
	d := &BellDispatcher{out: &buf}

	err := d.Fire(context.Background(), &domain.ExitAlert{
		DeviceID: "tractor-1",
		Position: domain.Position{Lat: 50, Lon: 50, ReceivedAt: time.Unix(1715003456, 0)},
		FiredAt:  time.Unix(1715003456, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "\a" {
		t.Errorf("expected bell byte, got %q", buf.String())
	}
}
