package alert

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

// BellDispatcher rings the terminal bell and logs the exit. It is the
// local audible cue used by the standalone tracker.
type BellDispatcher struct {
	out io.Writer
}

func NewBellDispatcher() *BellDispatcher {
	return &BellDispatcher{out: os.Stdout}
}

func (d *BellDispatcher) Fire(_ context.Context, alert *domain.ExitAlert) error {
	if _, err := fmt.Fprint(d.out, "\a"); err != nil {
		return err
	}
	log.Printf("ALERT: device %q exited geofence at %.6f,%.6f", alert.DeviceID, alert.Position.Lat, alert.Position.Lon)
	return nil
}
