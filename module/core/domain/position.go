package domain

import (
	"fmt"
	"math"
	"time"
)

// Position is one received device position report. DeviceID is optional;
// the empty string is the single implicit device. ReceivedAt is always
// assigned by the server, never taken from the client.
type Position struct {
	ID         int64     `json:"id,omitempty"`
	DeviceID   string    `json:"device_id,omitempty"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	ReceivedAt time.Time `json:"ts"`
}

// ValidateCoordinates rejects non-finite or out-of-range values.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: lat and lon must be finite numbers", ErrInvalidInput)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90", ErrInvalidInput)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180", ErrInvalidInput)
	}
	return nil
}
