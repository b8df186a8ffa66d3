package domain

import "time"

type EventKind string

const (
	EventGeofenceUpdated EventKind = "geofence_updated"
	EventPositionUpdated EventKind = "gps_update"
)

// Event is one realtime channel message. Exactly one of Geofence or
// Position is set, according to Kind.
type Event struct {
	Kind     EventKind
	Geofence *Geofence
	Position *Position
}

// ExitAlert is fired once per inside-to-outside boundary crossing.
type ExitAlert struct {
	DeviceID string    `json:"device_id,omitempty"`
	Position Position  `json:"position"`
	FiredAt  time.Time `json:"fired_at"`
}
