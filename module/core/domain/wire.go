package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire format for realtime channel events, shared by the websocket hub
// and the tracker client:
//
//	{"event":"geofence_updated","coordinates":[[lat,lon],...]}
//	{"event":"gps_update","lat":..,"lon":..,"ts":"RFC3339","device_id":"..."}

type geofenceWire struct {
	Event       string   `json:"event"`
	Coordinates []LatLon `json:"coordinates"`
}

type positionWire struct {
	Event    string  `json:"event"`
	DeviceID string  `json:"device_id,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Ts       string  `json:"ts"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EventGeofenceUpdated:
		if e.Geofence == nil {
			return nil, fmt.Errorf("geofence_updated event without geofence")
		}
		return json.Marshal(geofenceWire{
			Event:       string(EventGeofenceUpdated),
			Coordinates: e.Geofence.Vertices,
		})
	case EventPositionUpdated:
		if e.Position == nil {
			return nil, fmt.Errorf("gps_update event without position")
		}
		return json.Marshal(positionWire{
			Event:    string(EventPositionUpdated),
			DeviceID: e.Position.DeviceID,
			Lat:      e.Position.Lat,
			Lon:      e.Position.Lon,
			Ts:       e.Position.ReceivedAt.UTC().Format(time.RFC3339Nano),
		})
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch EventKind(head.Event) {
	case EventGeofenceUpdated:
		var w geofenceWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		e.Kind = EventGeofenceUpdated
		e.Geofence = &Geofence{Vertices: w.Coordinates}
		e.Position = nil
		return nil
	case EventPositionUpdated:
		var w positionWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		ts, err := time.Parse(time.RFC3339Nano, w.Ts)
		if err != nil {
			return fmt.Errorf("parse ts: %w", err)
		}
		e.Kind = EventPositionUpdated
		e.Position = &Position{DeviceID: w.DeviceID, Lat: w.Lat, Lon: w.Lon, ReceivedAt: ts}
		e.Geofence = nil
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", head.Event)
	}
}
