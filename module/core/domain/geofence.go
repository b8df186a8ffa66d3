package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
)

// LatLon is a single boundary vertex. On the wire it is a two-element
// array [lat, lon], matching the /api/geofence coordinate format.
type LatLon struct {
	Lat float64
	Lon float64
}

func (p LatLon) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lon})
}

func (p *LatLon) UnmarshalJSON(data []byte) error {
	var raw []json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: coordinates must be numeric pairs", ErrInvalidInput)
	}
	if len(raw) != 2 {
		return fmt.Errorf("%w: coordinate pair must have exactly 2 elements, got %d", ErrInvalidInput, len(raw))
	}
	lat, err := raw[0].Float64()
	if err != nil {
		return fmt.Errorf("%w: latitude %q is not numeric", ErrInvalidInput, raw[0])
	}
	lon, err := raw[1].Float64()
	if err != nil {
		return fmt.Errorf("%w: longitude %q is not numeric", ErrInvalidInput, raw[1])
	}
	p.Lat, p.Lon = lat, lon
	return nil
}

// Geofence is one immutable boundary version. The current fence is always
// the one with the highest ID; updates append a new version.
type Geofence struct {
	ID        int64     `json:"id"`
	Vertices  []LatLon  `json:"coordinates"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateVertices checks a vertex sequence before it is persisted:
// non-empty, every value finite.
func ValidateVertices(vertices []LatLon) error {
	if len(vertices) == 0 {
		return fmt.Errorf("%w: coordinates must be a non-empty list", ErrInvalidInput)
	}
	for i, v := range vertices {
		if math.IsNaN(v.Lat) || math.IsInf(v.Lat, 0) || math.IsNaN(v.Lon) || math.IsInf(v.Lon, 0) {
			return fmt.Errorf("%w: vertex %d is not finite", ErrInvalidInput, i)
		}
	}
	return nil
}

// Ring returns the boundary as a closed orb ring. orb points are
// lon/lat ordered.
func (g *Geofence) Ring() orb.Ring {
	ring := make(orb.Ring, 0, len(g.Vertices)+1)
	for _, v := range g.Vertices {
		ring = append(ring, orb.Point{v.Lon, v.Lat})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}
