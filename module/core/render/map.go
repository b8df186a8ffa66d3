// Package render maintains the map snapshot artifact: an HTML page with
// the boundary outline, the position trail and a marker on the latest
// report. Rendering is best-effort visualization; failures are logged and
// never surface to the detector.
package render

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"text/template"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

type snapshot struct {
	trail []domain.Position
	fence *domain.Geofence
	last  domain.Position
}

// MapRenderer serializes writers to one artifact path. Concurrent render
// requests coalesce to the newest snapshot: at most one render is in
// flight and at most one is pending, so a burst of position updates never
// queues unboundedly.
type MapRenderer struct {
	path string

	mu      sync.Mutex
	pending *snapshot
	busy    bool
}

func NewMapRenderer(path string) *MapRenderer {
	return &MapRenderer{path: path}
}

// Render schedules a snapshot write. It never blocks on file IO beyond
// the write already in flight on the calling goroutine.
func (r *MapRenderer) Render(trail []domain.Position, fence *domain.Geofence, last domain.Position) {
	r.mu.Lock()
	r.pending = &snapshot{trail: trail, fence: fence, last: last}
	if r.busy {
		r.mu.Unlock()
		return
	}
	r.busy = true
	for r.pending != nil {
		s := *r.pending
		r.pending = nil
		r.mu.Unlock()

		if err := r.write(s); err != nil {
			log.Printf("render map: %v", err)
		}

		r.mu.Lock()
	}
	r.busy = false
	r.mu.Unlock()
}

// write produces the artifact atomically: temp file in the same
// directory, then rename.
func (r *MapRenderer) write(s snapshot) error {
	trail := make([][2]float64, 0, len(s.trail))
	for _, p := range s.trail {
		trail = append(trail, [2]float64{p.Lat, p.Lon})
	}

	boundary := make([][2]float64, 0)
	if s.fence != nil {
		for _, v := range s.fence.Vertices {
			boundary = append(boundary, [2]float64{v.Lat, v.Lon})
		}
	}

	trailJSON, err := json.Marshal(trail)
	if err != nil {
		return fmt.Errorf("marshal trail: %w", err)
	}
	boundaryJSON, err := json.Marshal(boundary)
	if err != nil {
		return fmt.Errorf("marshal boundary: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".map-*.html")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	err = mapTemplate.Execute(tmp, map[string]any{
		"Lat":      s.last.Lat,
		"Lon":      s.last.Lon,
		"Trail":    string(trailJSON),
		"Boundary": string(boundaryJSON),
	})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>fieldwatch</title>
  <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
  <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
  <style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
  var map = L.map('map').setView([{{.Lat}}, {{.Lon}}], 18);
  L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
    maxZoom: 19
  }).addTo(map);
  var boundary = {{.Boundary}};
  if (boundary.length > 0) {
    L.polygon(boundary, {color: 'green', fill: false}).addTo(map);
  }
  var trail = {{.Trail}};
  if (trail.length > 0) {
    L.polyline(trail).addTo(map);
  }
  L.marker([{{.Lat}}, {{.Lon}}]).addTo(map).bindPopup('Device');
</script>
</body>
</html>
`))
