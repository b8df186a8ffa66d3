package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

// Containment is the per-device boundary state. The first observed
// position establishes the baseline; only a later Inside→Outside
// transition fires an alert.
type Containment int

const (
	ContainmentUnknown Containment = iota
	ContainmentInside
	ContainmentOutside
)

func (c Containment) String() string {
	switch c {
	case ContainmentInside:
		return "inside"
	case ContainmentOutside:
		return "outside"
	default:
		return "unknown"
	}
}

const alertTimeout = 5 * time.Second

type alertDispatcher interface {
	Fire(ctx context.Context, alert *domain.ExitAlert) error
}

type mapRenderer interface {
	Render(trail []domain.Position, fence *domain.Geofence, last domain.Position)
}

// Tracker holds one observer's view of the world: the current boundary,
// the trail of positions seen since attach, and containment per device.
// It is owned by a single observer and safe for its event loop plus
// concurrent state reads.
type Tracker struct {
	mu     sync.Mutex
	fence  *domain.Geofence
	ring   orb.Ring
	trail  []domain.Position
	states map[string]Containment

	alerts   alertDispatcher
	renderer mapRenderer
	now      func() time.Time
}

// NewTracker builds a detector. alerts and renderer may be nil; both are
// best-effort side effects outside the event-processing path.
func NewTracker(alerts alertDispatcher, renderer mapRenderer) *Tracker {
	return &Tracker{
		states:   make(map[string]Containment),
		alerts:   alerts,
		renderer: renderer,
		now:      time.Now,
	}
}

// HandleGeofence swaps the boundary. Containment states are deliberately
// preserved: reclassification waits for the next position event, so a
// boundary edit alone never fires an alert.
func (t *Tracker) HandleGeofence(g *domain.Geofence) {
	if g == nil {
		return
	}
	t.mu.Lock()
	t.fence = g
	t.ring = g.Ring()
	t.mu.Unlock()
}

// HandlePosition appends the report to the trail, evaluates containment
// and fires an exit alert on an inside-to-outside transition. With no
// boundary set every position counts as inside. Points exactly on the
// boundary count as inside.
func (t *Tracker) HandlePosition(p domain.Position) {
	t.mu.Lock()
	t.trail = append(t.trail, p)

	inside := true
	if t.ring != nil {
		inside = planar.RingContains(t.ring, orb.Point{p.Lon, p.Lat})
	}

	next := ContainmentOutside
	if inside {
		next = ContainmentInside
	}

	prev := t.states[p.DeviceID]
	t.states[p.DeviceID] = next
	fire := prev == ContainmentInside && next == ContainmentOutside

	var trail []domain.Position
	fence := t.fence
	if t.renderer != nil {
		trail = make([]domain.Position, len(t.trail))
		copy(trail, t.trail)
	}
	t.mu.Unlock()

	if fire && t.alerts != nil {
		alert := &domain.ExitAlert{
			DeviceID: p.DeviceID,
			Position: p,
			FiredAt:  t.now().UTC(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
			defer cancel()
			if err := t.alerts.Fire(ctx, alert); err != nil {
				log.Printf("alert dispatch: %v", err)
			}
		}()
	}

	if t.renderer != nil {
		t.renderer.Render(trail, fence, p)
	}
}

// Containment reports the current state for a device. The empty id is
// the single implicit device.
func (t *Tracker) Containment(deviceID string) Containment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[deviceID]
}

// Trail returns a copy of the positions observed since attach.
func (t *Tracker) Trail() []domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	trail := make([]domain.Position, len(t.trail))
	copy(trail, t.trail)
	return trail
}

// Run drives the detector from an event stream until the context is
// cancelled or the stream closes.
func (t *Tracker) Run(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case domain.EventGeofenceUpdated:
				t.HandleGeofence(ev.Geofence)
			case domain.EventPositionUpdated:
				if ev.Position != nil {
					t.HandlePosition(*ev.Position)
				}
			}
		}
	}
}
