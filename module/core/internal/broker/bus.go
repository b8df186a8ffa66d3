package broker

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

// defaultBuffer bounds each subscriber's backlog. A subscriber that falls
// this far behind is disconnected rather than allowed to block the
// publisher or other subscribers.
const defaultBuffer = 256

// Bus is the in-process realtime channel. Events published after a
// Subscribe call are delivered to that subscription in publish order;
// there is no backfill, callers that need the current geofence fetch it
// from the repository first.
type Bus struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

type Subscription struct {
	id string
	ch chan domain.Event
}

// Events is the subscriber's receive stream. The channel is closed when
// the subscription is cancelled or dropped for falling behind.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

func New() *Bus {
	return &Bus{subs: make(map[string]*Subscription)}
}

func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		id: uuid.NewString(),
		ch: make(chan domain.Event, defaultBuffer),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Unsubscribe is idempotent. The subscription's channel is closed and any
// in-flight deliveries to it are abandoned.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(sub.ch)
	}
}

// Publish delivers ev to every current subscriber without blocking. A
// subscriber whose buffer is full is disconnected; delivery to the rest
// is unaffected.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			delete(b.subs, id)
			close(sub.ch)
			log.Printf("broker: subscriber %s dropped, buffer full", id)
		}
	}
}

// SubscriberCount reports the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
