package events

import (
	"sync"

	"github.com/linkspool/linkspool/internal/domain"
)

// Kind labels a queue lifecycle event.
type Kind string

const (
	ItemSent     Kind = "item_sent"
	ItemFailed   Kind = "item_failed"
	StatsUpdated Kind = "stats_updated"
)

// Event carries only the triggering fact. Listeners re-query the queue for
// fresh state instead of receiving deltas, so a dropped event can at worst
// delay a refresh, never corrupt one.
type Event struct {
	Kind   Kind               `json:"kind"`
	ItemID int64              `json:"itemId,omitempty"`
	Stats  *domain.QueueStats `json:"stats,omitempty"`
}

// Notifier is a process-local publish point with zero or more subscribers.
// Publish is fire-and-forget: a missing or slow listener never blocks the
// retry worker.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener with the given channel buffer and returns
// the event channel plus a cancel function. Cancel is idempotent and safe
// to call while events are being published.
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	ch := make(chan Event, buffer)
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber whose buffer has room. Events to
// saturated subscribers are dropped rather than blocking the publisher.
func (n *Notifier) Publish(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the current listener count.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
