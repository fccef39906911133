// internal/game/history.go
package game

import (
	"errors"
	"sync"
)

// ErrOutOfRange is returned by History.Get for an index outside the log.
// Under correct orchestration it never happens; treat it as a bug.
var ErrOutOfRange = errors.New("game: history index out of range")

// Entry is an event together with the index it was appended at. An event's
// index is always its resulting state version minus one.
type Entry struct {
	Event Event `json:"event"`
	Index int   `json:"index"`
}

// ListenerFunc receives every event pushed after the listener was added,
// along with its index.
type ListenerFunc func(ev Event, index int)

type listener struct {
	id int
	fn ListenerFunc
}

// History is the append-only event log: the single source of truth for game
// state. Push notifies listeners synchronously in registration order before
// it returns, so a caller observing the returned index knows every listener
// already saw the event. Events are never retracted.
type History struct {
	mu        sync.Mutex
	entries   []Event
	listeners []listener
	nextID    int
}

// NewHistory returns an empty log.
func NewHistory() *History {
	return &History{}
}

// Push appends ev, fans it out to all registered listeners, and returns the
// index it was stored at.
func (h *History) Push(ev Event) int {
	h.mu.Lock()
	h.entries = append(h.entries, ev)
	index := len(h.entries) - 1
	snapshot := make([]listener, len(h.listeners))
	copy(snapshot, h.listeners)
	h.mu.Unlock()

	for _, l := range snapshot {
		l.fn(ev, index)
	}
	return index
}

// Subscription detaches a listener from future notifications.
type Subscription struct {
	once   sync.Once
	remove func()
}

// Remove unregisters the listener. Safe to call more than once, and safe to
// call from inside a listener callback; a notification already in flight
// still completes.
func (s *Subscription) Remove() {
	s.once.Do(s.remove)
}

// AddListener registers fn for all future pushes. Listeners are notified in
// the order they were added.
func (h *History) AddListener(fn ListenerFunc) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners = append(h.listeners, listener{id: id, fn: fn})
	return &Subscription{remove: func() { h.removeListener(id) }}
}

func (h *History) removeListener(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, l := range h.listeners {
		if l.id == id {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return
		}
	}
}

// Slice returns the entries in [start, end), clamped to the log's bounds.
// Slice(0, h.Len()) is the full history; it is what reconnecting clients
// replay to catch up.
func (h *History) Slice(start, end int) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if start < 0 {
		start = 0
	}
	if end < 0 || end > len(h.entries) {
		end = len(h.entries)
	}
	if start >= end {
		return nil
	}
	entries := make([]Entry, 0, end-start)
	for i := start; i < end; i++ {
		entries = append(entries, Entry{Event: h.entries[i], Index: i})
	}
	return entries
}

// All returns the full history.
func (h *History) All() []Entry {
	return h.Slice(0, -1)
}

// Get returns the event at index.
func (h *History) Get(index int) (Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.entries) {
		return Event{}, ErrOutOfRange
	}
	return h.entries[index], nil
}

// Len is the number of events pushed so far, which equals the current state
// version.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
