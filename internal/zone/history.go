package zone

import (
	"sync"
	"time"
)

// history is the bounded in-memory shutdown event log. It backs both the
// rolling-hour frequency limiter and the read-only reporting surface.
type history struct {
	mu     sync.Mutex
	events []Event
	cap    int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = 1000
	}
	return &history{cap: capacity}
}

func (h *history) append(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	if len(h.events) > h.cap {
		h.events = h.events[len(h.events)-h.cap:]
	}
}

// finalize updates the event with the given id to its terminal status and
// returns the updated copy.
func (h *history) finalize(id, status string, actual time.Duration, failedSteps int) (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].ID == id {
			h.events[i].Status = status
			h.events[i].ActualDuration = actual
			h.events[i].FailedSteps = failedSteps
			return h.events[i], true
		}
	}
	return Event{}, false
}

// countStartedSince reports how many shutdowns began for the zone inside the
// rolling window.
func (h *history) countStartedSince(zoneID string, since time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.ZoneID == zoneID && !e.StartedAt.Before(since) {
			n++
		}
	}
	return n
}

// query returns up to limit events newest-first, optionally filtered by zone.
func (h *history) query(zoneID string, limit int) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []Event{}
	for i := len(h.events) - 1; i >= 0; i-- {
		if zoneID != "" && h.events[i].ZoneID != zoneID {
			continue
		}
		out = append(out, h.events[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
