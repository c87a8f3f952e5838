package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Alert is the informational event emitted for threshold violations,
// suppressed shutdowns, sensor degradation, and reactivations.
type Alert struct {
	ZoneID    string    `json:"zoneId,omitempty"`
	SensorID  string    `json:"sensorId,omitempty"`
	Severity  string    `json:"severity"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Value     float64   `json:"value,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Time      time.Time `json:"time"`
}

// Subscription detaches a listener when Unsubscribe is called.
type Subscription struct {
	cancel func()
}

func (s Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Notifier fans events out to registered listeners. Each listener is invoked
// under recover so one panicking callback cannot break the others or the
// controller; failures are logged and contained.
type Notifier[T any] struct {
	mu        sync.Mutex
	seq       int
	listeners map[int]func(T)
	logger    *slog.Logger
}

func NewNotifier[T any](logger *slog.Logger) *Notifier[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier[T]{
		listeners: map[int]func(T){},
		logger:    logger,
	}
}

func (n *Notifier[T]) Subscribe(fn func(T)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	id := n.seq
	n.listeners[id] = fn
	return Subscription{cancel: func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}}
}

func (n *Notifier[T]) Publish(event T) {
	n.mu.Lock()
	fns := make([]func(T), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		n.invoke(fn, event)
	}
}

func (n *Notifier[T]) invoke(fn func(T), event T) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("notifier listener panicked", slog.Any("panic", r))
		}
	}()
	fn(event)
}
