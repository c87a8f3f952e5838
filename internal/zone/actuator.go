package zone

import (
	"context"
	"time"
)

// Actuator issues a shutdown step's command against the affected components
// and returns when the step has taken effect. Implementations wrap the real
// vehicle actuation bus; the controller only awaits completion within the
// step's bounded timeout.
type Actuator interface {
	Execute(ctx context.Context, zoneID string, step Step) error
}

// SimActuator completes each step after its nominal duration, or reports the
// context error if the bounded timeout expires first. Used in tests and
// standalone runs without hardware.
type SimActuator struct{}

func (SimActuator) Execute(ctx context.Context, zoneID string, step Step) error {
	d := step.Duration
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
