package zone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"thermoguard/internal/notify"
)

// trigger enforces the shutdown invariants (one execution per zone, the
// rolling-hour frequency limit, the enable flag), records the started event,
// and launches the staged execution.
func (m *Manager) trigger(z *managedZone, severity Severity, reason string) error {
	if !m.cfg.AutoShutdown {
		return fmt.Errorf("zone %s: %w", z.id, ErrShutdownDisabled)
	}

	now := m.now()

	z.mu.Lock()
	if z.shutdownActive || z.execution != nil {
		z.mu.Unlock()
		return fmt.Errorf("zone %s: %w", z.id, ErrShutdownActive)
	}
	if m.cfg.MaxShutdownsPerHour > 0 {
		if n := m.hist.countStartedSince(z.id, now.Add(-time.Hour)); n >= m.cfg.MaxShutdownsPerHour {
			z.mu.Unlock()
			m.metrics.IncShutdownsSuppressed()
			m.publishAlert(notify.Alert{
				ZoneID:   z.id,
				Severity: string(severity),
				Kind:     "shutdown_suppressed",
				Message:  fmt.Sprintf("frequency limit reached: %d shutdowns in the last hour", n),
				Time:     now,
			})
			return fmt.Errorf("zone %s: %w", z.id, ErrShutdownSuppressed)
		}
	}
	proc, ok := z.procedures[severity]
	if !ok {
		z.mu.Unlock()
		return fmt.Errorf("zone %s: severity %s: %w", z.id, severity, ErrProcedureNotFound)
	}

	exec := &Execution{
		ID:          uuid.NewString(),
		ZoneID:      z.id,
		ProcedureID: proc.ID,
		Severity:    severity,
		StartedAt:   now,
		Steps:       make([]StepState, len(proc.Steps)),
	}
	for i := range exec.Steps {
		exec.Steps[i].Status = StepPending
	}
	z.execution = exec
	z.shutdownActive = true
	z.operational = false
	z.faults = append(z.faults, reason)

	event := Event{
		ID:                exec.ID,
		ZoneID:            z.id,
		ProcedureID:       proc.ID,
		Severity:          severity,
		Reason:            reason,
		StartedAt:         now,
		EstimatedDuration: proc.EstimatedDuration,
		Status:            EventStarted,
	}
	z.mu.Unlock()

	m.hist.append(event)
	m.metrics.IncShutdownsTriggered()
	m.shutdowns.Publish(event)
	m.logger.Warn("shutdown started", slog.String("zone", z.id),
		slog.String("severity", string(severity)),
		slog.String("procedure", proc.ID),
		slog.String("reason", reason))

	m.wg.Add(1)
	go m.runExecution(z, proc, exec.ID)
	return nil
}

// runExecution drives the procedure's steps strictly in order, one at a time.
// A failed step is marked, logged, and the execution still advances; a step
// whose nominal duration exceeds the configured backstop is truncated rather
// than failed.
func (m *Manager) runExecution(z *managedZone, proc Procedure, executionID string) {
	defer m.wg.Done()
	m.metrics.AddActiveExecutions(1)
	defer m.metrics.AddActiveExecutions(-1)

	// Grace period between the trigger and the first actuation, giving the
	// vehicle control system a window to prepare.
	if m.cfg.ShutdownDelay > 0 {
		time.Sleep(m.cfg.ShutdownDelay)
	}

	failed := 0
	for i, step := range proc.Steps {
		z.mu.Lock()
		z.execution.CurrentStep = i
		z.execution.Steps[i].Status = StepExecuting
		z.execution.Steps[i].StartedAt = m.now()
		z.mu.Unlock()

		timeout := step.Timeout
		if m.cfg.StepTimeoutCap > 0 && timeout > m.cfg.StepTimeoutCap {
			timeout = m.cfg.StepTimeoutCap
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := m.actuator.Execute(ctx, z.id, step)
		cancel()

		z.mu.Lock()
		st := &z.execution.Steps[i]
		st.CompletedAt = m.now()
		switch {
		case err == nil:
			st.Status = StepCompleted
		case errors.Is(err, context.DeadlineExceeded) && step.Duration > timeout:
			st.Status = StepCompleted
			st.Truncated = true
			m.logger.Warn("step truncated at timeout cap", slog.String("zone", z.id),
				slog.Int("step", i), slog.Duration("cap", timeout))
		default:
			st.Status = StepFailed
			st.Error = err.Error()
			failed++
			m.logger.Error("step failed", slog.String("zone", z.id),
				slog.Int("step", i), slog.String("action", string(step.Action)),
				slog.String("error", err.Error()))
		}
		z.mu.Unlock()
	}

	z.mu.Lock()
	started := z.execution.StartedAt
	z.execution = nil
	z.cooldownRemaining = m.cfg.Cooldown
	z.lastShutdown = m.now()
	z.mu.Unlock()

	status := EventCompleted
	if failed > 0 {
		status = EventCompletedWithFailures
	}
	actual := m.now().Sub(started)
	if evt, ok := m.hist.finalize(executionID, status, actual, failed); ok {
		m.shutdowns.Publish(evt)
	}
	m.metrics.ObserveProcedureDuration(actual.Seconds())
	m.logger.Info("shutdown completed", slog.String("zone", z.id),
		slog.String("status", status), slog.Int("failedSteps", failed),
		slog.Duration("duration", actual))
}

// CanReactivate reports whether the zone may return to service: the shutdown
// finished, cooldown has elapsed, the temperature settled under the normal
// threshold plus hysteresis, and the gradient is flat.
func (m *Manager) CanReactivate(zoneID string) (bool, error) {
	z, err := m.lookup(zoneID)
	if err != nil {
		return false, err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.canReactivateLocked(m.cfg.Hysteresis), nil
}

func (z *managedZone) canReactivateLocked(hysteresis float64) bool {
	if !z.shutdownActive || z.execution != nil {
		return false
	}
	if z.cooldownRemaining > 0 {
		return false
	}
	if z.temperature > z.limits.NormalOperating+hysteresis {
		return false
	}
	if abs(z.gradient) > maxReactivationGradient {
		return false
	}
	return true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Reactivate returns a cooled-down zone to service, clearing its fault list.
func (m *Manager) Reactivate(zoneID string) error {
	z, err := m.lookup(zoneID)
	if err != nil {
		return err
	}
	z.mu.Lock()
	if !z.canReactivateLocked(m.cfg.Hysteresis) {
		z.mu.Unlock()
		return fmt.Errorf("zone %s: %w", zoneID, ErrReactivationNotAllowed)
	}
	z.shutdownActive = false
	z.operational = true
	z.faults = nil
	temperature := z.temperature
	z.mu.Unlock()

	m.publishAlert(notify.Alert{
		ZoneID:   zoneID,
		Severity: "info",
		Kind:     "reactivated",
		Message:  "zone returned to service",
		Value:    temperature,
		Time:     m.now(),
	})
	m.logger.Info("zone reactivated", slog.String("zone", zoneID),
		slog.Float64("temperature", temperature))
	return nil
}

// Close waits for any in-flight shutdown executions to finish.
func (m *Manager) Close() {
	m.wg.Wait()
}
