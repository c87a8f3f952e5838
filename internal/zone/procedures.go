package zone

import (
	"fmt"
	"time"
)

// DefaultProcedures builds the three standard procedures for a zone that was
// created without explicit definitions: staged power reduction for warning,
// graceful isolation for critical, and immediate cutoff for emergency.
func DefaultProcedures(zoneID string) []Procedure {
	warning := Procedure{
		ID:         zoneID + "-warning",
		Name:       "Staged power reduction",
		Severity:   SeverityWarning,
		Reversible: true,
		Steps: []Step{
			{Number: 0, Action: ActionReducePower, Components: []string{zoneID}, Params: map[string]float64{"targetFraction": 0.5}, Duration: 2 * time.Second, Timeout: 10 * time.Second},
			{Number: 1, Action: ActionCool, Components: []string{zoneID}, Duration: 5 * time.Second, Timeout: 30 * time.Second},
		},
	}
	critical := Procedure{
		ID:         zoneID + "-critical",
		Name:       "Graceful shutdown and isolation",
		Severity:   SeverityCritical,
		Reversible: true,
		Steps: []Step{
			{Number: 0, Action: ActionReducePower, Components: []string{zoneID}, Params: map[string]float64{"targetFraction": 0.2}, Duration: 1 * time.Second, Timeout: 5 * time.Second},
			{Number: 1, Action: ActionGracefulShutdown, Components: []string{zoneID}, Duration: 3 * time.Second, Timeout: 15 * time.Second},
			{Number: 2, Action: ActionIsolate, Components: []string{zoneID}, Duration: 1 * time.Second, Timeout: 5 * time.Second},
			{Number: 3, Action: ActionCool, Components: []string{zoneID}, Duration: 10 * time.Second, Timeout: 60 * time.Second},
		},
	}
	emergency := Procedure{
		ID:         zoneID + "-emergency",
		Name:       "Immediate shutdown",
		Severity:   SeverityEmergency,
		Reversible: false,
		Steps: []Step{
			{Number: 0, Action: ActionImmediateShutdown, Components: []string{zoneID}, Duration: 200 * time.Millisecond, Timeout: 2 * time.Second},
			{Number: 1, Action: ActionIsolate, Components: []string{zoneID}, Duration: 500 * time.Millisecond, Timeout: 5 * time.Second},
			{Number: 2, Action: ActionCool, Components: []string{zoneID}, Duration: 10 * time.Second, Timeout: 60 * time.Second},
		},
	}
	procs := []Procedure{warning, critical, emergency}
	for i := range procs {
		procs[i].EstimatedDuration = estimateDuration(procs[i].Steps)
	}
	return procs
}

func estimateDuration(steps []Step) time.Duration {
	var total time.Duration
	for _, s := range steps {
		total += s.Duration
	}
	return total
}

func validateProcedures(procs []Procedure) error {
	seen := map[Severity]bool{}
	for _, p := range procs {
		switch p.Severity {
		case SeverityWarning, SeverityCritical, SeverityEmergency:
		default:
			return fmt.Errorf("procedure %s: unknown severity %q: %w", p.ID, p.Severity, ErrInvalidConfiguration)
		}
		if seen[p.Severity] {
			return fmt.Errorf("procedure %s: duplicate severity %q: %w", p.ID, p.Severity, ErrInvalidConfiguration)
		}
		seen[p.Severity] = true
		if len(p.Steps) == 0 {
			return fmt.Errorf("procedure %s: no steps: %w", p.ID, ErrInvalidConfiguration)
		}
		for i, s := range p.Steps {
			if s.Number != i {
				return fmt.Errorf("procedure %s: step %d numbered %d: %w", p.ID, i, s.Number, ErrInvalidConfiguration)
			}
		}
	}
	return nil
}

// Validate rejects thermal limits whose tiers are not strictly ordered.
func (l ThermalLimits) Validate() error {
	if !(l.NormalOperating < l.Warning && l.Warning < l.Critical && l.Critical < l.Emergency) {
		return fmt.Errorf("thermal tiers must satisfy normal < warning < critical < emergency: %w", ErrInvalidConfiguration)
	}
	if l.MaxGradient <= 0 {
		return fmt.Errorf("max gradient must be positive: %w", ErrInvalidConfiguration)
	}
	return nil
}
