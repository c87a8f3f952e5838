package zone

import (
	"fmt"
	"sort"
	"time"
)

// Zone returns a copy of one zone's externally visible state.
func (m *Manager) Zone(id string) (Snapshot, error) {
	z, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.snapshotLocked(), nil
}

// Zones returns snapshots of every zone, ordered by id.
func (m *Manager) Zones() []Snapshot {
	m.mu.RLock()
	zones := make([]*managedZone, 0, len(m.zones))
	for _, z := range m.zones {
		zones = append(zones, z)
	}
	m.mu.RUnlock()

	out := make([]Snapshot, 0, len(zones))
	for _, z := range zones {
		z.mu.Lock()
		out = append(out, z.snapshotLocked())
		z.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (z *managedZone) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                z.id,
		Priority:          z.priority,
		Limits:            z.limits,
		Boundary:          z.boundary,
		Operational:       z.operational,
		ShutdownActive:    z.shutdownActive,
		Temperature:       z.temperature,
		Gradient:          z.gradient,
		PowerConsumption:  z.power,
		CooldownRemaining: z.cooldownRemaining,
		Faults:            append([]string(nil), z.faults...),
		LastShutdown:      z.lastShutdown,
		LastUpdate:        z.lastUpdate,
	}
	if z.execution != nil {
		cp := *z.execution
		cp.Steps = append([]StepState(nil), z.execution.Steps...)
		snap.Execution = &cp
	}
	for id := range z.sensorIDs {
		snap.SensorIDs = append(snap.SensorIDs, id)
	}
	sort.Strings(snap.SensorIDs)
	return snap
}

// History returns shutdown events newest-first, optionally filtered by zone.
func (m *Manager) History(zoneID string, limit int) []Event {
	return m.hist.query(zoneID, limit)
}

// Statistics aggregates zone counts, the rolling-hour shutdown count, and the
// mean temperature across all zones. Side-effect free apart from gauge
// refresh.
func (m *Manager) Statistics() Stats {
	m.mu.RLock()
	zones := make([]*managedZone, 0, len(m.zones))
	for _, z := range m.zones {
		zones = append(zones, z)
	}
	m.mu.RUnlock()

	stats := Stats{TotalZones: len(zones)}
	tempSum := 0.0
	for _, z := range zones {
		z.mu.Lock()
		if z.operational {
			stats.OperationalZones++
		}
		if z.shutdownActive {
			stats.ZonesInShutdown++
		}
		if z.cooldownRemaining > 0 {
			stats.ZonesInCooldown++
		}
		if z.execution != nil {
			stats.ActiveExecutions++
		}
		tempSum += z.temperature
		z.mu.Unlock()
	}
	if len(zones) > 0 {
		stats.MeanTemperature = tempSum / float64(len(zones))
	}
	since := m.now().Add(-time.Hour)
	for _, z := range zones {
		stats.ShutdownsLastHour += m.hist.countStartedSince(z.id, since)
	}
	m.metrics.SetZonesOperational(stats.OperationalZones)
	m.metrics.SetZonesInCooldown(stats.ZonesInCooldown)
	return stats
}

// String implements fmt.Stringer for log-friendly one-liners.
func (s Stats) String() string {
	return fmt.Sprintf("zones=%d operational=%d shutdown=%d cooldown=%d lastHour=%d meanTemp=%.1f",
		s.TotalZones, s.OperationalZones, s.ZonesInShutdown, s.ZonesInCooldown, s.ShutdownsLastHour, s.MeanTemperature)
}
