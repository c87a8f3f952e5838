package zone

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock lets tests space updates far enough apart that temperature jumps
// do not register as runaway gradients.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testLimits() ThermalLimits {
	return ThermalLimits{
		NormalOperating: 60,
		Warning:         80,
		Critical:        100,
		Emergency:       120,
		MaxGradient:     5,
		ThermalMass:     1,
	}
}

// fastProcedures completes in a few milliseconds so tests never sleep for the
// default step durations.
func fastProcedures(zoneID string, stepDuration time.Duration) []Procedure {
	mk := func(suffix string, sev Severity, actions ...StepAction) Procedure {
		steps := make([]Step, len(actions))
		for i, a := range actions {
			steps[i] = Step{Number: i, Action: a, Components: []string{zoneID}, Duration: stepDuration, Timeout: time.Second}
		}
		return Procedure{ID: zoneID + "-" + suffix, Name: suffix, Severity: sev, Steps: steps, EstimatedDuration: estimateDuration(steps)}
	}
	return []Procedure{
		mk("warning", SeverityWarning, ActionReducePower, ActionCool),
		mk("critical", SeverityCritical, ActionReducePower, ActionGracefulShutdown, ActionCool),
		mk("emergency", SeverityEmergency, ActionImmediateShutdown, ActionIsolate),
	}
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewManager(cfg, SimActuator{}, nil, testLogger())
	if err := m.CreateZone("z1", "high", testLimits(), Boundary{}, fastProcedures("z1", time.Millisecond)); err != nil {
		t.Fatalf("create zone: %v", err)
	}
	return m
}

// waitTerminal blocks until a terminal shutdown event for the zone arrives.
func waitTerminal(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for shutdown completion")
		return Event{}
	}
}

func subscribeTerminal(m *Manager) <-chan Event {
	ch := make(chan Event, 32)
	m.SubscribeShutdownEvents(func(e Event) {
		if e.Status != EventStarted {
			ch <- e
		}
	})
	return ch
}

func TestCreateZoneRejectsBadTierOrdering(t *testing.T) {
	m := NewManager(DefaultConfig(), SimActuator{}, nil, testLogger())
	bad := testLimits()
	bad.Critical = 130 // above emergency
	if err := m.CreateZone("z1", "high", bad, Boundary{}, nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestCreateZoneDuplicate(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	if err := m.CreateZone("z1", "high", testLimits(), Boundary{}, nil); !errors.Is(err, ErrDuplicateZone) {
		t.Fatalf("expected ErrDuplicateZone, got %v", err)
	}
}

func TestEmergencyTriggersExactlyOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cooldown = 0
	m := newTestManager(t, cfg)
	terminal := subscribeTerminal(m)

	if err := m.UpdateStatus("z1", 125, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, _ := m.Zone("z1")
	if !snap.ShutdownActive {
		t.Fatalf("expected shutdownActive after emergency violation")
	}
	if snap.Operational {
		t.Fatalf("zone should not be operational during shutdown")
	}

	// A second violation while the shutdown is active must not start another
	// execution.
	if err := m.UpdateStatus("z1", 126, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	waitTerminal(t, terminal)
	m.Close()

	started := 0
	for _, e := range m.History("z1", 0) {
		if e.Severity == SeverityEmergency {
			started++
		}
	}
	if started != 1 {
		t.Fatalf("expected exactly 1 emergency event, got %d", started)
	}
}

func TestWarningThenCriticalEscalationAfterCompletion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cooldown = 0
	m := newTestManager(t, cfg)
	terminal := subscribeTerminal(m)
	clock := newFakeClock()
	m.now = clock.Now

	// 65C: below warning, nothing triggers.
	if err := m.UpdateStatus("z1", 65, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if snap, _ := m.Zone("z1"); snap.ShutdownActive {
		t.Fatalf("no shutdown expected at 65C")
	}

	// 85C a minute later: warning procedure.
	clock.Advance(time.Minute)
	if err := m.UpdateStatus("z1", 85, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	e := waitTerminal(t, terminal)
	if e.Severity != SeverityWarning {
		t.Fatalf("expected warning procedure, got %s", e.Severity)
	}

	// Cool off and reactivate before escalating.
	clock.Advance(time.Minute)
	if err := m.UpdateStatus("z1", 50, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := m.Reactivate("z1"); err != nil {
		t.Fatalf("reactivate: %v", err)
	}

	// 105C: critical procedure.
	clock.Advance(time.Minute)
	if err := m.UpdateStatus("z1", 105, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	e = waitTerminal(t, terminal)
	if e.Severity != SeverityCritical {
		t.Fatalf("expected critical procedure, got %s", e.Severity)
	}
	m.Close()
}

func TestHigherSeverityRejectedWhileActive(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg, SimActuator{}, nil, testLogger())
	// Slow warning steps keep the execution alive while we escalate.
	if err := m.CreateZone("z1", "high", testLimits(), Boundary{}, fastProcedures("z1", 300*time.Millisecond)); err != nil {
		t.Fatalf("create zone: %v", err)
	}
	terminal := subscribeTerminal(m)

	if err := m.UpdateStatus("z1", 85, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := m.TriggerShutdown("z1", SeverityCritical, "operator escalation"); !errors.Is(err, ErrShutdownActive) {
		t.Fatalf("expected ErrShutdownActive, got %v", err)
	}
	waitTerminal(t, terminal)
	m.Close()
}

func TestShutdownFrequencyLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cooldown = 0
	cfg.MaxShutdownsPerHour = 10
	m := newTestManager(t, cfg)
	terminal := subscribeTerminal(m)

	// Keep the zone cool so reactivation succeeds between triggers.
	if err := m.UpdateStatus("z1", 40, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := m.TriggerShutdown("z1", SeverityWarning, "test violation"); err != nil {
			t.Fatalf("trigger %d: %v", i, err)
		}
		waitTerminal(t, terminal)
		if err := m.Reactivate("z1"); err != nil {
			t.Fatalf("reactivate %d: %v", i, err)
		}
	}
	if err := m.TriggerShutdown("z1", SeverityWarning, "test violation"); !errors.Is(err, ErrShutdownSuppressed) {
		t.Fatalf("expected ErrShutdownSuppressed on 11th trigger, got %v", err)
	}
	m.Close()

	started := 0
	for _, e := range m.History("z1", 0) {
		started++
		_ = e
	}
	if started != 10 {
		t.Fatalf("expected 10 recorded shutdowns, got %d", started)
	}
}

func TestTriggerShutdownDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoShutdown = false
	m := newTestManager(t, cfg)
	if err := m.TriggerShutdown("z1", SeverityWarning, "test"); !errors.Is(err, ErrShutdownDisabled) {
		t.Fatalf("expected ErrShutdownDisabled, got %v", err)
	}
	if snap, _ := m.Zone("z1"); snap.ShutdownActive {
		t.Fatalf("shutdown must not start while disabled")
	}
}

func TestTriggerUnknownSeverityProcedure(t *testing.T) {
	m := NewManager(DefaultConfig(), SimActuator{}, nil, testLogger())
	warningOnly := fastProcedures("z1", time.Millisecond)[:1]
	if err := m.CreateZone("z1", "high", testLimits(), Boundary{}, warningOnly); err != nil {
		t.Fatalf("create zone: %v", err)
	}
	if err := m.TriggerShutdown("z1", SeverityCritical, "test"); !errors.Is(err, ErrProcedureNotFound) {
		t.Fatalf("expected ErrProcedureNotFound, got %v", err)
	}
}

func TestCanReactivatePreconditions(t *testing.T) {
	cfg := DefaultConfig()
	m := newTestManager(t, cfg)
	z, err := m.lookup("z1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	// Not in shutdown at all.
	if ok, _ := m.CanReactivate("z1"); ok {
		t.Fatalf("reactivation allowed without active shutdown")
	}

	z.mu.Lock()
	z.shutdownActive = true
	z.cooldownRemaining = 10 * time.Second
	z.temperature = 50
	z.gradient = 0
	z.mu.Unlock()
	if ok, _ := m.CanReactivate("z1"); ok {
		t.Fatalf("reactivation allowed during cooldown")
	}

	z.mu.Lock()
	z.cooldownRemaining = 0
	z.temperature = testLimits().NormalOperating + cfg.Hysteresis + 1
	z.mu.Unlock()
	if ok, _ := m.CanReactivate("z1"); ok {
		t.Fatalf("reactivation allowed above hysteresis band")
	}

	z.mu.Lock()
	z.temperature = 50
	z.gradient = 1.5
	z.mu.Unlock()
	if ok, _ := m.CanReactivate("z1"); ok {
		t.Fatalf("reactivation allowed with steep gradient")
	}

	z.mu.Lock()
	z.gradient = -0.5
	z.mu.Unlock()
	if ok, _ := m.CanReactivate("z1"); !ok {
		t.Fatalf("reactivation should be allowed once all preconditions hold")
	}
	if err := m.Reactivate("z1"); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	snap, _ := m.Zone("z1")
	if snap.ShutdownActive || !snap.Operational || len(snap.Faults) != 0 {
		t.Fatalf("reactivation did not reset zone state: %+v", snap)
	}
}

func TestReactivateNotAllowed(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	if err := m.Reactivate("z1"); !errors.Is(err, ErrReactivationNotAllowed) {
		t.Fatalf("expected ErrReactivationNotAllowed, got %v", err)
	}
}

func TestCooldownDecay(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	clock := newFakeClock()
	m.now = clock.Now

	z, _ := m.lookup("z1")
	z.mu.Lock()
	z.shutdownActive = true
	z.cooldownRemaining = 10 * time.Second
	z.lastUpdate = clock.Now()
	z.temperature = 50
	z.mu.Unlock()

	clock.Advance(4 * time.Second)
	if err := m.UpdateStatus("z1", 50, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, _ := m.Zone("z1")
	if snap.CooldownRemaining != 6*time.Second {
		t.Fatalf("expected cooldown 6s, got %v", snap.CooldownRemaining)
	}

	clock.Advance(time.Minute)
	if err := m.UpdateStatus("z1", 50, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, _ = m.Zone("z1")
	if snap.CooldownRemaining != 0 {
		t.Fatalf("expected cooldown floored at 0, got %v", snap.CooldownRemaining)
	}
}

func TestGradientTriggersCritical(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cooldown = 0
	m := newTestManager(t, cfg)
	terminal := subscribeTerminal(m)
	clock := newFakeClock()
	m.now = clock.Now

	if err := m.UpdateStatus("z1", 50, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	// 6 C/s exceeds maxGradient=5 but stays below 2x: critical tier.
	clock.Advance(time.Second)
	if err := m.UpdateStatus("z1", 56, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	e := waitTerminal(t, terminal)
	if e.Severity != SeverityCritical {
		t.Fatalf("expected critical gradient trigger, got %s", e.Severity)
	}
	m.Close()
}

func TestStatistics(t *testing.T) {
	cfg := DefaultConfig()
	m := newTestManager(t, cfg)
	if err := m.CreateZone("z2", "low", testLimits(), Boundary{}, fastProcedures("z2", time.Millisecond)); err != nil {
		t.Fatalf("create zone: %v", err)
	}
	if err := m.UpdateStatus("z1", 40, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := m.UpdateStatus("z2", 60, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	stats := m.Statistics()
	if stats.TotalZones != 2 || stats.OperationalZones != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.MeanTemperature != 50 {
		t.Fatalf("expected mean temperature 50, got %v", stats.MeanTemperature)
	}
	line := stats.String()
	if !strings.Contains(line, "zones=2") || !strings.Contains(line, "meanTemp=50.0") {
		t.Fatalf("unexpected stats line: %s", line)
	}
}

func TestRestoreLastShutdown(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	persisted := time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC)
	if err := m.RestoreLastShutdown("z1", persisted); err != nil {
		t.Fatalf("restore: %v", err)
	}
	snap, _ := m.Zone("z1")
	if !snap.LastShutdown.Equal(persisted) {
		t.Fatalf("expected restored timestamp %v, got %v", persisted, snap.LastShutdown)
	}

	// A timestamp recorded in this process is not overwritten by a restore.
	z, _ := m.lookup("z1")
	live := persisted.Add(time.Hour)
	z.mu.Lock()
	z.lastShutdown = live
	z.mu.Unlock()
	if err := m.RestoreLastShutdown("z1", persisted); err != nil {
		t.Fatalf("restore: %v", err)
	}
	snap, _ = m.Zone("z1")
	if !snap.LastShutdown.Equal(live) {
		t.Fatalf("restore overwrote live timestamp: %v", snap.LastShutdown)
	}

	if err := m.RestoreLastShutdown("missing", persisted); !errors.Is(err, ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
}

func TestAttachDetachSensor(t *testing.T) {
	m := newTestManager(t, DefaultConfig())
	if err := m.AttachSensor("z1", "tc-1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := m.AttachSensor("z1", "tc-2"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	snap, _ := m.Zone("z1")
	if len(snap.SensorIDs) != 2 {
		t.Fatalf("expected 2 attached sensors, got %v", snap.SensorIDs)
	}
	if err := m.DetachSensor("z1", "tc-1"); err != nil {
		t.Fatalf("detach: %v", err)
	}
	snap, _ = m.Zone("z1")
	if len(snap.SensorIDs) != 1 || snap.SensorIDs[0] != "tc-2" {
		t.Fatalf("expected only tc-2 attached, got %v", snap.SensorIDs)
	}
	if err := m.DetachSensor("missing", "tc-2"); !errors.Is(err, ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
}

func TestUpdateStatusUnknownZone(t *testing.T) {
	m := NewManager(DefaultConfig(), SimActuator{}, nil, testLogger())
	if err := m.UpdateStatus("missing", 50, nil); !errors.Is(err, ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
}
