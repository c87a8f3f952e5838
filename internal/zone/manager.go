package zone

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"thermoguard/internal/metrics"
	"thermoguard/internal/notify"
)

// Config bounds the orchestrator's shutdown policy.
type Config struct {
	AutoShutdown        bool
	ShutdownDelay       time.Duration
	Cooldown            time.Duration
	Hysteresis          float64
	MaxShutdownsPerHour int
	StepTimeoutCap      time.Duration
	HistoryCap          int
}

func DefaultConfig() Config {
	return Config{
		AutoShutdown:        true,
		Cooldown:            5 * time.Minute,
		Hysteresis:          5.0,
		MaxShutdownsPerHour: 10,
		StepTimeoutCap:      30 * time.Second,
		HistoryCap:          1000,
	}
}

// maxReactivationGradient is the |°C/s| bound a zone must settle under before
// it may leave cooldown.
const maxReactivationGradient = 1.0

// Manager owns every thermal zone: limits, procedures, live status, active
// executions, and the shutdown event history. Zones are evaluated on every
// status update and drive staged shutdown through the configured Actuator.
type Manager struct {
	mu    sync.RWMutex
	zones map[string]*managedZone

	cfg       Config
	hist      *history
	alerts    *notify.Notifier[notify.Alert]
	shutdowns *notify.Notifier[Event]
	actuator  Actuator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

type managedZone struct {
	mu sync.Mutex

	id         string
	priority   string
	limits     ThermalLimits
	boundary   Boundary
	procedures map[Severity]Procedure
	sensorIDs  map[string]struct{}

	operational       bool
	shutdownActive    bool
	temperature       float64
	gradient          float64
	power             float64
	cooldownRemaining time.Duration
	faults            []string
	lastShutdown      time.Time
	lastUpdate        time.Time
	execution         *Execution
}

func NewManager(cfg Config, actuator Actuator, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if actuator == nil {
		actuator = SimActuator{}
	}
	return &Manager{
		zones:     map[string]*managedZone{},
		cfg:       cfg,
		hist:      newHistory(cfg.HistoryCap),
		alerts:    notify.NewNotifier[notify.Alert](logger),
		shutdowns: notify.NewNotifier[Event](logger),
		actuator:  actuator,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// SubscribeAlerts registers a listener for zone alerts.
func (m *Manager) SubscribeAlerts(fn func(notify.Alert)) notify.Subscription {
	return m.alerts.Subscribe(fn)
}

// SubscribeShutdownEvents registers a listener for shutdown lifecycle events.
func (m *Manager) SubscribeShutdownEvents(fn func(Event)) notify.Subscription {
	return m.shutdowns.Subscribe(fn)
}

// CreateZone registers a zone after validating tier ordering and procedure
// definitions. When no procedures are supplied the three defaults are
// generated.
func (m *Manager) CreateZone(id, priority string, limits ThermalLimits, b Boundary, procs []Procedure) error {
	if err := limits.Validate(); err != nil {
		return fmt.Errorf("zone %s: %w", id, err)
	}
	if len(procs) == 0 {
		procs = DefaultProcedures(id)
	}
	if err := validateProcedures(procs); err != nil {
		return fmt.Errorf("zone %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[id]; ok {
		return fmt.Errorf("zone %s: %w", id, ErrDuplicateZone)
	}
	byTier := make(map[Severity]Procedure, len(procs))
	for _, p := range procs {
		byTier[p.Severity] = p
	}
	m.zones[id] = &managedZone{
		id:          id,
		priority:    priority,
		limits:      limits,
		boundary:    b,
		procedures:  byTier,
		sensorIDs:   map[string]struct{}{},
		operational: true,
	}
	m.logger.Info("zone created", slog.String("zone", id),
		slog.Float64("warning", limits.Warning),
		slog.Float64("critical", limits.Critical),
		slog.Float64("emergency", limits.Emergency))
	return nil
}

// AttachSensor records the weak sensor-to-zone relation used by the caller
// that fuses readings into zone temperatures.
func (m *Manager) AttachSensor(zoneID, sensorID string) error {
	z, err := m.lookup(zoneID)
	if err != nil {
		return err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.sensorIDs[sensorID] = struct{}{}
	return nil
}

// RestoreLastShutdown seeds a zone's last shutdown timestamp from persisted
// history at startup. A timestamp already recorded in this process wins.
func (m *Manager) RestoreLastShutdown(zoneID string, t time.Time) error {
	z, err := m.lookup(zoneID)
	if err != nil {
		return err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.lastShutdown.IsZero() {
		z.lastShutdown = t
	}
	return nil
}

func (m *Manager) DetachSensor(zoneID, sensorID string) error {
	z, err := m.lookup(zoneID)
	if err != nil {
		return err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	delete(z.sensorIDs, sensorID)
	return nil
}

func (m *Manager) lookup(id string) (*managedZone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	z, ok := m.zones[id]
	if !ok {
		return nil, fmt.Errorf("zone %s: %w", id, ErrZoneNotFound)
	}
	return z, nil
}

// UpdateStatus feeds the fused zone temperature into the state machine:
// derives the gradient, decays cooldown, and evaluates violations in
// descending severity unless a shutdown is already running. A detected
// violation is a signal, not an error; trigger failures are absorbed and
// logged.
func (m *Manager) UpdateStatus(zoneID string, temperature float64, power *float64) error {
	z, err := m.lookup(zoneID)
	if err != nil {
		return err
	}

	z.mu.Lock()
	now := m.now()
	var elapsed time.Duration
	if !z.lastUpdate.IsZero() {
		elapsed = now.Sub(z.lastUpdate)
	}
	if sec := elapsed.Seconds(); sec > 0 {
		z.gradient = (temperature - z.temperature) / sec
	} else {
		z.gradient = 0
	}
	z.temperature = temperature
	if power != nil {
		z.power = *power
	}
	if z.cooldownRemaining > 0 {
		z.cooldownRemaining -= elapsed
		if z.cooldownRemaining < 0 {
			z.cooldownRemaining = 0
		}
	}
	z.lastUpdate = now

	if z.shutdownActive {
		z.mu.Unlock()
		m.logger.Debug("evaluation skipped, shutdown active", slog.String("zone", zoneID),
			slog.Float64("temperature", temperature))
		return nil
	}
	severity, reason := evaluate(z.limits, temperature, z.gradient)
	z.mu.Unlock()

	if severity == "" {
		return nil
	}
	m.publishAlert(notify.Alert{
		ZoneID:    zoneID,
		Severity:  string(severity),
		Kind:      "threshold_violation",
		Message:   reason,
		Value:     temperature,
		Threshold: thresholdFor(z.limits, severity),
		Time:      now,
	})
	if err := m.trigger(z, severity, reason); err != nil {
		m.logger.Warn("shutdown not started", slog.String("zone", zoneID),
			slog.String("severity", string(severity)), slog.String("reason", err.Error()))
	}
	return nil
}

// evaluate walks the severity ladder top-down and reports the single highest
// matching tier.
func evaluate(l ThermalLimits, temperature, gradient float64) (Severity, string) {
	switch {
	case temperature >= l.Emergency:
		return SeverityEmergency, fmt.Sprintf("temperature %.1f >= emergency threshold %.1f", temperature, l.Emergency)
	case gradient >= 2*l.MaxGradient:
		return SeverityEmergency, fmt.Sprintf("gradient %.2f >= 2x max gradient %.2f", gradient, l.MaxGradient)
	case temperature >= l.Critical:
		return SeverityCritical, fmt.Sprintf("temperature %.1f >= critical threshold %.1f", temperature, l.Critical)
	case gradient >= l.MaxGradient:
		return SeverityCritical, fmt.Sprintf("gradient %.2f >= max gradient %.2f", gradient, l.MaxGradient)
	case temperature >= l.Warning:
		return SeverityWarning, fmt.Sprintf("temperature %.1f >= warning threshold %.1f", temperature, l.Warning)
	}
	return "", ""
}

func thresholdFor(l ThermalLimits, s Severity) float64 {
	switch s {
	case SeverityEmergency:
		return l.Emergency
	case SeverityCritical:
		return l.Critical
	default:
		return l.Warning
	}
}

// TriggerShutdown starts the procedure matching severity for an operator- or
// caller-initiated shutdown. The same invariants apply as for automatic
// triggers.
func (m *Manager) TriggerShutdown(zoneID string, severity Severity, reason string) error {
	z, err := m.lookup(zoneID)
	if err != nil {
		return err
	}
	if severity.rank() == 0 {
		return fmt.Errorf("zone %s: severity %q: %w", zoneID, severity, ErrInvalidConfiguration)
	}
	return m.trigger(z, severity, reason)
}

func (m *Manager) publishAlert(a notify.Alert) {
	m.metrics.IncAlertsEmitted()
	m.alerts.Publish(a)
}
