package sensor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const epsilon = 1e-6

const diagnosticsWindow = 10

// Registry owns every sensor on the platform: specification, calibration,
// bounded reading history, and derived health state. Table membership is
// guarded by one RWMutex; each sensor carries its own lock so updates for
// different sensors never contend.
type Registry struct {
	mu      sync.RWMutex
	sensors map[string]*managed
	limits  Limits
	logger  *slog.Logger
	now     func() time.Time
}

type managed struct {
	mu sync.Mutex

	id       string
	location Location
	spec     Spec
	cal      Calibration

	history []Reading
	calLog  []CalibrationRecord

	healthScore         float64
	faults              []FaultCode
	errorCount          int
	consecutiveErrors   int
	operational         bool
	maintenanceRequired bool
	calibrationDue      bool
	operatingHours      float64
	hoursAtCalibration  float64
	lastReadingAt       time.Time
}

func NewRegistry(limits Limits, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sensors: map[string]*managed{},
		limits:  limits,
		logger:  logger,
		now:     time.Now,
	}
}

// Register creates a sensor with the supplied or default spec and calibration
// and an empty history.
func (r *Registry) Register(id string, loc Location, spec *Spec, cal *Calibration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sensors[id]; ok {
		return fmt.Errorf("register %s: %w", id, ErrDuplicateSensor)
	}
	s := &managed{
		id:          id,
		location:    loc,
		spec:        DefaultSpec(),
		cal:         DefaultCalibration(),
		healthScore: 1.0,
		operational: true,
	}
	if spec != nil {
		s.spec = *spec
	}
	if cal != nil {
		s.cal = *cal
	}
	r.sensors[id] = s
	r.logger.Info("sensor registered", slog.String("sensor", id), slog.String("zone", loc.ZoneID))
	return nil
}

// Unregister removes a sensor along with its history and calibration log.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sensors[id]; !ok {
		return fmt.Errorf("unregister %s: %w", id, ErrSensorNotFound)
	}
	delete(r.sensors, id)
	r.logger.Info("sensor unregistered", slog.String("sensor", id))
	return nil
}

func (r *Registry) lookup(id string) (*managed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sensors[id]
	if !ok {
		return nil, fmt.Errorf("sensor %s: %w", id, ErrSensorNotFound)
	}
	return s, nil
}

// SubmitReading calibrates and validates a raw sample, derives the electrical
// quantities, stores the reading, and recomputes the sensor's health state.
// A rejected sample leaves the sensor untouched.
func (r *Registry) SubmitReading(id string, raw RawSample) (Reading, error) {
	s, err := r.lookup(id)
	if err != nil {
		return Reading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := raw.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}

	current := raw.Current * s.cal.CurrentMultiplier
	voltage := raw.Voltage * s.cal.VoltageMultiplier
	temperature := raw.Temperature*s.cal.TemperatureMultiplier + s.cal.TemperatureOffset
	resistance := raw.Resistance + s.cal.ResistanceOffset

	if err := validate(current, voltage, temperature, raw.SignalQuality, s.spec); err != nil {
		return Reading{}, err
	}

	// Resistance is re-derived from the calibrated electrical quantities when
	// current is measurable; otherwise the offset-corrected raw value stands.
	if current >= epsilon {
		resistance = voltage / current
	}
	reading := Reading{
		Timestamp:     ts,
		Current:       current,
		Voltage:       voltage,
		Temperature:   temperature,
		Resistance:    resistance,
		Power:         current * voltage,
		SignalQuality: raw.SignalQuality,
	}

	if n := len(s.history); n > 0 {
		prev := s.history[n-1]
		if dt := ts.Sub(prev.Timestamp).Seconds(); dt > 0 {
			reading.Gradient = (temperature - prev.Temperature) / dt
		}
	}

	// Operating hours accumulate from inter-reading wall time; a single gap
	// is capped so clock jumps do not age the sensor by years.
	if !s.lastReadingAt.IsZero() {
		gap := ts.Sub(s.lastReadingAt).Hours()
		if gap > r.limits.MaxGapHours {
			gap = r.limits.MaxGapHours
		}
		if gap > 0 {
			s.operatingHours += gap
		}
	}
	s.lastReadingAt = ts

	s.history = append(s.history, reading)
	if len(s.history) > r.limits.HistoryCap {
		s.history = s.history[len(s.history)-r.limits.HistoryCap:]
	}
	s.consecutiveErrors = 0

	s.healthScore = healthScore(s.history, s.errorCount, s.operatingHours, r.limits)
	s.faults = DetectFaults(reading, s.spec)
	s.calibrationDue = s.operatingHours-s.hoursAtCalibration > r.limits.CalibrationIntervalHours
	s.refreshFlags(reading.SignalQuality)

	return reading, nil
}

func (s *managed) refreshFlags(signalQuality float64) {
	s.maintenanceRequired = s.healthScore < 0.7 || len(s.faults) > 2 || s.calibrationDue
	s.operational = s.healthScore > 0.3 && signalQuality > 0.5 && !hasFault(s.faults, FaultHighTemperature)
}

func validate(current, voltage, temperature, quality float64, spec Spec) error {
	if current < 0 || current > 1.1*spec.MaxCurrent {
		return &OutOfRangeError{Field: "current", Value: current, Min: 0, Max: 1.1 * spec.MaxCurrent}
	}
	if voltage < 0 || voltage > 1.1*spec.MaxVoltage {
		return &OutOfRangeError{Field: "voltage", Value: voltage, Min: 0, Max: 1.1 * spec.MaxVoltage}
	}
	if temperature < spec.OperatingMin-10 || temperature > spec.OperatingMax+10 {
		return &OutOfRangeError{Field: "temperature", Value: temperature, Min: spec.OperatingMin - 10, Max: spec.OperatingMax + 10}
	}
	if quality < 0 || quality > 1 {
		return &OutOfRangeError{Field: "signalQuality", Value: quality, Min: 0, Max: 1}
	}
	return nil
}

// Calibrate derives new correction coefficients so the last reading would
// reproduce the supplied reference conditions. Requires a prior reading.
func (r *Registry) Calibrate(id string, refTemperature, refCurrent, refVoltage float64) (Calibration, error) {
	s, err := r.lookup(id)
	if err != nil {
		return Calibration{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return Calibration{}, fmt.Errorf("calibrate %s: %w", id, ErrNoReadingForCalibration)
	}
	last := s.history[len(s.history)-1]
	if last.Current < epsilon || last.Voltage < epsilon {
		return Calibration{}, fmt.Errorf("calibrate %s: last reading has zero current or voltage", id)
	}

	before := s.cal
	s.cal.CurrentMultiplier *= refCurrent / last.Current
	s.cal.VoltageMultiplier *= refVoltage / last.Voltage
	s.cal.TemperatureOffset += refTemperature - last.Temperature

	s.calLog = append(s.calLog, CalibrationRecord{
		Time:           r.now(),
		Before:         before,
		After:          s.cal,
		RefTemperature: refTemperature,
		RefCurrent:     refCurrent,
		RefVoltage:     refVoltage,
	})
	if len(s.calLog) > 100 {
		s.calLog = s.calLog[len(s.calLog)-100:]
	}
	s.hoursAtCalibration = s.operatingHours
	s.calibrationDue = false

	r.logger.Info("sensor calibrated", slog.String("sensor", id),
		slog.Float64("currentMultiplier", s.cal.CurrentMultiplier),
		slog.Float64("voltageMultiplier", s.cal.VoltageMultiplier),
		slog.Float64("temperatureOffset", s.cal.TemperatureOffset))
	return s.cal, nil
}

// ReportCommunicationError accumulates fault state for a sensor the
// acquisition layer failed to reach. Past the consecutive-error limit the
// sensor is marked non-operational rather than erroring out.
func (r *Registry) ReportCommunicationError(id string, commErr error) error {
	s, err := r.lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.errorCount++
	s.consecutiveErrors++
	if !hasFault(s.faults, FaultCommunicationError) {
		s.faults = append(s.faults, FaultCommunicationError)
	}
	s.healthScore = healthScore(s.history, s.errorCount, s.operatingHours, r.limits)
	s.maintenanceRequired = s.healthScore < 0.7 || len(s.faults) > 2 || s.calibrationDue

	if s.consecutiveErrors > r.limits.MaxConsecutiveErrors {
		if !hasFault(s.faults, FaultCommunicationFailure) {
			s.faults = append(s.faults, FaultCommunicationFailure)
		}
		s.operational = false
		r.logger.Warn("sensor communication failure", slog.String("sensor", id),
			slog.Int("consecutiveErrors", s.consecutiveErrors))
	} else {
		r.logger.Warn("sensor communication error", slog.String("sensor", id),
			slog.String("error", commErr.Error()))
	}
	return nil
}

// Diagnostics returns recent readings, rolling averages, the calibration log,
// and error counters. Side-effect free.
func (r *Registry) Diagnostics(id string) (Diagnostics, error) {
	s, err := r.lookup(id)
	if err != nil {
		return Diagnostics{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.history
	if len(recent) > diagnosticsWindow {
		recent = recent[len(recent)-diagnosticsWindow:]
	}
	d := Diagnostics{
		SensorID:       s.id,
		Recent:         append([]Reading(nil), recent...),
		HealthScore:    s.healthScore,
		Faults:         append([]FaultCode(nil), s.faults...),
		ErrorCount:     s.errorCount,
		OperatingHours: s.operatingHours,
		Calibrations:   append([]CalibrationRecord(nil), s.calLog...),
	}
	if len(recent) > 0 {
		currents := make([]float64, len(recent))
		voltages := make([]float64, len(recent))
		temps := make([]float64, len(recent))
		powers := make([]float64, len(recent))
		for i, rd := range recent {
			currents[i] = rd.Current
			voltages[i] = rd.Voltage
			temps[i] = rd.Temperature
			powers[i] = rd.Power
		}
		d.AvgCurrent = mean(currents)
		d.AvgVoltage = mean(voltages)
		d.AvgTemperature = mean(temps)
		d.AvgPower = mean(powers)
	}
	return d, nil
}

// Snapshot returns a copy of the sensor's externally visible state.
func (r *Registry) Snapshot(id string) (Snapshot, error) {
	s, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

// All returns snapshots of every registered sensor.
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	sensors := make([]*managed, 0, len(r.sensors))
	for _, s := range r.sensors {
		sensors = append(sensors, s)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(sensors))
	for _, s := range sensors {
		s.mu.Lock()
		out = append(out, s.snapshotLocked())
		s.mu.Unlock()
	}
	return out
}

func (s *managed) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                  s.id,
		Location:            s.location,
		Spec:                s.spec,
		Calibration:         s.cal,
		Operational:         s.operational,
		HealthScore:         s.healthScore,
		Faults:              append([]FaultCode(nil), s.faults...),
		ErrorCount:          s.errorCount,
		MaintenanceRequired: s.maintenanceRequired,
		CalibrationDue:      s.calibrationDue,
		OperatingHours:      s.operatingHours,
	}
	if n := len(s.history); n > 0 {
		last := s.history[n-1]
		snap.LastReading = &last
	}
	return snap
}
