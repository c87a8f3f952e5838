package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the controller's Prometheus instruments. A nil *Metrics is a
// valid no-op so library packages never need to care whether instrumentation
// is wired.
type Metrics struct {
	ReadingsProcessed   prometheus.Counter
	ReadingsRejected    prometheus.Counter
	ShutdownsTriggered  prometheus.Counter
	ShutdownsSuppressed prometheus.Counter
	AlertsEmitted       prometheus.Counter
	ZonesOperational    prometheus.Gauge
	ZonesInCooldown     prometheus.Gauge
	ActiveExecutions    prometheus.Gauge
	ProcedureDuration   prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReadingsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_readings_processed_total",
			Help: "Calibrated readings accepted into sensor history.",
		}),
		ReadingsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_readings_rejected_total",
			Help: "Raw samples rejected by spec validation.",
		}),
		ShutdownsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_shutdowns_triggered_total",
			Help: "Shutdown procedures started.",
		}),
		ShutdownsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_shutdowns_suppressed_total",
			Help: "Shutdown triggers suppressed by the rolling-hour frequency limit.",
		}),
		AlertsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_alerts_total",
			Help: "Alerts fanned out to listeners.",
		}),
		ZonesOperational: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_zones_operational",
			Help: "Zones currently operational.",
		}),
		ZonesInCooldown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_zones_cooldown",
			Help: "Zones currently in post-shutdown cooldown.",
		}),
		ActiveExecutions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_active_executions",
			Help: "Shutdown executions currently running.",
		}),
		ProcedureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "thermo_procedure_duration_seconds",
			Help:    "Wall time from shutdown trigger to procedure completion.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	reg.MustRegister(
		m.ReadingsProcessed, m.ReadingsRejected,
		m.ShutdownsTriggered, m.ShutdownsSuppressed, m.AlertsEmitted,
		m.ZonesOperational, m.ZonesInCooldown, m.ActiveExecutions, m.ProcedureDuration,
	)
	return m
}

func (m *Metrics) IncReadingsProcessed() {
	if m != nil {
		m.ReadingsProcessed.Inc()
	}
}

func (m *Metrics) IncReadingsRejected() {
	if m != nil {
		m.ReadingsRejected.Inc()
	}
}

func (m *Metrics) IncShutdownsTriggered() {
	if m != nil {
		m.ShutdownsTriggered.Inc()
	}
}

func (m *Metrics) IncShutdownsSuppressed() {
	if m != nil {
		m.ShutdownsSuppressed.Inc()
	}
}

func (m *Metrics) IncAlertsEmitted() {
	if m != nil {
		m.AlertsEmitted.Inc()
	}
}

func (m *Metrics) SetZonesOperational(n int) {
	if m != nil {
		m.ZonesOperational.Set(float64(n))
	}
}

func (m *Metrics) SetZonesInCooldown(n int) {
	if m != nil {
		m.ZonesInCooldown.Set(float64(n))
	}
}

func (m *Metrics) AddActiveExecutions(delta float64) {
	if m != nil {
		m.ActiveExecutions.Add(delta)
	}
}

func (m *Metrics) ObserveProcedureDuration(seconds float64) {
	if m != nil {
		m.ProcedureDuration.Observe(seconds)
	}
}
