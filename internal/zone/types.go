package zone

import "time"

// Severity is the tier of a threshold violation and of the procedure that
// answers it.
type Severity string

const (
	SeverityWarning   Severity = "warning"
	SeverityCritical  Severity = "critical"
	SeverityEmergency Severity = "emergency"
)

func (s Severity) rank() int {
	switch s {
	case SeverityEmergency:
		return 3
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// ThermalLimits are a zone's static temperature tiers. Tiers must be strictly
// ordered normal < warning < critical < emergency.
type ThermalLimits struct {
	NormalOperating float64 `json:"normalOperating" yaml:"normal"`
	Warning         float64 `json:"warning" yaml:"warning"`
	Critical        float64 `json:"critical" yaml:"critical"`
	Emergency       float64 `json:"emergency" yaml:"emergency"`
	MaxGradient     float64 `json:"maxGradient" yaml:"max_gradient"`
	ThermalMass     float64 `json:"thermalMass" yaml:"thermal_mass"`
}

// Boundary is the zone's axis-aligned geometry on the platform.
type Boundary struct {
	XMin float64 `json:"xMin" yaml:"x_min"`
	XMax float64 `json:"xMax" yaml:"x_max"`
	YMin float64 `json:"yMin" yaml:"y_min"`
	YMax float64 `json:"yMax" yaml:"y_max"`
	ZMin float64 `json:"zMin" yaml:"z_min"`
	ZMax float64 `json:"zMax" yaml:"z_max"`
}

// StepAction is the actuation command a shutdown step issues.
type StepAction string

const (
	ActionReducePower       StepAction = "reduce_power"
	ActionGracefulShutdown  StepAction = "graceful_shutdown"
	ActionImmediateShutdown StepAction = "immediate_shutdown"
	ActionIsolate           StepAction = "isolate"
	ActionCool              StepAction = "cool"
)

// Step is one stage of a shutdown procedure.
type Step struct {
	Number     int                `json:"number"`
	Action     StepAction         `json:"action"`
	Components []string           `json:"components"`
	Params     map[string]float64 `json:"params,omitempty"`
	Duration   time.Duration      `json:"duration"`
	Timeout    time.Duration      `json:"timeout"`
}

// Procedure is a static ordered shutdown definition for one severity tier.
type Procedure struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Severity          Severity      `json:"severity"`
	Steps             []Step        `json:"steps"`
	EstimatedDuration time.Duration `json:"estimatedDuration"`
	Reversible        bool          `json:"reversible"`
}

// StepStatus tracks one step inside a running execution.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepExecuting StepStatus = "executing"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepState is the per-step sub-status of an execution.
type StepState struct {
	Status      StepStatus `json:"status"`
	StartedAt   time.Time  `json:"startedAt,omitempty"`
	CompletedAt time.Time  `json:"completedAt,omitempty"`
	Truncated   bool       `json:"truncated,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Execution is the ephemeral state of a running procedure. At most one exists
// per zone at any time.
type Execution struct {
	ID          string      `json:"id"`
	ZoneID      string      `json:"zoneId"`
	ProcedureID string      `json:"procedureId"`
	Severity    Severity    `json:"severity"`
	StartedAt   time.Time   `json:"startedAt"`
	CurrentStep int         `json:"currentStep"`
	Steps       []StepState `json:"steps"`
}

// Event statuses for the shutdown history log.
const (
	EventStarted               = "started"
	EventCompleted             = "completed"
	EventCompletedWithFailures = "completed_with_failures"
)

// Event is an append-only shutdown lifecycle record. It feeds the rolling
// frequency limiter and external reporting.
type Event struct {
	ID                string        `json:"id"`
	ZoneID            string        `json:"zoneId"`
	ProcedureID       string        `json:"procedureId"`
	Severity          Severity      `json:"severity"`
	Reason            string        `json:"reason"`
	StartedAt         time.Time     `json:"startedAt"`
	EstimatedDuration time.Duration `json:"estimatedDuration"`
	ActualDuration    time.Duration `json:"actualDuration,omitempty"`
	Status            string        `json:"status"`
	FailedSteps       int           `json:"failedSteps,omitempty"`
}

// Snapshot is a copy of a zone's externally visible state.
type Snapshot struct {
	ID                string        `json:"id"`
	Priority          string        `json:"priority"`
	Limits            ThermalLimits `json:"limits"`
	Boundary          Boundary      `json:"boundary"`
	Operational       bool          `json:"operational"`
	ShutdownActive    bool          `json:"shutdownActive"`
	Temperature       float64       `json:"temperature"`
	Gradient          float64       `json:"gradient"`
	PowerConsumption  float64       `json:"powerConsumption"`
	CooldownRemaining time.Duration `json:"cooldownRemaining"`
	Faults            []string      `json:"faults"`
	LastShutdown      time.Time     `json:"lastShutdown,omitempty"`
	LastUpdate        time.Time     `json:"lastUpdate,omitempty"`
	Execution         *Execution    `json:"execution,omitempty"`
	SensorIDs         []string      `json:"sensorIds,omitempty"`
}

// Stats is the aggregate view returned by Manager.Statistics.
type Stats struct {
	TotalZones        int     `json:"totalZones"`
	OperationalZones  int     `json:"operationalZones"`
	ZonesInShutdown   int     `json:"zonesInShutdown"`
	ZonesInCooldown   int     `json:"zonesInCooldown"`
	ShutdownsLastHour int     `json:"shutdownsLastHour"`
	ActiveExecutions  int     `json:"activeExecutions"`
	MeanTemperature   float64 `json:"meanTemperature"`
}
