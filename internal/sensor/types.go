package sensor

import "time"

// Location places a sensor on the platform and ties it to a thermal zone.
type Location struct {
	ZoneID   string  `json:"zoneId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Priority string  `json:"priority"`
}

// Spec is the static hardware specification a sensor is validated against.
type Spec struct {
	MaxCurrent        float64 `json:"maxCurrent" yaml:"max_current"`
	MaxVoltage        float64 `json:"maxVoltage" yaml:"max_voltage"`
	MaxTemperature    float64 `json:"maxTemperature" yaml:"max_temperature"`
	OperatingMin      float64 `json:"operatingMin" yaml:"operating_min"`
	OperatingMax      float64 `json:"operatingMax" yaml:"operating_max"`
	NominalResistance float64 `json:"nominalResistance" yaml:"nominal_resistance"`
}

// Calibration holds the per-sensor correction coefficients applied to every
// raw sample before validation.
type Calibration struct {
	CurrentMultiplier     float64 `json:"currentMultiplier" yaml:"current_multiplier"`
	VoltageMultiplier     float64 `json:"voltageMultiplier" yaml:"voltage_multiplier"`
	TemperatureMultiplier float64 `json:"temperatureMultiplier" yaml:"temperature_multiplier"`
	TemperatureOffset     float64 `json:"temperatureOffset" yaml:"temperature_offset"`
	ResistanceOffset      float64 `json:"resistanceOffset" yaml:"resistance_offset"`
}

// RawSample is an uncalibrated measurement as delivered by the acquisition layer.
type RawSample struct {
	Current       float64   `json:"current"`
	Voltage       float64   `json:"voltage"`
	Temperature   float64   `json:"temperature"`
	Resistance    float64   `json:"resistance"`
	SignalQuality float64   `json:"signalQuality"`
	Timestamp     time.Time `json:"timestamp"`
}

// Reading is a calibrated, validated measurement. Immutable once stored.
type Reading struct {
	Timestamp     time.Time `json:"timestamp"`
	Current       float64   `json:"current"`
	Voltage       float64   `json:"voltage"`
	Temperature   float64   `json:"temperature"`
	Resistance    float64   `json:"resistance"`
	Power         float64   `json:"power"`
	Gradient      float64   `json:"gradient"`
	SignalQuality float64   `json:"signalQuality"`
}

// FaultCode identifies a condition detected on a sensor.
type FaultCode string

const (
	FaultHighTemperature      FaultCode = "HIGH_TEMPERATURE"
	FaultHighCurrent          FaultCode = "HIGH_CURRENT"
	FaultLowSignalQuality     FaultCode = "LOW_SIGNAL_QUALITY"
	FaultResistanceDrift      FaultCode = "RESISTANCE_DRIFT"
	FaultCommunicationError   FaultCode = "COMMUNICATION_ERROR"
	FaultCommunicationFailure FaultCode = "COMMUNICATION_FAILURE"
)

// CalibrationRecord is one entry in a sensor's calibration history.
type CalibrationRecord struct {
	Time           time.Time   `json:"time"`
	Before         Calibration `json:"before"`
	After          Calibration `json:"after"`
	RefTemperature float64     `json:"refTemperature"`
	RefCurrent     float64     `json:"refCurrent"`
	RefVoltage     float64     `json:"refVoltage"`
}

// Snapshot is a copy of a sensor's externally visible state.
type Snapshot struct {
	ID                  string      `json:"id"`
	Location            Location    `json:"location"`
	Spec                Spec        `json:"spec"`
	Calibration         Calibration `json:"calibration"`
	Operational         bool        `json:"operational"`
	HealthScore         float64     `json:"healthScore"`
	Faults              []FaultCode `json:"faults"`
	ErrorCount          int         `json:"errorCount"`
	MaintenanceRequired bool        `json:"maintenanceRequired"`
	CalibrationDue      bool        `json:"calibrationDue"`
	OperatingHours      float64     `json:"operatingHours"`
	LastReading         *Reading    `json:"lastReading,omitempty"`
}

// Diagnostics is the read-only report returned by Registry.Diagnostics.
type Diagnostics struct {
	SensorID       string              `json:"sensorId"`
	Recent         []Reading           `json:"recent"`
	AvgCurrent     float64             `json:"avgCurrent"`
	AvgVoltage     float64             `json:"avgVoltage"`
	AvgTemperature float64             `json:"avgTemperature"`
	AvgPower       float64             `json:"avgPower"`
	HealthScore    float64             `json:"healthScore"`
	Faults         []FaultCode         `json:"faults"`
	ErrorCount     int                 `json:"errorCount"`
	OperatingHours float64             `json:"operatingHours"`
	Calibrations   []CalibrationRecord `json:"calibrations"`
}

// DefaultSpec returns the hardware specification assumed when registration
// supplies none.
func DefaultSpec() Spec {
	return Spec{
		MaxCurrent:        5.0,
		MaxVoltage:        12.0,
		MaxTemperature:    150.0,
		OperatingMin:      -40.0,
		OperatingMax:      125.0,
		NominalResistance: 10.0,
	}
}

// DefaultCalibration returns identity coefficients.
func DefaultCalibration() Calibration {
	return Calibration{
		CurrentMultiplier:     1.0,
		VoltageMultiplier:     1.0,
		TemperatureMultiplier: 1.0,
		TemperatureOffset:     0.0,
		ResistanceOffset:      0.0,
	}
}
