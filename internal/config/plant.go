package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"thermoguard/internal/sensor"
	"thermoguard/internal/zone"
)

// Plant is the YAML descriptor defining the platform's zones and sensors.
type Plant struct {
	Zones   []ZoneDef   `yaml:"zones"`
	Sensors []SensorDef `yaml:"sensors"`
}

type ZoneDef struct {
	ID         string             `yaml:"id"`
	Priority   string             `yaml:"priority"`
	Limits     zone.ThermalLimits `yaml:"limits"`
	Boundary   zone.Boundary      `yaml:"boundary"`
	Procedures []ProcedureDef     `yaml:"procedures"`
}

type ProcedureDef struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	Severity   string    `yaml:"severity"`
	Reversible bool      `yaml:"reversible"`
	Steps      []StepDef `yaml:"steps"`
}

type StepDef struct {
	Number          int                `yaml:"number"`
	Action          string             `yaml:"action"`
	Components      []string           `yaml:"components"`
	Params          map[string]float64 `yaml:"params"`
	DurationSeconds float64            `yaml:"duration_seconds"`
	TimeoutSeconds  float64            `yaml:"timeout_seconds"`
}

type SensorDef struct {
	ID       string              `yaml:"id"`
	Zone     string              `yaml:"zone"`
	Priority string              `yaml:"priority"`
	Position PositionDef         `yaml:"position"`
	Spec     *sensor.Spec        `yaml:"spec"`
	Cal      *sensor.Calibration `yaml:"calibration"`
}

type PositionDef struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// LoadPlant parses a plant descriptor from disk.
func LoadPlant(path string) (*Plant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plant config: %w", err)
	}
	return ParsePlant(data)
}

func ParsePlant(data []byte) (*Plant, error) {
	var p Plant
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plant config: %w", err)
	}
	if len(p.Zones) == 0 {
		return nil, fmt.Errorf("plant config defines no zones")
	}
	return &p, nil
}

// Apply registers the plant's zones and sensors. Configuration errors are
// surfaced immediately; the caller is expected to fix the descriptor.
func (p *Plant) Apply(sensors *sensor.Registry, zones *zone.Manager) error {
	for _, zd := range p.Zones {
		if err := zones.CreateZone(zd.ID, zd.Priority, zd.Limits, zd.Boundary, buildProcedures(zd.Procedures)); err != nil {
			return err
		}
	}
	for _, sd := range p.Sensors {
		loc := sensor.Location{
			ZoneID:   sd.Zone,
			X:        sd.Position.X,
			Y:        sd.Position.Y,
			Z:        sd.Position.Z,
			Priority: sd.Priority,
		}
		if err := sensors.Register(sd.ID, loc, sd.Spec, sd.Cal); err != nil {
			return err
		}
		if sd.Zone != "" {
			if err := zones.AttachSensor(sd.Zone, sd.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildProcedures(defs []ProcedureDef) []zone.Procedure {
	procs := make([]zone.Procedure, 0, len(defs))
	for _, pd := range defs {
		steps := make([]zone.Step, 0, len(pd.Steps))
		var total time.Duration
		for _, sd := range pd.Steps {
			d := time.Duration(sd.DurationSeconds * float64(time.Second))
			steps = append(steps, zone.Step{
				Number:     sd.Number,
				Action:     zone.StepAction(sd.Action),
				Components: sd.Components,
				Params:     sd.Params,
				Duration:   d,
				Timeout:    time.Duration(sd.TimeoutSeconds * float64(time.Second)),
			})
			total += d
		}
		procs = append(procs, zone.Procedure{
			ID:                pd.ID,
			Name:              pd.Name,
			Severity:          zone.Severity(pd.Severity),
			Reversible:        pd.Reversible,
			Steps:             steps,
			EstimatedDuration: total,
		})
	}
	return procs
}
