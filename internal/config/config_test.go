package config

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"thermoguard/internal/sensor"
	"thermoguard/internal/zone"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.HTTPPort != "8090" {
		t.Fatalf("expected default port 8090, got %s", cfg.HTTPPort)
	}
	if !cfg.AutoShutdown {
		t.Fatalf("automatic shutdown should default to enabled")
	}
	if cfg.Cooldown != 5*time.Minute {
		t.Fatalf("expected default cooldown 5m, got %v", cfg.Cooldown)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("AUTO_SHUTDOWN", "false")
	t.Setenv("COOLDOWN_SECONDS", "60")
	t.Setenv("MAX_SHUTDOWNS_PER_HOUR", "3")
	cfg := FromEnv()
	if cfg.HTTPPort != "9999" {
		t.Fatalf("port override not applied: %s", cfg.HTTPPort)
	}
	if cfg.AutoShutdown {
		t.Fatalf("auto shutdown override not applied")
	}
	if cfg.Cooldown != time.Minute {
		t.Fatalf("cooldown override not applied: %v", cfg.Cooldown)
	}
	if cfg.MaxShutdownsPerHour != 3 {
		t.Fatalf("frequency cap override not applied: %d", cfg.MaxShutdownsPerHour)
	}
}

const plantYAML = `
zones:
  - id: battery-pack
    priority: critical
    limits:
      normal: 45
      warning: 55
      critical: 60
      emergency: 70
      max_gradient: 2
      thermal_mass: 50
    procedures:
      - id: battery-warning
        name: Reduce charge rate
        severity: warning
        reversible: true
        steps:
          - number: 0
            action: reduce_power
            components: [charger]
            params: {targetFraction: 0.5}
            duration_seconds: 0.001
            timeout_seconds: 1
      - id: battery-critical
        name: Graceful disconnect
        severity: critical
        steps:
          - number: 0
            action: graceful_shutdown
            components: [charger]
            duration_seconds: 0.001
            timeout_seconds: 1
      - id: battery-emergency
        name: Hard disconnect
        severity: emergency
        steps:
          - number: 0
            action: immediate_shutdown
            components: [charger, pack]
            duration_seconds: 0.001
            timeout_seconds: 1
sensors:
  - id: tc-001
    zone: battery-pack
    priority: high
    position: {x: 1.0, y: 0.5, z: 0.0}
    spec:
      max_current: 3
      max_voltage: 10
      max_temperature: 90
      operating_min: -20
      operating_max: 80
      nominal_resistance: 12
`

func TestParseAndApplyPlant(t *testing.T) {
	p, err := ParsePlant([]byte(plantYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(p.Zones) != 1 || len(p.Sensors) != 1 {
		t.Fatalf("unexpected plant: %d zones, %d sensors", len(p.Zones), len(p.Sensors))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sensors := sensor.NewRegistry(sensor.DefaultLimits(), logger)
	zones := zone.NewManager(zone.DefaultConfig(), zone.SimActuator{}, nil, logger)
	if err := p.Apply(sensors, zones); err != nil {
		t.Fatalf("apply: %v", err)
	}

	snap, err := zones.Zone("battery-pack")
	if err != nil {
		t.Fatalf("zone missing after apply: %v", err)
	}
	if snap.Limits.Emergency != 70 {
		t.Fatalf("limits not applied: %+v", snap.Limits)
	}
	if len(snap.SensorIDs) != 1 || snap.SensorIDs[0] != "tc-001" {
		t.Fatalf("sensor not attached to zone: %v", snap.SensorIDs)
	}
	ssnap, err := sensors.Snapshot("tc-001")
	if err != nil {
		t.Fatalf("sensor missing after apply: %v", err)
	}
	if ssnap.Spec.MaxTemperature != 90 {
		t.Fatalf("sensor spec not applied: %+v", ssnap.Spec)
	}
}

func TestApplyRejectsBadTierOrdering(t *testing.T) {
	p, err := ParsePlant([]byte(plantYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p.Zones[0].Limits.Warning = 75 // above critical

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sensors := sensor.NewRegistry(sensor.DefaultLimits(), logger)
	zones := zone.NewManager(zone.DefaultConfig(), zone.SimActuator{}, nil, logger)
	if err := p.Apply(sensors, zones); !errors.Is(err, zone.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestParsePlantRequiresZones(t *testing.T) {
	if _, err := ParsePlant([]byte("sensors: []")); err == nil {
		t.Fatalf("expected error for empty plant")
	}
}
