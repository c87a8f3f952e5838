package sensor

import "math"

// DetectFaults recomputes the fault set for a reading against the sensor spec.
// Stateless on purpose: the full set is derived from scratch on every update
// rather than maintained incrementally.
func DetectFaults(r Reading, spec Spec) []FaultCode {
	faults := []FaultCode{}
	if spec.MaxTemperature > 0 && r.Temperature > 0.9*spec.MaxTemperature {
		faults = append(faults, FaultHighTemperature)
	}
	if spec.MaxCurrent > 0 && r.Current > 0.9*spec.MaxCurrent {
		faults = append(faults, FaultHighCurrent)
	}
	if r.SignalQuality < 0.3 {
		faults = append(faults, FaultLowSignalQuality)
	}
	if spec.NominalResistance > 0 {
		drift := math.Abs(r.Resistance-spec.NominalResistance) / spec.NominalResistance
		if drift > 0.2 {
			faults = append(faults, FaultResistanceDrift)
		}
	}
	return faults
}

func hasFault(faults []FaultCode, code FaultCode) bool {
	for _, f := range faults {
		if f == code {
			return true
		}
	}
	return false
}
