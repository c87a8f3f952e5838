package sensor

const healthWindow = 10

// healthScore derives the [0,1] confidence metric for a sensor from its most
// recent reading, reading stability over the last window, accumulated errors,
// and age relative to design life.
func healthScore(history []Reading, errorCount int, operatingHours float64, limits Limits) float64 {
	score := 1.0
	if n := len(history); n > 0 {
		score *= history[n-1].SignalQuality
	}

	if len(history) >= healthWindow {
		recent := history[len(history)-healthWindow:]
		currents := make([]float64, len(recent))
		temps := make([]float64, len(recent))
		for i, r := range recent {
			currents[i] = r.Current
			temps[i] = r.Temperature
		}
		if variance(currents) > limits.CurrentVarianceMax || variance(temps) > limits.TemperatureVarianceMax {
			score *= 0.9
		}
	}

	errDerate := 1.0 - float64(errorCount)*0.1
	if errDerate < 0.5 {
		errDerate = 0.5
	}
	score *= errDerate

	score *= ageDerate(operatingHours, limits.DesignLifeHours)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// ageDerate decays linearly from 1.0 at zero hours to 0.5 at design life and
// holds at 0.5 past it.
func ageDerate(operatingHours, designLifeHours float64) float64 {
	if designLifeHours <= 0 {
		return 1.0
	}
	frac := operatingHours / designLifeHours
	if frac >= 1 {
		return 0.5
	}
	return 1.0 - 0.5*frac
}
