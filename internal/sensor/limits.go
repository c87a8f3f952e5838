package sensor

// Limits bounds the registry's bookkeeping and health-scoring behavior.
type Limits struct {
	HistoryCap               int
	MaxConsecutiveErrors     int
	CalibrationIntervalHours float64
	DesignLifeHours          float64
	CurrentVarianceMax       float64
	TemperatureVarianceMax   float64
	MaxGapHours              float64
}

func DefaultLimits() Limits {
	return Limits{
		HistoryCap:               1000,
		MaxConsecutiveErrors:     5,
		CalibrationIntervalHours: 8760,
		DesignLifeHours:          87600,
		CurrentVarianceMax:       0.25,
		TemperatureVarianceMax:   25.0,
		MaxGapHours:              1.0,
	}
}
