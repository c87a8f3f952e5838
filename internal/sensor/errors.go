package sensor

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSensor         = errors.New("sensor already registered")
	ErrSensorNotFound          = errors.New("sensor not found")
	ErrNoReadingForCalibration = errors.New("calibration requires a prior reading")
)

// OutOfRangeError rejects a single reading that violates the sensor spec.
// The sensor's stored state is left untouched.
type OutOfRangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("reading out of range: %s=%g not in [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}
