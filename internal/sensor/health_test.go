package sensor

import (
	"math"
	"testing"
)

func readingsWithQuality(n int, quality float64) []Reading {
	out := make([]Reading, n)
	for i := range out {
		out[i] = Reading{Current: 1.0, Temperature: 40, SignalQuality: quality}
	}
	return out
}

func TestHealthScorePerfectSensor(t *testing.T) {
	score := healthScore(readingsWithQuality(20, 1.0), 0, 0, DefaultLimits())
	if score != 1.0 {
		t.Fatalf("expected 1.0, got %v", score)
	}
}

func TestHealthScoreVariancePenalty(t *testing.T) {
	limits := DefaultLimits()
	history := readingsWithQuality(10, 1.0)
	for i := range history {
		history[i].Temperature = 20 + float64(i*10)
	}
	score := healthScore(history, 0, 0, limits)
	if math.Abs(score-0.9) > 1e-9 {
		t.Fatalf("expected variance penalty 0.9, got %v", score)
	}
}

func TestHealthScoreErrorDerateFloor(t *testing.T) {
	score := healthScore(readingsWithQuality(5, 1.0), 100, 0, DefaultLimits())
	if math.Abs(score-0.5) > 1e-9 {
		t.Fatalf("expected error derate floored at 0.5, got %v", score)
	}
}

func TestAgeDerate(t *testing.T) {
	limits := DefaultLimits()
	if got := ageDerate(0, limits.DesignLifeHours); got != 1.0 {
		t.Fatalf("new sensor should not be derated, got %v", got)
	}
	if got := ageDerate(limits.DesignLifeHours*2, limits.DesignLifeHours); got != 0.5 {
		t.Fatalf("past design life should floor at 0.5, got %v", got)
	}
	mid := ageDerate(limits.DesignLifeHours/2, limits.DesignLifeHours)
	if math.Abs(mid-0.75) > 1e-9 {
		t.Fatalf("half design life should derate to 0.75, got %v", mid)
	}
}
