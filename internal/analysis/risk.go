package analysis

import (
	"math"

	"github.com/cockroachdb/errors"
)

// Direction says which side of a threshold is bad.
type Direction int

const (
	HigherIsWorse Direction = iota
	LowerIsWorse
	// AtMostIsWorse is LowerIsWorse with inclusive thresholds: a value must
	// strictly exceed a threshold to clear it.
	AtMostIsWorse
)

// Band is a {high, medium} threshold pair. For HigherIsWorse values above
// High are HIGH; for LowerIsWorse values below High are HIGH.
type Band struct {
	High   float64 `mapstructure:"high" yaml:"high" json:"high"`
	Medium float64 `mapstructure:"medium" yaml:"medium" json:"medium"`
}

// Check rejects bands whose order contradicts the direction.
func (b Band) Check(dir Direction) error {
	if math.IsNaN(b.High) || math.IsNaN(b.Medium) {
		return errors.Mark(errors.New("threshold band contains NaN"), ErrInvalidParameter)
	}
	if dir == HigherIsWorse && b.High < b.Medium {
		return errors.Mark(errors.Newf("high threshold %v below medium %v", b.High, b.Medium), ErrInvalidParameter)
	}
	if dir != HigherIsWorse && b.High > b.Medium {
		return errors.Mark(errors.Newf("high threshold %v above medium %v", b.High, b.Medium), ErrInvalidParameter)
	}
	return nil
}

const (
	decisionHigh   = "Immediate investigation recommended"
	decisionMedium = "Monitor closely, schedule a review"
	decisionLow    = "Within normal range, no action required"
)

// AssessRisk maps a metric to a risk level and a one-line decision.
func AssessRisk(value float64, band Band, dir Direction) (Risk, string) {
	if dir == AtMostIsWorse {
		switch {
		case value <= band.High:
			return RiskHigh, decisionHigh
		case value <= band.Medium:
			return RiskMedium, decisionMedium
		}
		return RiskLow, decisionLow
	}
	if dir == LowerIsWorse {
		switch {
		case value < band.High:
			return RiskHigh, decisionHigh
		case value < band.Medium:
			return RiskMedium, decisionMedium
		}
		return RiskLow, decisionLow
	}
	switch {
	case value > band.High:
		return RiskHigh, decisionHigh
	case value > band.Medium:
		return RiskMedium, decisionMedium
	}
	return RiskLow, decisionLow
}

// Worst returns the most severe of the given levels.
func Worst(levels ...Risk) Risk {
	out := RiskInfo
	for _, l := range levels {
		if l.Severity() > out.Severity() {
			out = l
		}
	}
	return out
}
