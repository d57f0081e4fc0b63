// Package confidence bands a top similarity score into none, low or high.
package confidence

import "fmt"

// Band is a coarse confidence label.
type Band string

// Confidence bands.
const (
	None Band = "none"
	Low  Band = "low"
	High Band = "high"
)

// Default thresholds.
const (
	DefaultLow  = 0.25
	DefaultHigh = 0.40
)

// Thresholds split the similarity axis into three bands.
type Thresholds struct {
	Low  float64
	High float64
}

// DefaultThresholds returns the stock bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: DefaultLow, High: DefaultHigh}
}

// NewThresholds validates low < high, both within [0, 1].
func NewThresholds(low, high float64) (Thresholds, error) {
	t := Thresholds{Low: low, High: high}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

// Validate checks ordering and range.
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > 1 {
		return fmt.Errorf("confidence thresholds must be within [0, 1], got low=%v high=%v", t.Low, t.High)
	}
	if t.Low >= t.High {
		return fmt.Errorf("confidence low threshold %v must be below high %v", t.Low, t.High)
	}
	return nil
}

// Classify maps a similarity to a band. Boundaries belong to the upper band.
func (t Thresholds) Classify(top float64) Band {
	switch {
	case top >= t.High:
		return High
	case top >= t.Low:
		return Low
	default:
		return None
	}
}

// IsValid reports whether b is a known band.
func (b Band) IsValid() bool {
	return b == None || b == Low || b == High
}
