// Package measure holds the measurement result model, its wire format and
// the reference PD calculation served at /calculate_pd.
package measure

import (
	"fmt"
	"math"
)

// Status is the outcome reported by the measurement endpoint.
type Status string

const (
	// StatusSuccess marks a usable measurement.
	StatusSuccess Status = "success"
	// StatusError marks any rejected or failed measurement.
	StatusError Status = "error"
)

// Result is one completed measurement. It is immutable once created.
type Result struct {
	PDMM       float64 `json:"pd_mm"`
	Confidence float64 `json:"confidence"` // 0..100
	Status     Status  `json:"status"`
	Message    string  `json:"message,omitempty"`
}

// OK reports whether the result is a success.
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// Tier classifies a result by confidence for display.
type Tier string

// Confidence tiers.
const (
	TierSuccess Tier = "success"
	TierGood    Tier = "good"
	TierWarning Tier = "warning"
)

// Tier cutoffs in percent.
const (
	SuccessCutoff = 90.0
	GoodCutoff    = 75.0
)

// TierFor maps a 0..100 confidence to its display tier.
func TierFor(confidence float64) Tier {
	switch {
	case confidence >= SuccessCutoff:
		return TierSuccess
	case confidence >= GoodCutoff:
		return TierGood
	default:
		return TierWarning
	}
}

// RoundPD rounds to the nearest millimetre, halves rounding up.
func RoundPD(pd float64) int {
	return int(math.Floor(pd + 0.5))
}

// FormatPD renders a PD value for display, e.g. "62 mm".
func FormatPD(pd float64) string {
	return fmt.Sprintf("%d mm", RoundPD(pd))
}

// FormatConfidence renders a 0..100 confidence as a whole percentage.
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%d%%", int(math.Floor(confidence+0.5)))
}

// Display is the view of a result shown in the results region.
type Display struct {
	PD         string `json:"pd"`
	Confidence string `json:"confidence"`
	Tier       Tier   `json:"tier"`
}

// Display builds the display strings for a result.
func (r *Result) Display() Display {
	return Display{
		PD:         FormatPD(r.PDMM),
		Confidence: FormatConfidence(r.Confidence),
		Tier:       TierFor(r.Confidence),
	}
}
