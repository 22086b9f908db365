// Package units converts and formats the quantities collision.report
// reports: closing speeds and time-to-collision values.
package units

import (
	"fmt"
	"math"
)

// Speed unit constants.
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid speed unit values.
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ValidUnitsString returns a comma-separated string of valid units for
// error messages.
func ValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from meters per second to the target
// units. The pipeline computes closing speeds in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// FormatSpeed renders a speed (given in m/s) in the target units with its
// label. Non-finite speeds render as "n/a".
func FormatSpeed(speedMPS float64, targetUnits string) string {
	if math.IsNaN(speedMPS) || math.IsInf(speedMPS, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f %s", ConvertSpeed(speedMPS, targetUnits), targetUnits)
}

// FormatTTC renders a TTC in seconds. Non-finite values mean the
// estimators had no usable data and render as "no estimate".
func FormatTTC(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "no estimate"
	}
	return fmt.Sprintf("%.2fs", seconds)
}
