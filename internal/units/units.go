// Package units provides shared constants and validation for speed units
package units

import "strings"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits lists every accepted unit token, in the order error messages
// show them. KPH is an alias for KMPH.
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// factors converts from the stored m/s to each display unit.
var factors = map[string]float64{
	MPS:  1,
	MPH:  2.23694,
	KMPH: 3.6,
	KPH:  3.6,
}

// labels are the names charts and pages display for each unit.
var labels = map[string]string{
	MPS:  "m/s",
	MPH:  "mph",
	KMPH: "km/h",
	KPH:  "km/h",
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	_, ok := factors[unit]
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// Label returns the display name for a unit ("m/s", "mph", "km/h").
// Unknown units fall back to m/s, matching ConvertSpeed's passthrough.
func Label(unit string) string {
	if l, ok := labels[unit]; ok {
		return l
	}
	return labels[MPS]
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Speeds are stored in m/s everywhere; conversion happens at the display
// edge. Unknown units pass the value through unchanged.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	if f, ok := factors[targetUnits]; ok {
		return speedMPS * f
	}
	return speedMPS
}
