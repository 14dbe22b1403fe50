// Package units converts stored kilometers to the rider's display unit.
package units

// MilesPerKilometer converts kilometers to statute miles
const MilesPerKilometer = 0.621371

// ToDisplayUnit returns km unchanged for metric riders, miles otherwise
func ToDisplayUnit(km float64, useMetric bool) float64 {
	if useMetric {
		return km
	}
	return km * MilesPerKilometer
}

// ToKilometers converts a distance entered in the display unit back to kilometers
func ToKilometers(value float64, useMetric bool) float64 {
	if useMetric {
		return value
	}
	return value / MilesPerKilometer
}

// Label returns the short display unit name
func Label(useMetric bool) string {
	if useMetric {
		return "km"
	}
	return "mi"
}
