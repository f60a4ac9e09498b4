// Package ratio holds the percentage arithmetic shared by the ledger,
// the statistics and the show rankings.
package ratio

import "math"

// Round1 rounds v to one decimal place, halves away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Clamp limits a percentage to [0, 100].
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Percent returns part/whole*100 rounded to one decimal and clamped to
// [0, 100]. A zero or negative whole yields 0.
func Percent(part, whole int) float64 {
	if whole <= 0 || part <= 0 {
		return 0
	}
	return Clamp(Round1(float64(part) / float64(whole) * 100))
}
