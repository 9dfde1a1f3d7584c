package audio

import "math"

// Gain maps a 0-100 slider position linearly onto [minDB, maxDB].
func Gain(slider, minDB, maxDB float64) float64 {
	return slider/100*(maxDB-minDB) + minDB
}

// Amplitude converts a decibel gain to a linear sample multiplier.
func Amplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

// clampSlider limits a slider position to [0, 100].
func clampSlider(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
