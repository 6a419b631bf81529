package shazam

import "math"

// HannWindow returns the raised-cosine taper of the given length:
// w[i] = 0.5 * (1 - cos(2πi / (size-1))).
func HannWindow(size int) []float64 {
	window := make([]float64, size)
	if size == 1 {
		window[0] = 1
		return window
	}
	for i := range window {
		theta := 2 * math.Pi * float64(i) / float64(size-1)
		window[i] = 0.5 * (1 - math.Cos(theta))
	}
	return window
}
