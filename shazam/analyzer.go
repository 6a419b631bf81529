package shazam

import "math"

// flatnessEpsilon keeps log() finite on empty bins.
const flatnessEpsilon = 1e-10

// RMS returns sqrt(mean(x²)) over every sample, or 0 for an empty buffer.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		x := float64(v)
		sum += x * x
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}

// flatnessOf returns geometric_mean(power) / arithmetic_mean(power) over every
// bin of spectrum, or 0 when the spectrum carries no energy.
func flatnessOf(spectrum []complex128) float64 {
	if len(spectrum) == 0 {
		return 0
	}
	var sum, logSum float64
	for _, c := range spectrum {
		power := real(c)*real(c) + imag(c)*imag(c)
		sum += power
		logSum += math.Log(power + flatnessEpsilon)
	}

	n := float64(len(spectrum))
	arithmetic := sum / n
	if arithmetic == 0 {
		return 0
	}
	geometric := math.Exp(logSum / n)
	return geometric / arithmetic
}
