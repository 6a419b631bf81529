package shazam

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpectralTransformImpulse(t *testing.T) {
	st := NewSpectralTransform(64)
	frame := make([]float64, 64)
	frame[0] = 1

	spectrum := st.Forward(nil, frame, nil)
	require.Len(t, spectrum, 64)
	for i, c := range spectrum {
		assert.InDelta(t, 1.0, cmplx.Abs(c), 1e-9, "bin %d", i)
	}
}

func TestSpectralTransformSineLandsOnBin(t *testing.T) {
	const n, bin = 256, 17
	st := NewSpectralTransform(n)
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = math.Cos(2 * math.Pi * bin * float64(i) / n)
	}

	spectrum := st.Forward(nil, frame, nil)
	assert.InDelta(t, n/2, cmplx.Abs(spectrum[bin]), 1e-6)
	assert.InDelta(t, n/2, cmplx.Abs(spectrum[n-bin]), 1e-6)
	assert.InDelta(t, 0, cmplx.Abs(spectrum[bin+1]), 1e-6)
}

func TestSpectralTransformAppliesWindow(t *testing.T) {
	const n = 32
	st := NewSpectralTransform(n)
	frame := make([]float64, n)
	window := make([]float64, n)
	for i := range frame {
		frame[i] = 1
		window[i] = 0.5
	}

	spectrum := st.Forward(make([]complex128, n), frame, window)
	assert.InDelta(t, n*0.5, real(spectrum[0]), 1e-9)
}

func TestSpectralTransformReuse(t *testing.T) {
	st := NewSpectralTransform(WindowSize)
	frame := make([]float64, WindowSize)
	for i := range frame {
		frame[i] = math.Sin(float64(i) * 0.01)
	}
	window := HannWindow(WindowSize)

	first := st.Forward(nil, frame, window)
	second := st.Forward(nil, frame, window)
	assert.Equal(t, first, second)
}

func TestSpectralTransformLengthMismatchPanics(t *testing.T) {
	st := NewSpectralTransform(16)
	assert.Panics(t, func() {
		st.Forward(nil, make([]float64, 8), nil)
	})
	assert.Equal(t, 16, st.Size())
}
