package shazam

// Spectral Transform
//
// The forward transform converts a windowed, real-valued frame into a complex
// spectrum of the same length. The transform plan (twiddle factors and
// factorisation) is computed once by gonum when the engine is built and then
// reused for every frame.
//
// Only bins [0, N/2] carry independent information for a real input, but the
// full complex spectrum is produced because spectral flatness averages over all
// N bins.

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectralTransform is a forward DFT engine fixed to one transform size.
// It is not safe for concurrent use; each goroutine needs its own instance.
type SpectralTransform struct {
	size  int
	plan  *fourier.CmplxFFT
	input []complex128
}

// NewSpectralTransform prepares a transform plan for frames of the given size.
func NewSpectralTransform(size int) *SpectralTransform {
	if size <= 0 {
		panic(fmt.Sprintf("shazam: invalid transform size %d", size))
	}
	return &SpectralTransform{
		size:  size,
		plan:  fourier.NewCmplxFFT(size),
		input: make([]complex128, size),
	}
}

// Size returns the transform length.
func (st *SpectralTransform) Size() int {
	return st.size
}

// Forward multiplies frame by window element-wise, embeds the result as the
// real part of a complex sequence and writes its DFT into dst. A nil dst is
// allocated. window may be nil for a rectangular window.
//
// frame must have exactly Size() samples.
func (st *SpectralTransform) Forward(dst []complex128, frame, window []float64) []complex128 {
	if len(frame) != st.size {
		panic(fmt.Sprintf("shazam: frame length %d does not match transform size %d", len(frame), st.size))
	}
	if dst == nil {
		dst = make([]complex128, st.size)
	}

	for i, v := range frame {
		if window != nil {
			v *= window[i]
		}
		st.input[i] = complex(v, 0)
	}

	return st.plan.Coefficients(dst, st.input)
}
