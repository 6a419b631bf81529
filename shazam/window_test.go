package shazam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHannWindow(t *testing.T) {
	w := HannWindow(WindowSize)
	require.Len(t, w, WindowSize)

	assert.InDelta(t, 0.0, w[0], 1e-12)
	assert.InDelta(t, 0.0, w[WindowSize-1], 1e-12)
	assert.InDelta(t, 1.0, w[WindowSize/2], 1e-6)

	for i := 0; i < WindowSize/2; i++ {
		assert.InDelta(t, w[i], w[WindowSize-1-i], 1e-12, "window not symmetric at %d", i)
	}
}

func TestHannWindowSmallSizes(t *testing.T) {
	assert.Empty(t, HannWindow(0))
	assert.Equal(t, []float64{1}, HannWindow(1))

	w := HannWindow(3)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, w, 1e-12)
}
