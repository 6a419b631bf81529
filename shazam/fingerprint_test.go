package shazam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackHashLayout(t *testing.T) {
	assert.Equal(t, uint64(0xABCDEF12), PackHash(0xABC, 0xDEF, 0x12))
	assert.Equal(t, uint64(1<<20|2<<8|3), PackHash(1, 2, 3))
	assert.Zero(t, PackHash(2047, 2047, 9)>>32, "upper 32 bits must stay clear")
}

func TestPackUnpackRoundTrip(t *testing.T) {
	for _, f1 := range []int{0, 1, 19, 20, 199, 200, 2047, 4095} {
		for _, f2 := range []int{0, 7, 1024, 4095} {
			for _, dt := range []int{0, 1, 9, 128, 255} {
				a, b, d := UnpackHash(PackHash(f1, f2, dt))
				require.Equal(t, []int{f1, f2, dt}, []int{a, b, d})
			}
		}
	}
}

func TestHashAllTargetZone(t *testing.T) {
	spectrogram := make([][]int, 12)
	for i := range spectrogram {
		spectrogram[i] = []int{100 + i}
	}

	fingerprints := HashAll(spectrogram)

	// Frames 0..2 see 9 targets each, then 8, 7, ..., 1, 0.
	want := 0
	for t1 := range spectrogram {
		want += min(LookAhead-1, len(spectrogram)-1-t1)
	}
	require.Len(t, fingerprints, want)

	for _, fp := range fingerprints {
		f1, f2, dt := UnpackHash(fp.Hash)
		assert.GreaterOrEqual(t, dt, 1)
		assert.LessOrEqual(t, dt, LookAhead-1)
		assert.Equal(t, 100+int(fp.Offset), f1)
		assert.Equal(t, f1+dt, f2, "target must sit dt frames after its anchor")
	}
}

func TestHashAllPairsEveryPeak(t *testing.T) {
	spectrogram := [][]int{
		{10, 20},
		{30, 40, 50},
		{},
		{60},
	}

	fingerprints := HashAll(spectrogram)
	// frame 0: 2 anchors x (3 + 0 + 1) targets, frame 1: 3 x (0 + 1), frame 2: none
	require.Len(t, fingerprints, 2*4+3*1)

	assert.Equal(t, Fingerprint{Hash: PackHash(10, 30, 1), Offset: 0}, fingerprints[0])
	assert.Equal(t, Fingerprint{Hash: PackHash(10, 60, 3), Offset: 0}, fingerprints[3])
	assert.Equal(t, Fingerprint{Hash: PackHash(20, 30, 1), Offset: 0}, fingerprints[4])
	assert.Equal(t, Fingerprint{Hash: PackHash(50, 60, 2), Offset: 1}, fingerprints[len(fingerprints)-1])
}

func TestHashAllEmpty(t *testing.T) {
	assert.Empty(t, HashAll(nil))
	assert.Empty(t, HashAll([][]int{{1, 2, 3}}))
}
