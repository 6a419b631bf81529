package shazam

import (
	"math"
	"math/cmplx"
	"slices"
)

// Band is a half-open range of spectrum bins [MinBin, MaxBin).
type Band struct {
	MinBin int
	MaxBin int
}

// Contains reports whether bin falls inside the band.
func (b Band) Contains(bin int) bool {
	return bin >= b.MinBin && bin < b.MaxBin
}

// DefaultBands splits [0, WindowSize/2) into low, mid and high ranges for
// 44.1 kHz audio analysed with a 4096-point transform.
//
//	low:  bins 0-19     (~0-200 Hz)
//	mid:  bins 20-199   (~200 Hz-2 kHz)
//	high: bins 200-2047 (~2 kHz and up)
var DefaultBands = []Band{
	{MinBin: 0, MaxBin: 20},
	{MinBin: 20, MaxBin: 200},
	{MinBin: 200, MaxBin: WindowSize / 2},
}

const (
	// PeaksPerBand caps how many peaks a single band may contribute per frame.
	PeaksPerBand = 5
	// NoiseFloorDB is the fixed threshold a peak must exceed, measured on the
	// raw bin magnitude.
	NoiseFloorDB = 10.0
)

type candidate struct {
	bin int
	db  float64
}

// compareCandidates orders by descending dB. NaN never compares less or
// greater than anything, so such pairs are treated as equal.
func compareCandidates(a, b candidate) int {
	if a.db > b.db {
		return -1
	}
	if a.db < b.db {
		return 1
	}
	return 0
}

// PickPeaks appends to dst the strongest local maxima of spectrum, at most
// PeaksPerBand per band, band-major and strongest first within a band.
// Bin 0 and the last bin of the spectrum are never candidates.
func PickPeaks(spectrum []complex128, bands []Band, dst []int) []int {
	dst, _ = pickPeaks(spectrum, bands, dst, nil)
	return dst
}

// pickPeaks is PickPeaks with a caller-owned candidate buffer, returned so its
// capacity can be reused for the next frame.
func pickPeaks(spectrum []complex128, bands []Band, dst []int, scratch []candidate) ([]int, []candidate) {
	last := len(spectrum) - 1
	for _, band := range bands {
		lo := max(band.MinBin, 1)
		hi := min(band.MaxBin, last)

		scratch = scratch[:0]
		for bin := lo; bin < hi; bin++ {
			mag := cmplx.Abs(spectrum[bin])
			if !(mag > cmplx.Abs(spectrum[bin-1]) && mag > cmplx.Abs(spectrum[bin+1])) {
				continue
			}
			db := 20 * math.Log10(mag)
			if db <= NoiseFloorDB {
				continue
			}
			scratch = append(scratch, candidate{bin: bin, db: db})
		}

		slices.SortStableFunc(scratch, compareCandidates)

		for _, c := range scratch[:min(len(scratch), PeaksPerBand)] {
			dst = append(dst, c.bin)
		}
	}
	return dst, scratch
}
