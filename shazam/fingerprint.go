package shazam

// Constellation Hashing
//
// Every peak in a frame (the anchor) is paired with every peak in the frames
// that follow it inside a short look-ahead window (the target zone). Each pair
// is packed into a 64-bit hash:
//
//	bits 20-31: anchor bin   (12 bits)
//	bits  8-19: target bin   (12 bits)
//	bits  0-7:  frame delta  (8 bits)
//	bits 32-63: always zero
//
// The anchor frame index travels alongside the hash so that a matcher can later
// verify time alignment. The pairing is intentionally dense: up to 15 x 15 x 9
// hashes per anchor frame.

const (
	freqBits  = 12
	deltaBits = 8

	freqMask  = 1<<freqBits - 1
	deltaMask = 1<<deltaBits - 1

	targetShift = deltaBits
	anchorShift = deltaBits + freqBits

	// LookAhead bounds the target zone: targets lie 1 to LookAhead-1 frames
	// after their anchor.
	LookAhead = 10
)

// Fingerprint is a constellation hash together with the frame index of its
// anchor peak.
type Fingerprint struct {
	Hash   uint64 `json:"hash" msgpack:"hash" yaml:"hash"`
	Offset uint32 `json:"offset" msgpack:"offset" yaml:"offset"`
}

// PackHash encodes an anchor bin, target bin and frame delta. Inputs wider
// than their field are masked.
func PackHash(anchorBin, targetBin, delta int) uint64 {
	return uint64(anchorBin&freqMask)<<anchorShift |
		uint64(targetBin&freqMask)<<targetShift |
		uint64(delta&deltaMask)
}

// UnpackHash recovers the fields written by PackHash.
func UnpackHash(hash uint64) (anchorBin, targetBin, delta int) {
	anchorBin = int(hash >> anchorShift & freqMask)
	targetBin = int(hash >> targetShift & freqMask)
	delta = int(hash & deltaMask)
	return anchorBin, targetBin, delta
}

// HashAll pairs each peak with the peaks of the following LookAhead-1 frames
// and returns one Fingerprint per pair, ordered by anchor frame, then anchor
// peak, then target frame, then target peak.
func HashAll(spectrogram [][]int) []Fingerprint {
	fingerprints := make([]Fingerprint, 0, estimateHashCount(spectrogram))

	for t1, anchors := range spectrogram {
		end := min(t1+LookAhead, len(spectrogram))
		for _, f1 := range anchors {
			for t2 := t1 + 1; t2 < end; t2++ {
				dt := t2 - t1
				for _, f2 := range spectrogram[t2] {
					fingerprints = append(fingerprints, Fingerprint{
						Hash:   PackHash(f1, f2, dt),
						Offset: uint32(t1),
					})
				}
			}
		}
	}

	return fingerprints
}

func estimateHashCount(spectrogram [][]int) int {
	var total int
	for t1, anchors := range spectrogram {
		end := min(t1+LookAhead, len(spectrogram))
		var targets int
		for t2 := t1 + 1; t2 < end; t2++ {
			targets += len(spectrogram[t2])
		}
		total += len(anchors) * targets
	}
	return total
}
