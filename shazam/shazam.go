package shazam

// Audio Fingerprinting Engine
//
// AudioFingerprinter turns a mono 44.1 kHz sample buffer into constellation
// hashes:
//
//  1. Framing: 4096-sample frames every 2048 samples (50% overlap).
//     frameCount = (len(samples) - 4096) / 2048, zero for short buffers.
//  2. Spectrum: each frame is Hann-windowed and transformed.
//  3. Peaks: up to 5 local maxima per band (low/mid/high) above 10 dB.
//  4. Hashing: peaks are paired across the next 9 frames (see fingerprint.go).
//
// It also exposes Analyze, which reports RMS over the whole buffer and spectral
// flatness over the first frame only.
//
// The window coefficients and transform plan are built once per instance and
// never change. The scratch buffers are reused between frames and calls, so an
// AudioFingerprinter must not be shared between goroutines; give each worker
// its own.

const (
	// WindowSize is the frame and transform length in samples.
	WindowSize = 4096
	// HopSize is the distance between successive frame starts.
	HopSize = 2048
	// SampleRate is the rate the band boundaries were derived for.
	SampleRate = 44100
)

// AudioFingerprinter runs the framing, transform, peak picking and hashing
// pipeline over sample buffers.
type AudioFingerprinter struct {
	window    []float64
	transform *SpectralTransform
	bands     []Band

	frame      []float64
	spectrum   []complex128
	peaks      []int
	candidates []candidate
}

// NewAudioFingerprinter builds an engine with the window table and transform
// plan precomputed.
func NewAudioFingerprinter() *AudioFingerprinter {
	return &AudioFingerprinter{
		window:     HannWindow(WindowSize),
		transform:  NewSpectralTransform(WindowSize),
		bands:      DefaultBands,
		frame:      make([]float64, WindowSize),
		spectrum:   make([]complex128, WindowSize),
		peaks:      make([]int, 0, len(DefaultBands)*PeaksPerBand),
		candidates: make([]candidate, 0, 64),
	}
}

// FrameCount returns how many frames a buffer of n samples yields.
func FrameCount(n int) int {
	if n < WindowSize {
		return 0
	}
	return (n - WindowSize) / HopSize
}

// Fingerprint returns every constellation hash for samples. Buffers shorter
// than WindowSize yield no fingerprints.
func (af *AudioFingerprinter) Fingerprint(samples []float32) []Fingerprint {
	spectrogram := af.Spectrogram(samples)
	if len(spectrogram) == 0 {
		return []Fingerprint{}
	}
	return HashAll(spectrogram)
}

// Spectrogram returns the peak bins of each frame, in frame order.
func (af *AudioFingerprinter) Spectrogram(samples []float32) [][]int {
	frameCount := FrameCount(len(samples))
	spectrogram := make([][]int, 0, frameCount)

	for i := 0; i < frameCount; i++ {
		start := i * HopSize
		af.transformFrame(samples[start : start+WindowSize])

		af.peaks, af.candidates = pickPeaks(af.spectrum, af.bands, af.peaks[:0], af.candidates)

		framePeaks := make([]int, len(af.peaks))
		copy(framePeaks, af.peaks)
		spectrogram = append(spectrogram, framePeaks)
	}

	return spectrogram
}

// SpectralFlatness windows and transforms the first WindowSize samples and
// returns the flatness of their power spectrum. Extra samples are ignored;
// shorter buffers and silence return 0.
func (af *AudioFingerprinter) SpectralFlatness(samples []float32) float32 {
	if len(samples) < WindowSize {
		return 0
	}
	af.transformFrame(samples[:WindowSize])
	return float32(flatnessOf(af.spectrum))
}

// Analyze returns the RMS of the whole buffer and the spectral flatness of
// its first frame.
func (af *AudioFingerprinter) Analyze(samples []float32) (rms, flatness float32) {
	return RMS(samples), af.SpectralFlatness(samples)
}

// transformFrame fills af.spectrum with the windowed DFT of frame.
func (af *AudioFingerprinter) transformFrame(frame []float32) {
	for i, v := range frame {
		af.frame[i] = float64(v)
	}
	af.spectrum = af.transform.Forward(af.spectrum, af.frame, af.window)
}
