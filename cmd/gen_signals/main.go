package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"path/filepath"

	"audio-fingerprint/shazam"
	"audio-fingerprint/utils"
	"audio-fingerprint/wav"
)

// Writes synthetic 44.1 kHz WAV files for exercising the CLI and service.
func main() {
	outDir := flag.String("out", "samples", "Output directory")
	seconds := flag.Float64("seconds", 5, "Length of each signal")
	bitDepth := flag.Int("bits", 16, "PCM bit depth (8, 16, 24 or 32)")
	seed := flag.Uint64("seed", 1, "Noise seed")
	flag.Parse()

	if err := utils.CreateFolder(*outDir); err != nil {
		log.Fatalf("failed to create %s: %v", *outDir, err)
	}

	n := int(*seconds * shazam.SampleRate)
	signals := map[string][]float32{
		"tone_1khz.wav":   tone(n, 1000, 0.5),
		"chord.wav":       mix(tone(n, 220, 0.3), tone(n, 1760, 0.2), tone(n, 5000, 0.1)),
		"white_noise.wav": noise(n, 0.3, *seed),
		"silence.wav":     make([]float32, n),
	}

	for name, samples := range signals {
		path := filepath.Join(*outDir, name)
		if err := wav.WriteWavFile(path, wav.Quantize(samples, *bitDepth), shazam.SampleRate, 1, *bitDepth); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
		fmt.Printf("wrote %s (%d samples, %d frames)\n", path, n, shazam.FrameCount(n))
	}
}

func tone(n int, hz, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*hz*float64(i)/shazam.SampleRate))
	}
	return out
}

func noise(n int, amp float64, seed uint64) []float32 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * (2*r.Float64() - 1))
	}
	return out
}

func mix(parts ...[]float32) []float32 {
	out := make([]float32, len(parts[0]))
	for _, p := range parts {
		for i, v := range p {
			out[i] += v
		}
	}
	return out
}
