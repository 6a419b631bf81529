package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"slices"

	"github.com/fatih/color"

	"audio-fingerprint/shazam"
	"audio-fingerprint/wav"
)

type run struct {
	fingerprints []shazam.Fingerprint
	rms          float32
	flatness     float32
}

// Checks that fingerprinting and analysis are bit-identical across runs and
// across independent engines.
func main() {
	runs := flag.Int("n", 5, "number of runs")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: check_determinism [-n runs] <path-to-wav-file>")
	}

	testFile := flag.Arg(0)
	info, err := wav.ReadWavInfo(testFile)
	if err != nil {
		log.Fatalf("read %s: %v", testFile, err)
	}
	log.Printf("Testing determinism with: %s (%d samples, %d frames)\n",
		testFile, len(info.Samples), shazam.FrameCount(len(info.Samples)))

	shared := shazam.NewAudioFingerprinter()
	var results []run
	for i := 0; i < *runs; i++ {
		// even runs reuse one engine, odd runs build a fresh one
		engine := shared
		if i%2 == 1 {
			engine = shazam.NewAudioFingerprinter()
		}
		r := run{fingerprints: engine.Fingerprint(info.Samples)}
		r.rms, r.flatness = engine.Analyze(info.Samples)
		results = append(results, r)
		log.Printf("Run %d: %d fingerprints, rms=%.10f, flatness=%.10f",
			i+1, len(r.fingerprints), r.rms, r.flatness)
	}

	fmt.Println("\n=== Determinism Check ===")
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	allIdentical := true
	for i := 1; i < len(results); i++ {
		if !slices.Equal(results[0].fingerprints, results[i].fingerprints) {
			allIdentical = false
			bad.Printf("Fingerprints differ between run 1 and run %d (%d vs %d records)\n",
				i+1, len(results[0].fingerprints), len(results[i].fingerprints))
		}
		if math.Float32bits(results[0].rms) != math.Float32bits(results[i].rms) ||
			math.Float32bits(results[0].flatness) != math.Float32bits(results[i].flatness) {
			allIdentical = false
			bad.Printf("Analysis differs between run 1 and run %d\n", i+1)
		}
	}

	if !allIdentical {
		bad.Println("Fingerprinting is NON-DETERMINISTIC")
		os.Exit(1)
	}
	ok.Println("All runs produced IDENTICAL results (deterministic)")
}
