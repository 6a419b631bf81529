package models

import (
	"fmt"
	"strconv"

	"audio-fingerprint/shazam"
)

// RecordData is a raw PCM capture sent by a client.
type RecordData struct {
	Audio      string  `json:"audio"`
	Duration   float64 `json:"duration"`
	Channels   int     `json:"channels"`
	SampleRate int     `json:"sampleRate"`
	SampleSize int     `json:"sampleSize"`
	// Float marks 32-bit samples as IEEE float instead of signed integers.
	Float bool `json:"float,omitempty"`
}

// FingerprintSummary describes the fingerprints extracted from one recording.
type FingerprintSummary struct {
	Source           string               `json:"source,omitempty" yaml:"source,omitempty" msgpack:"source,omitempty"`
	Samples          int                  `json:"samples" yaml:"samples" msgpack:"samples"`
	FrameCount       int                  `json:"frameCount" yaml:"frameCount" msgpack:"frameCount"`
	FingerprintCount int                  `json:"fingerprintCount" yaml:"fingerprintCount" msgpack:"fingerprintCount"`
	SampleHash       string               `json:"sampleHash,omitempty" yaml:"sampleHash,omitempty" msgpack:"sampleHash,omitempty"`
	Fingerprints     []shazam.Fingerprint `json:"fingerprints,omitempty" yaml:"fingerprints,omitempty" msgpack:"fingerprints,omitempty"`
}

// NewFingerprintSummary builds a summary for samples and their fingerprints.
// Fingerprints are only attached when full is set.
func NewFingerprintSummary(source string, samples int, fps []shazam.Fingerprint, full bool) FingerprintSummary {
	summary := FingerprintSummary{
		Source:           source,
		Samples:          samples,
		FrameCount:       shazam.FrameCount(samples),
		FingerprintCount: len(fps),
	}
	if len(fps) > 0 {
		summary.SampleHash = FormatHash(fps[0].Hash)
	}
	if full {
		summary.Fingerprints = fps
	}
	return summary
}

// Header implements output.Tabular.
func (s FingerprintSummary) Header() []string {
	return []string{"SOURCE", "SAMPLES", "FRAMES", "FINGERPRINTS", "FIRST HASH"}
}

// Rows implements output.Tabular.
func (s FingerprintSummary) Rows() [][]string {
	return [][]string{{
		s.Source,
		strconv.Itoa(s.Samples),
		strconv.Itoa(s.FrameCount),
		strconv.Itoa(s.FingerprintCount),
		s.SampleHash,
	}}
}

// AnalysisResult carries the per-block features of an analysis request.
type AnalysisResult struct {
	Source      string  `json:"source,omitempty" yaml:"source,omitempty" msgpack:"source,omitempty"`
	RMS         float32 `json:"rms" yaml:"rms" msgpack:"rms"`
	Flatness    float32 `json:"flatness" yaml:"flatness" msgpack:"flatness"`
	IsTransient bool    `json:"isTransient" yaml:"isTransient" msgpack:"isTransient"`
}

// Header implements output.Tabular.
func (a AnalysisResult) Header() []string {
	return []string{"SOURCE", "RMS", "FLATNESS", "TRANSIENT"}
}

// Rows implements output.Tabular.
func (a AnalysisResult) Rows() [][]string {
	return [][]string{{
		a.Source,
		strconv.FormatFloat(float64(a.RMS), 'f', 6, 32),
		strconv.FormatFloat(float64(a.Flatness), 'f', 6, 32),
		strconv.FormatBool(a.IsTransient),
	}}
}

// SummaryList is a batch of fingerprint summaries rendered as one table.
type SummaryList []FingerprintSummary

// Header implements output.Tabular.
func (l SummaryList) Header() []string {
	return FingerprintSummary{}.Header()
}

// Rows implements output.Tabular.
func (l SummaryList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, s.Rows()...)
	}
	return rows
}

// AnalysisList is a batch of analysis results rendered as one table.
type AnalysisList []AnalysisResult

// Header implements output.Tabular.
func (l AnalysisList) Header() []string {
	return AnalysisResult{}.Header()
}

// Rows implements output.Tabular.
func (l AnalysisList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, a := range l {
		rows = append(rows, a.Rows()...)
	}
	return rows
}

// FormatHash renders a fingerprint hash as fixed-width hex.
func FormatHash(hash uint64) string {
	return fmt.Sprintf("0x%08x", hash)
}
