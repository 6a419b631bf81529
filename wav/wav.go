package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"audio-fingerprint/shazam"
)

var (
	// ErrInvalidFile is returned when the input is not a RIFF/WAVE stream.
	ErrInvalidFile = errors.New("not a valid wav file")
	// ErrUnsupportedFormat is returned for non-PCM encodings.
	ErrUnsupportedFormat = errors.New("only integer PCM wav is supported")
	// ErrUnsupportedBitDepth is returned for bit depths other than 8, 16, 24 or 32.
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	// ErrUnsupportedSampleRate is returned when the file is not sampled at 44.1 kHz.
	ErrUnsupportedSampleRate = errors.New("unsupported sample rate")
)

const pcmFormat = 1

// WavInfo describes a decoded WAV file.
type WavInfo struct {
	Channels   int
	SampleRate int
	BitDepth   int
	Duration   float64
	// Samples is the mono mixdown of every channel, normalized to [-1, 1).
	Samples []float32
}

// ReadWavInfo decodes the WAV file at path.
func ReadWavInfo(path string) (*WavInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	info, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// Decode reads a whole WAV stream and mixes it down to mono.
func Decode(r io.ReadSeeker) (*WavInfo, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}
	if dec.WavAudioFormat != pcmFormat {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	if dec.SampleRate != shazam.SampleRate {
		return nil, fmt.Errorf("%w: %d Hz, want %d Hz", ErrUnsupportedSampleRate, dec.SampleRate, shazam.SampleRate)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)

	normalized, err := NormalizePCM(buf.Data, bitDepth)
	if err != nil {
		return nil, err
	}
	samples := Downmix(normalized, channels)

	return &WavInfo{
		Channels:   channels,
		SampleRate: int(dec.SampleRate),
		BitDepth:   bitDepth,
		Duration:   float64(len(samples)) / float64(dec.SampleRate),
		Samples:    samples,
	}, nil
}

// Downmix averages each interleaved frame of channels samples into one mono
// sample. A trailing partial frame is dropped.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	mono := make([]float32, len(samples)/channels)
	for i := range mono {
		var sum float64
		for _, v := range samples[i*channels : (i+1)*channels] {
			sum += float64(v)
		}
		mono[i] = float32(sum / float64(channels))
	}
	return mono
}

// NormalizePCM scales integer samples of the given bit depth to [-1, 1).
// 8-bit WAV samples are unsigned and centred on 128.
func NormalizePCM(data []int, bitDepth int) ([]float32, error) {
	var (
		scale  float64
		offset int
	)
	switch bitDepth {
	case 8:
		scale, offset = 128, 128
	case 16:
		scale = 32768
	case 24:
		scale = 8388608
	case 32:
		scale = 2147483648
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(float64(v-offset) / scale)
	}
	return out, nil
}

// WriteWavFile writes interleaved integer samples as a PCM WAV file.
func WriteWavFile(path string, data []int, sampleRate, channels, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           data,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write pcm data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	return nil
}

// Quantize converts normalized samples to integers at bitDepth, clipping to
// range. It is the inverse of NormalizePCM, so 8-bit output is unsigned.
func Quantize(samples []float32, bitDepth int) []int {
	full := float64(int64(1) << (bitDepth - 1))
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	out := make([]int, len(samples))
	for i, s := range samples {
		v := float64(s) * full
		if v > full-1 {
			v = full - 1
		} else if v < -full {
			v = -full
		}
		out[i] = int(v) + offset
	}
	return out
}
