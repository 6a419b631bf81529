package audio

// Client capture decoding
//
// Clients stream raw little-endian PCM as base64 text alongside its format:
//
// 1. Base64 Decoding: the payload is decoded into bytes
// 2. Frame Split: bytes are grouped into interleaved frames of Channels samples
// 3. Sample Conversion: samples are normalized to float32 in [-1, 1)
// 4. Downmix: each frame is averaged into one mono sample
//
// The resulting samples feed the fingerprinting engine directly.

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"audio-fingerprint/models"
	"audio-fingerprint/shazam"
	"audio-fingerprint/wav"
)

var (
	// ErrEmptyPayload is returned when a record carries no audio.
	ErrEmptyPayload = errors.New("empty audio payload")
	// ErrInvalidFormat is returned for impossible channel or sample size values.
	ErrInvalidFormat = errors.New("invalid audio format")
)

// MaxChannels bounds the interleaved channel count a record may declare.
const MaxChannels = 32

// Sample is decoded mono PCM ready for the engine.
type Sample struct {
	Samples    []float32
	SampleRate int
	Duration   float64
}

// DecodeRecord converts the base64 payload emitted by a client into
// normalized mono samples, averaging every channel.
func DecodeRecord(rec models.RecordData) (*Sample, error) {
	if rec.Audio == "" {
		return nil, ErrEmptyPayload
	}

	raw, err := base64.StdEncoding.DecodeString(rec.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}

	channels := rec.Channels
	if channels == 0 {
		channels = 1
	}
	sampleRate := rec.SampleRate
	if sampleRate == 0 {
		sampleRate = shazam.SampleRate
	}
	if channels < 0 || channels > MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFormat, channels)
	}
	if sampleRate != shazam.SampleRate {
		return nil, fmt.Errorf("%w: %d Hz, want %d Hz", wav.ErrUnsupportedSampleRate, sampleRate, shazam.SampleRate)
	}

	samples, err := convert(raw, channels, rec.SampleSize, rec.Float)
	if err != nil {
		return nil, err
	}

	return &Sample{
		Samples:    samples,
		SampleRate: sampleRate,
		Duration:   float64(len(samples)) / float64(sampleRate),
	}, nil
}

func convert(raw []byte, channels, sampleSize int, isFloat bool) ([]float32, error) {
	if sampleSize == 0 {
		sampleSize = 16
	}

	switch sampleSize {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit samples", ErrInvalidFormat, sampleSize)
	}
	if isFloat && sampleSize != 32 {
		return nil, fmt.Errorf("%w: float samples must be 32-bit, got %d", ErrInvalidFormat, sampleSize)
	}

	bytesPerSample := sampleSize / 8
	frameSize := bytesPerSample * channels
	if frameSize > len(raw) {
		return nil, fmt.Errorf("%w: %d bytes is shorter than one %d-byte frame", ErrInvalidFormat, len(raw), frameSize)
	}

	count := len(raw) / frameSize * channels

	if isFloat {
		out := make([]float32, count)
		for i := range out {
			bits := binary.LittleEndian.Uint32(raw[i*bytesPerSample:])
			out[i] = math.Float32frombits(bits)
		}
		return wav.Downmix(out, channels), nil
	}

	data := make([]int, count)
	for i := range data {
		b := raw[i*bytesPerSample:]
		switch sampleSize {
		case 8:
			data[i] = int(b[0])
		case 16:
			data[i] = int(int16(binary.LittleEndian.Uint16(b)))
		case 24:
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			data[i] = int(v<<8) >> 8
		case 32:
			data[i] = int(int32(binary.LittleEndian.Uint32(b)))
		}
	}

	normalized, err := wav.NormalizePCM(data, sampleSize)
	if err != nil {
		return nil, err
	}
	return wav.Downmix(normalized, channels), nil
}
