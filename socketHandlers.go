package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdobak/go-xerrors"

	"audio-fingerprint/audio"
	"audio-fingerprint/models"
	"audio-fingerprint/utils"
)

// emitter is the part of a socket.io connection the controller talks to.
type emitter interface {
	ID() string
	Emit(event string, v ...interface{})
}

type socketController struct {
	svc *fingerprintService
}

func newSocketController(svc *fingerprintService) *socketController {
	return &socketController{svc: svc}
}

// recovered runs fn and reports a panic to the client instead of crashing the server.
func (c *socketController) recovered(socket emitter, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger := utils.GetLogger()
			err := xerrors.New(fmt.Errorf("panic: %v", r))
			logger.ErrorContext(context.Background(), "socket handler panicked",
				slog.String("socketID", socket.ID()),
				slog.Any("error", err),
			)
			socket.Emit("analysisError", map[string]string{"message": "internal server error during processing"})
		}
	}()
	fn()
}

// decode parses a RecordData payload and reports failures on the socket.
func (c *socketController) decode(socket emitter, payload string) (*audio.Sample, bool) {
	logger := utils.GetLogger()
	ctx := context.Background()

	if payload == "" {
		logger.ErrorContext(ctx, "no data received in socket event")
		socket.Emit("analysisError", map[string]string{"message": "no audio data received"})
		return nil, false
	}

	var recData models.RecordData
	if err := json.Unmarshal([]byte(payload), &recData); err != nil {
		err := xerrors.New(err)
		logger.ErrorContext(ctx, "failed to parse record payload", slog.Any("error", err))
		socket.Emit("analysisError", map[string]string{"message": "invalid audio payload"})
		return nil, false
	}

	sample, err := audio.DecodeRecord(recData)
	if err != nil {
		logger.ErrorContext(ctx, "failed to decode audio",
			slog.String("socketID", socket.ID()),
			slog.Any("error", xerrors.New(err)),
		)
		socket.Emit("analysisError", map[string]string{"message": err.Error()})
		return nil, false
	}

	logger.DebugContext(ctx, "received recording",
		slog.String("socketID", socket.ID()),
		slog.Int("sampleRate", recData.SampleRate),
		slog.Int("channels", recData.Channels),
		slog.Int("sampleSize", recData.SampleSize),
		slog.Int("samples", len(sample.Samples)),
	)
	return sample, true
}

func (c *socketController) handleAnalyzeBlock(socket emitter, payload string) {
	sample, ok := c.decode(socket, payload)
	if !ok {
		return
	}

	result := c.svc.analyze("", sample.Samples)
	socket.Emit("features", result)
}

func (c *socketController) handleFingerprint(socket emitter, payload string) {
	logger := utils.GetLogger()
	ctx := context.Background()

	sample, ok := c.decode(socket, payload)
	if !ok {
		return
	}

	started := time.Now()
	summary := c.svc.fingerprint("", sample.Samples, true)

	logger.InfoContext(ctx, "emitting fingerprint result",
		slog.String("socketID", socket.ID()),
		slog.Int("frameCount", summary.FrameCount),
		slog.Int("fingerprintCount", summary.FingerprintCount),
		slog.Float64("latency_ms", time.Since(started).Seconds()*1000),
	)
	socket.Emit("fingerprintResult", summary)
}
