package main

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audio-fingerprint/models"
	"audio-fingerprint/shazam"
	"audio-fingerprint/wav"
)

const testMaxBytes = 16 << 20

// toneRecord encodes frames hops of a 16-bit tone centred on bin.
func toneRecord(frames, bin int, amp float64) models.RecordData {
	n := shazam.WindowSize + frames*shazam.HopSize
	buf := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		v := amp * math.Sin(2*math.Pi*float64(bin)*float64(i)/shazam.WindowSize)
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(v*32767)))
	}
	return models.RecordData{
		Audio:      base64.StdEncoding.EncodeToString(buf),
		Channels:   1,
		SampleRate: shazam.SampleRate,
		SampleSize: 16,
	}
}

func postJSON(t *testing.T, handler http.Handler, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func newTestMux() *http.ServeMux {
	return newAPIMux(newFingerprintService(0.1), testMaxBytes)
}

func TestFingerprintHandler(t *testing.T) {
	mux := newTestMux()

	rec := postJSON(t, mux, "/api/fingerprint", toneRecord(12, 100, 0.5))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var summary models.FingerprintSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 12, summary.FrameCount)
	assert.Positive(t, summary.FingerprintCount)
	assert.NotEmpty(t, summary.SampleHash)
	assert.Empty(t, summary.Fingerprints)
}

func TestFingerprintHandlerFull(t *testing.T) {
	mux := newTestMux()

	rec := postJSON(t, mux, "/api/fingerprint?full=1", toneRecord(12, 100, 0.5))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.FingerprintSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Len(t, summary.Fingerprints, summary.FingerprintCount)
	for _, fp := range summary.Fingerprints {
		anchor, target, delta := shazam.UnpackHash(fp.Hash)
		assert.Equal(t, 100, anchor)
		assert.Equal(t, 100, target)
		assert.GreaterOrEqual(t, delta, 1)
		assert.LessOrEqual(t, delta, 9)
	}
}

func TestFingerprintHandlerSilenceIsNotFound(t *testing.T) {
	mux := newTestMux()

	rec := postJSON(t, mux, "/api/fingerprint", toneRecord(4, 100, 0))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFingerprintHandlerErrors(t *testing.T) {
	mux := newTestMux()

	tests := []struct {
		name    string
		payload any
		want    int
	}{
		{"empty audio", models.RecordData{}, http.StatusBadRequest},
		{"not json", "nope", http.StatusBadRequest},
		{"wrong rate", models.RecordData{Audio: "AAAA", SampleRate: 8000}, http.StatusUnsupportedMediaType},
		{"absurd channel count", models.RecordData{Audio: "AAAAAAAA", Channels: 1 << 62, SampleSize: 32}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, mux, "/api/fingerprint", tt.payload)
			assert.Equal(t, tt.want, rec.Code)

			var apiErr apiError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}

func TestMethodHandling(t *testing.T) {
	mux := newTestMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fingerprint", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/analyze", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestAnalyzeHandler(t *testing.T) {
	mux := newTestMux()

	rec := postJSON(t, mux, "/api/analyze", toneRecord(1, 100, 0.5))
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.InDelta(t, 0.5/math.Sqrt2, result.RMS, 1e-3)
	assert.True(t, result.IsTransient)
	assert.Less(t, result.Flatness, float32(0.1))

	rec = postJSON(t, mux, "/api/analyze", toneRecord(1, 100, 0.05))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.IsTransient)
}

func TestUploadHandler(t *testing.T) {
	n := shazam.WindowSize + 12*shazam.HopSize
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*100*float64(i)/shazam.WindowSize))
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, wav.WriteWavFile(path, wav.Quantize(samples, 16), shazam.SampleRate, 1, 16))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "tone.wav")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/fingerprint/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary models.FingerprintSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "tone.wav", summary.Source)
	assert.Equal(t, 12, summary.FrameCount)
	assert.Positive(t, summary.FingerprintCount)
}

func TestUploadHandlerMissingFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/fingerprint/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestMux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, shazam.WindowSize, health.WindowSize)
}

func TestEnginePoolReuse(t *testing.T) {
	pool := newEnginePool()
	e := pool.get()
	require.NotNil(t, e)
	pool.put(e)
	assert.NotNil(t, pool.get())
}

type fakeConn struct {
	id   string
	url  url.URL
	addr net.Addr
}

func (c fakeConn) ID() string           { return c.id }
func (c fakeConn) URL() url.URL         { return c.url }
func (c fakeConn) RemoteAddr() net.Addr { return c.addr }

func TestConnAttrs(t *testing.T) {
	conn := fakeConn{
		id:   "abc",
		url:  url.URL{Scheme: "ws", Host: "localhost:5000", Path: "/socket.io/"},
		addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4242},
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("socket connected", connAttrs(conn)...)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry["socketID"])
	assert.Equal(t, "ws://localhost:5000/socket.io/", entry["url"])
	assert.Equal(t, "127.0.0.1:4242", entry["remoteAddr"])
}
