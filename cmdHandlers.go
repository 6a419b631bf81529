package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/mdobak/go-xerrors"

	"audio-fingerprint/audio"
	"audio-fingerprint/config"
	"audio-fingerprint/models"
	"audio-fingerprint/shazam"
	"audio-fingerprint/utils"
	"audio-fingerprint/wav"
)

type apiError struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status     string `json:"status"`
	WindowSize int    `json:"windowSize"`
	HopSize    int    `json:"hopSize"`
	SampleRate int    `json:"sampleRate"`
}

// enginePool hands each concurrent request its own engine.
type enginePool struct {
	pool sync.Pool
}

func newEnginePool() *enginePool {
	return &enginePool{pool: sync.Pool{
		New: func() any { return shazam.NewAudioFingerprinter() },
	}}
}

func (p *enginePool) get() *shazam.AudioFingerprinter {
	return p.pool.Get().(*shazam.AudioFingerprinter)
}

func (p *enginePool) put(e *shazam.AudioFingerprinter) {
	p.pool.Put(e)
}

// fingerprintService runs the engine for both HTTP and socket requests.
type fingerprintService struct {
	engines   *enginePool
	threshold float32
}

func newFingerprintService(threshold float64) *fingerprintService {
	return &fingerprintService{engines: newEnginePool(), threshold: float32(threshold)}
}

func (s *fingerprintService) fingerprint(source string, samples []float32, full bool) models.FingerprintSummary {
	engine := s.engines.get()
	defer s.engines.put(engine)

	fps := engine.Fingerprint(samples)
	return models.NewFingerprintSummary(source, len(samples), fps, full)
}

func (s *fingerprintService) analyze(source string, samples []float32) models.AnalysisResult {
	engine := s.engines.get()
	defer s.engines.put(engine)

	rms, flatness := engine.Analyze(samples)
	return models.AnalysisResult{
		Source:      source,
		RMS:         rms,
		Flatness:    flatness,
		IsTransient: rms > s.threshold,
	}
}

// connInfo is the part of a socket.io connection logged on connect.
type connInfo interface {
	ID() string
	URL() url.URL
	RemoteAddr() net.Addr
}

func connAttrs(socket connInfo) []any {
	connURL := socket.URL()
	remote := ""
	if addr := socket.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return []any{
		slog.String("socketID", socket.ID()),
		slog.String("url", connURL.String()),
		slog.String("remoteAddr", remote),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Message: message})
}

// preflight sets CORS headers and reports whether the request still needs handling.
func preflight(w http.ResponseWriter, r *http.Request, method string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", method+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Credentials", "true")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return false
	}

	if r.Method != method {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// decodeStatus maps input validation errors to a client error.
func decodeStatus(err error) int {
	switch {
	case errors.Is(err, wav.ErrUnsupportedSampleRate),
		errors.Is(err, wav.ErrUnsupportedBitDepth),
		errors.Is(err, wav.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

func readRecord(w http.ResponseWriter, r *http.Request, maxBytes int64) (*audio.Sample, bool) {
	logger := utils.GetLogger()
	ctx := r.Context()

	var recData models.RecordData
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(body).Decode(&recData); err != nil {
		logger.ErrorContext(ctx, "failed to parse request body", slog.Any("error", err))
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return nil, false
	}

	sample, err := audio.DecodeRecord(recData)
	if err != nil {
		logger.ErrorContext(ctx, "failed to decode audio", slog.Any("error", xerrors.New(err)))
		writeJSONError(w, decodeStatus(err), err.Error())
		return nil, false
	}

	logger.InfoContext(ctx, "decoded audio record",
		slog.Int("sampleRate", sample.SampleRate),
		slog.Int("channels", recData.Channels),
		slog.Int("samples", len(sample.Samples)),
		slog.Float64("duration", sample.Duration),
	)
	return sample, true
}

func writeSummary(w http.ResponseWriter, r *http.Request, summary models.FingerprintSummary, started time.Time) {
	logger := utils.GetLogger()

	logger.InfoContext(r.Context(), "fingerprinted audio",
		slog.String("source", summary.Source),
		slog.Int("frameCount", summary.FrameCount),
		slog.Int("fingerprintCount", summary.FingerprintCount),
		slog.Float64("latency_ms", time.Since(started).Seconds()*1000),
	)

	if summary.FingerprintCount == 0 {
		writeJSONError(w, http.StatusNotFound, "no fingerprints extracted")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func wantFull(r *http.Request) bool {
	full, _ := strconv.ParseBool(r.URL.Query().Get("full"))
	return full
}

func newFingerprintHandler(svc *fingerprintService, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !preflight(w, r, http.MethodPost) {
			return
		}

		started := time.Now()
		sample, ok := readRecord(w, r, maxBytes)
		if !ok {
			return
		}

		writeSummary(w, r, svc.fingerprint("", sample.Samples, wantFull(r)), started)
	}
}

func newUploadHandler(svc *fingerprintService, maxBytes int64) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !preflight(w, r, http.MethodPost) {
			return
		}

		started := time.Now()
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			logger.ErrorContext(ctx, "failed to parse multipart form", slog.Any("error", err))
			writeJSONError(w, http.StatusBadRequest, "invalid upload payload")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "no audio file provided")
			return
		}
		defer file.Close()

		info, err := wav.Decode(file)
		if err != nil {
			logger.ErrorContext(ctx, "failed to decode upload",
				slog.String("filename", header.Filename),
				slog.Any("error", xerrors.New(err)),
			)
			writeJSONError(w, decodeStatus(err), err.Error())
			return
		}

		writeSummary(w, r, svc.fingerprint(header.Filename, info.Samples, wantFull(r)), started)
	}
}

func newAnalyzeHandler(svc *fingerprintService, maxBytes int64) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		if !preflight(w, r, http.MethodPost) {
			return
		}

		sample, ok := readRecord(w, r, maxBytes)
		if !ok {
			return
		}

		result := svc.analyze("", sample.Samples)
		logger.InfoContext(r.Context(), "analyzed block",
			slog.Float64("rms", float64(result.RMS)),
			slog.Float64("flatness", float64(result.Flatness)),
			slog.Bool("isTransient", result.IsTransient),
		)
		writeJSON(w, http.StatusOK, result)
	}
}

func newHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !preflight(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{
			Status:     "ok",
			WindowSize: shazam.WindowSize,
			HopSize:    shazam.HopSize,
			SampleRate: shazam.SampleRate,
		})
	}
}

// newAPIMux registers the REST endpoints.
func newAPIMux(svc *fingerprintService, maxBytes int64) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/fingerprint", newFingerprintHandler(svc, maxBytes))
	mux.HandleFunc("/api/fingerprint/upload", newUploadHandler(svc, maxBytes))
	mux.HandleFunc("/api/analyze", newAnalyzeHandler(svc, maxBytes))
	mux.HandleFunc("/api/health", newHealthHandler())
	return mux
}

func serve(cfg *config.Config) error {
	logger := utils.GetLogger()
	ctx := context.Background()

	protocol := strings.ToLower(cfg.Server.Protocol)
	var allowOriginFunc = func(r *http.Request) bool {
		return true
	}

	maxBytes := int64(cfg.Server.MaxUploadMB) << 20
	svc := newFingerprintService(cfg.Analysis.TransientThreshold)
	controller := newSocketController(svc)

	server := socketio.NewServer(&engineio.Options{
		PingTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: allowOriginFunc,
			},
			&polling.Transport{
				CheckOrigin: allowOriginFunc,
			},
		},
	})

	server.OnConnect("/", func(socket socketio.Conn) error {
		socket.SetContext("")
		logger.InfoContext(ctx, "socket connected", connAttrs(socket)...)
		return nil
	})

	server.OnEvent("/", "analyzeBlock", func(socket socketio.Conn, msg string) {
		go controller.recovered(socket, func() { controller.handleAnalyzeBlock(socket, msg) })
	})

	server.OnEvent("/", "fingerprint", func(socket socketio.Conn, msg string) {
		go controller.recovered(socket, func() { controller.handleFingerprint(socket, msg) })
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		logger.ErrorContext(ctx, "socket error", slog.Any("error", xerrors.New(e)))
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		logger.InfoContext(ctx, "socket disconnected",
			slog.String("socketID", s.ID()),
			slog.String("reason", reason),
		)
	})

	go func() {
		if err := server.Serve(); err != nil {
			log.Fatalf("socketio listen error: %s\n", err)
		}
	}()
	defer server.Close()

	mux := newAPIMux(svc, maxBytes)
	mux.Handle("/socket.io/", server)
	mux.Handle("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))

	return serveHTTP(cfg.Server, protocol == "https", mux)
}

func serveHTTP(srv config.ServerConfig, serveHTTPS bool, handler http.Handler) error {
	addr := ":" + srv.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if serveHTTPS {
		httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		printBanner("https://localhost" + addr)
		return httpServer.ListenAndServeTLS(srv.CertFile, srv.CertKey)
	}

	printBanner("http://localhost" + addr)
	return httpServer.ListenAndServe()
}
