package shocklet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
)

const maxBodySize = 32 << 20 // 32MB

// ServerConfig configures the detection HTTP API.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8787".
	Addr string

	// RemoteWriteEnabled turns on the Prometheus remote-write receiver at
	// POST /prometheus/write. Received samples are buffered per series and
	// detection runs when a buffer reaches RemoteWriteFlushLen samples.
	RemoteWriteEnabled bool

	// RemoteWriteFlushLen is the per-series buffer length that triggers a
	// detection pass. Default 512.
	RemoteWriteFlushLen int

	// Store, when set, persists detected windows.
	Store *WindowStore

	// Hub, when set, publishes detection events to stream subscribers.
	Hub *EventHub
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:                ":8787",
		RemoteWriteFlushLen: 512,
	}
}

// DetectServer exposes the detector over HTTP: ad-hoc detection, persisted
// window queries, a Prometheus remote-write receiver, and a WebSocket event
// stream.
type DetectServer struct {
	detector *Detector
	config   ServerConfig
	mux      *http.ServeMux
	srv      *http.Server

	mu      sync.Mutex
	buffers map[string][]float64
}

// NewDetectServer builds the server and its routes.
func NewDetectServer(detector *Detector, cfg ServerConfig) *DetectServer {
	if cfg.RemoteWriteFlushLen <= 0 {
		cfg.RemoteWriteFlushLen = 512
	}
	s := &DetectServer{
		detector: detector,
		config:   cfg,
		mux:      http.NewServeMux(),
		buffers:  make(map[string][]float64),
	}
	s.mux.HandleFunc("/api/v1/detect", s.handleDetect)
	s.mux.HandleFunc("/api/v1/windows", s.handleWindows)
	s.mux.HandleFunc("/prometheus/write", s.handleRemoteWrite)
	if cfg.Hub != nil {
		s.mux.Handle("/stream", cfg.Hub)
	}
	return s
}

// Handler returns the route mux, for mounting or testing without a listener.
func (s *DetectServer) Handler() http.Handler { return s.mux }

// Start begins serving. Blocks until the listener fails or Stop is called.
func (s *DetectServer) Start() error {
	s.srv = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down.
func (s *DetectServer) Stop() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}

// detectRequest is the POST /api/v1/detect body. Config fields, when
// present, override the server detector's configuration for this request.
type detectRequest struct {
	Series []float64 `json:"series"`
	Name   string    `json:"name"`
	Config *Config   `json:"config,omitempty"`
}

func (s *DetectServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	detector := s.detector
	if req.Config != nil {
		d, err := NewDetector(*req.Config)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		detector = d
	}

	res, err := detector.Detect(req.Series)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrInsufficientLength) ||
			errors.Is(err, ErrZeroVariance) || errors.Is(err, ErrNonPositiveValue) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	s.publish(req.Name, 0, req.Series, res)
	writeJSON(w, http.StatusOK, res)
}

func (s *DetectServer) handleWindows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.config.Store == nil {
		http.Error(w, "window store not configured", http.StatusNotFound)
		return
	}
	runID, err := strconv.ParseInt(r.URL.Query().Get("run"), 10, 64)
	if err != nil {
		http.Error(w, "run parameter required", http.StatusBadRequest)
		return
	}
	windows, err := s.config.Store.ListWindows(r.Context(), runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, windows)
}

// handleRemoteWrite ingests Prometheus remote-write batches. Samples are
// appended to a per-series buffer keyed by metric name and labels; when a
// buffer reaches the flush length, detection runs on it and the buffer keeps
// its most recent half as overlap for the next pass.
func (s *DetectServer) handleRemoteWrite(w http.ResponseWriter, r *http.Request) {
	if !s.config.RemoteWriteEnabled {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	decoded, err := snappy.Decode(nil, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req prompb.WriteRequest
	if err := req.Unmarshal(decoded); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for i := range req.Timeseries {
		ts := &req.Timeseries[i]
		key := seriesKey(ts.Labels)
		values := make([]float64, 0, len(ts.Samples))
		for _, sample := range ts.Samples {
			values = append(values, sample.Value)
		}
		s.ingest(key, values)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *DetectServer) ingest(key string, values []float64) {
	s.mu.Lock()
	buf := append(s.buffers[key], values...)
	var flush []float64
	if len(buf) >= s.config.RemoteWriteFlushLen {
		flush = append([]float64(nil), buf...)
		buf = buf[len(buf)/2:]
	}
	s.buffers[key] = buf
	s.mu.Unlock()

	if flush == nil {
		return
	}
	res, err := s.detector.Detect(flush)
	if err != nil {
		slog.Warn("remote write detection failed", "series", key, "err", err)
		return
	}
	s.publish(key, 0, flush, res)
}

// publish records windows to the store and event hub, if configured.
func (s *DetectServer) publish(name string, row int, series []float64, res *Result) {
	if len(res.Windows) == 0 {
		return
	}
	now := time.Now()

	if s.config.Hub != nil || s.config.Store != nil {
		peaks := WindowArgmaxes(res.Windows, series)
		records := make([]WindowRecord, len(res.Windows))
		for i, win := range res.Windows {
			weight := 0.0
			if res.Weighted != nil && res.Indicator != nil && res.Indicator[peaks[i]] != 0 {
				weight = res.Weighted[peaks[i]] / res.Indicator[peaks[i]]
			}
			records[i] = WindowRecord{Row: row, Start: win.Start, End: win.End, Weight: weight, Peak: peaks[i]}
			if s.config.Hub != nil {
				s.config.Hub.Publish(DetectionEvent{
					Series: name,
					Row:    row,
					Window: win,
					Weight: weight,
					Peak:   peaks[i],
					Time:   now.UnixNano(),
				})
			}
		}
		if s.config.Store != nil {
			cfg := s.detector.Config()
			_, err := s.config.Store.SaveRun(context.Background(), RunRecord{
				Name:      name,
				Kernel:    cfg.Kernel.Name,
				Weighting: cfg.Weighting,
				CreatedAt: now,
			}, records)
			if err != nil {
				slog.Error("window store save failed", "series", name, "err", err)
			}
		}
	}
}

func seriesKey(labels []prompb.Label) string {
	name := ""
	rest := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.Name == "__name__" {
			name = l.Value
			continue
		}
		rest = append(rest, l.Name+"="+l.Value)
	}
	sort.Strings(rest)
	key := name
	for _, kv := range rest {
		key += "," + kv
	}
	return key
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "err", err)
	}
}
