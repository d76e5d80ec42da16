package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/benmeehan/fieldtrack/internal/constants"
	"github.com/benmeehan/fieldtrack/internal/metrics_collectors"
	"github.com/benmeehan/fieldtrack/internal/models"
	"github.com/benmeehan/fieldtrack/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxPingBodyBytes = 10 << 10

// HTTPAPIService serves the tracking API: sample ingestion, the live
// roster, per-day tracks, shift bookkeeping, health and metrics.
type HTTPAPIService struct {
	Addr            string
	Tracker         *tracker.Tracker
	Metrics         *metrics_collectors.MetricsRegistry
	LinkSecret      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Logger          zerolog.Logger

	server       *http.Server
	promRegistry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	samplesIngested prometheus.Counter

	started time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewHTTPAPIService initializes a new HTTPAPIService. The prometheus
// registry is private to the service so repeated construction (tests,
// restarts) never collides on metric registration.
func NewHTTPAPIService(addr string, trk *tracker.Tracker, metrics *metrics_collectors.MetricsRegistry,
	linkSecret string, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger zerolog.Logger) *HTTPAPIService {

	promRegistry := prometheus.NewRegistry()
	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldtrack_http_requests_total",
		Help: "Number of HTTP requests by handler, method and status code.",
	}, []string{"handler", "method", "code"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldtrack_http_request_duration_seconds",
		Help:    "HTTP request latency by handler.",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler"})
	samplesIngested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldtrack_samples_ingested_total",
		Help: "Number of position samples accepted over HTTP.",
	})
	promRegistry.MustRegister(requestsTotal, requestDuration, samplesIngested)

	return &HTTPAPIService{
		Addr:            addr,
		Tracker:         trk,
		Metrics:         metrics,
		LinkSecret:      linkSecret,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		ShutdownTimeout: shutdownTimeout,
		Logger:          logger,
		promRegistry:    promRegistry,
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
		samplesIngested: samplesIngested,
	}
}

// Start binds the listener and serves the API in a separate goroutine.
func (h *HTTPAPIService) Start() error {
	if h.ctx != nil {
		h.Logger.Warn().Msg("HTTPAPIService is already running")
		return errors.New("http api service is already running")
	}

	listener, err := net.Listen("tcp", h.Addr)
	if err != nil {
		return err
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.started = time.Now()
	h.server = &http.Server{
		Handler:      h.routes(),
		ReadTimeout:  h.ReadTimeout,
		WriteTimeout: h.WriteTimeout,
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.Logger.Error().Err(err).Msg("HTTP server terminated unexpectedly")
		}
	}()

	h.Logger.Info().Str("addr", listener.Addr().String()).Msg("HTTPAPIService started successfully")
	return nil
}

// Stop gracefully drains in-flight requests and shuts the server down.
func (h *HTTPAPIService) Stop() error {
	if h.ctx == nil {
		h.Logger.Warn().Msg("HTTPAPIService is not running")
		return errors.New("http api service is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.ShutdownTimeout)
	defer cancel()

	err := h.server.Shutdown(ctx)
	h.cancel()
	h.wg.Wait()

	h.ctx = nil
	h.cancel = nil

	if err != nil {
		return err
	}
	h.Logger.Info().Msg("HTTPAPIService stopped successfully")
	return nil
}

// routes builds the full handler tree. Kept separate from Start so tests
// can drive the API without a real listener.
func (h *HTTPAPIService) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/geo/ping", h.instrument("ping", h.handlePing))
	mux.Handle("GET /api/online/employees", h.instrument("roster", h.handleRoster))
	mux.Handle("GET /api/online/track", h.instrument("track", h.handleTrack))
	mux.Handle("POST /api/shift/open", h.instrument("shift_open", h.handleShiftOpen))
	mux.Handle("POST /api/shift/close", h.instrument("shift_close", h.handleShiftClose))
	mux.Handle("GET /api/shift/active", h.instrument("shift_active", h.handleShiftActive))
	mux.Handle("GET /api/health", h.instrument("health", h.handleHealth))
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.promRegistry, promhttp.HandlerOpts{}))
	return mux
}

// statusRecorder captures the status code written by a handler so the
// request counter can label it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *HTTPAPIService) instrument(name string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(recorder, r)

		h.requestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		h.requestsTotal.WithLabelValues(name, r.Method, strconv.Itoa(recorder.status)).Inc()
	})
}

// resolveIdentity binds the request to an employee id. The id always comes
// from the X-Employee-ID header, never from the body. When a link secret is
// configured the X-Employee-Sig header must carry the hex HMAC-SHA256 of
// the id under that secret.
func (h *HTTPAPIService) resolveIdentity(r *http.Request) (string, error) {
	employeeID := r.Header.Get("X-Employee-ID")
	if employeeID == "" {
		return "", errors.New("missing X-Employee-ID header")
	}

	if h.LinkSecret != "" {
		sig, err := hex.DecodeString(r.Header.Get("X-Employee-Sig"))
		if err != nil {
			return "", errors.New("malformed X-Employee-Sig header")
		}
		mac := hmac.New(sha256.New, []byte(h.LinkSecret))
		mac.Write([]byte(employeeID))
		if !hmac.Equal(mac.Sum(nil), sig) {
			return "", errors.New("invalid device link signature")
		}
	}

	return employeeID, nil
}

func (h *HTTPAPIService) handlePing(w http.ResponseWriter, r *http.Request) {
	employeeID, err := h.resolveIdentity(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, err)
		return
	}

	var req models.PingRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxPingBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}

	sample, err := h.Tracker.Ingest(employeeID, req.Latitude, req.Longitude, req.Accuracy, req.Source)
	if err != nil {
		if tracker.IsValidation(err) {
			h.writeError(w, http.StatusBadRequest, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, errors.New("failed to record sample"))
		}
		return
	}

	h.samplesIngested.Inc()
	h.writeJSON(w, http.StatusOK, models.PingAck{OK: true, TS: sample.Timestamp})
}

func (h *HTTPAPIService) handleRoster(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Tracker.Roster())
}

func (h *HTTPAPIService) handleTrack(w http.ResponseWriter, r *http.Request) {
	track, err := h.Tracker.Track(r.URL.Query().Get("employee_id"), r.URL.Query().Get("date"))
	if err != nil {
		if tracker.IsValidation(err) {
			h.writeError(w, http.StatusBadRequest, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, errors.New("failed to load track"))
		}
		return
	}
	h.writeJSON(w, http.StatusOK, track)
}

func (h *HTTPAPIService) handleShiftOpen(w http.ResponseWriter, r *http.Request) {
	employeeID, err := h.resolveIdentity(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, err)
		return
	}

	shift, err := h.Tracker.OpenShift(employeeID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, errors.New("failed to open shift"))
		return
	}
	h.writeJSON(w, http.StatusOK, shift)
}

func (h *HTTPAPIService) handleShiftClose(w http.ResponseWriter, r *http.Request) {
	employeeID, err := h.resolveIdentity(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, err)
		return
	}

	shift, found, err := h.Tracker.CloseShift(employeeID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, errors.New("failed to close shift"))
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, errors.New("no shift opened today"))
		return
	}
	h.writeJSON(w, http.StatusOK, shift)
}

func (h *HTTPAPIService) handleShiftActive(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employee_id")
	shift, found, err := h.Tracker.ActiveShift(employeeID)
	if err != nil {
		if tracker.IsValidation(err) {
			h.writeError(w, http.StatusBadRequest, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, errors.New("failed to load shift"))
		}
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, errors.New("no active shift"))
		return
	}
	h.writeJSON(w, http.StatusOK, shift)
}

func (h *HTTPAPIService) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	h.writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:        "ok",
		Version:       constants.Version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Resources:     h.Metrics.Snapshot(ctx),
	})
}

func (h *HTTPAPIService) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPAPIService) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, models.ErrorResponse{OK: false, Error: err.Error()})
}
