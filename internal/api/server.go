package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/corvid-data/proximity.report/internal/db"
	"github.com/corvid-data/proximity.report/internal/httputil"
	"github.com/corvid-data/proximity.report/internal/mmwave/pipeline"
	"github.com/corvid-data/proximity.report/internal/monitoring"
	"github.com/corvid-data/proximity.report/internal/serialmux"
	"github.com/corvid-data/proximity.report/internal/units"
	"github.com/corvid-data/proximity.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes the live pipeline and the recorded history over HTTP.
// Speeds are stored in m/s and converted to the configured display units
// on the way out.
type Server struct {
	m       serialmux.SerialMuxInterface
	db      *db.DB
	runtime *pipeline.Runtime
	hub     *Hub
	units   string
}

// NewServer builds a Server. hub may be nil when no live stream is wired.
func NewServer(m serialmux.SerialMuxInterface, db *db.DB, runtime *pipeline.Runtime, hub *Hub, units string) *Server {
	return &Server{
		m:       m,
		db:      db,
		runtime: runtime,
		hub:     hub,
		units:   units,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/latest", s.showLatest)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/speeds", s.showLiveSpeeds)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/version", s.showVersion)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRuns)
	mux.HandleFunc("/api/command", s.sendCommandHandler)
	mux.HandleFunc("/api/rewind", s.rewindHandler)
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	}
	return mux
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command := r.FormValue("command")

	if err := s.m.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}

func (s *Server) rewindHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	target, err := strconv.Atoi(r.FormValue("target"))
	if err != nil || target < 0 {
		httputil.BadRequest(w, "Invalid 'target' parameter")
		return
	}

	if err := s.runtime.RequestRewind(target); err != nil {
		httputil.Conflict(w, err.Error())
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"status": "rewinding",
		"target": target,
	})
}

func (s *Server) showLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	res := s.runtime.Latest()
	if res == nil {
		httputil.NotFound(w, "No frames processed yet")
		return
	}

	httputil.WriteJSONOK(w, newFramePayload(res, s.units))
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	stats := s.runtime.Snapshot()
	payload := StatsPayload{
		FramesProcessed: stats.FramesProcessed,
		DecodeErrors:    stats.DecodeErrors,
		SinkErrors:      stats.SinkErrors,
		Position:        stats.Position,
		State:           stats.State,
	}
	if s.hub != nil {
		payload.LiveViewers = s.hub.ClientCount()
	}

	httputil.WriteJSONOK(w, payload)
}

func (s *Server) showLiveSpeeds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	raw, smooth := s.runtime.SpeedHistories()
	payload := SpeedsPayload{
		Units:  s.units,
		Raw:    convertSpeeds(raw, s.units),
		Smooth: convertSpeeds(smooth, s.units),
	}

	httputil.WriteJSONOK(w, payload)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"units":    s.units,
		"pipeline": s.runtime.Pipeline().Config(),
	})
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

// handleRuns routes /api/runs and its sub-resources:
//
//	GET /api/runs                 list recorded runs
//	GET /api/runs/{id}            one run
//	GET /api/runs/{id}/speeds     per-frame speed series
//	GET /api/runs/{id}/clusters   clusters (latest frame, or ?position=N)
//	GET /api/runs/{id}/warnings   safety warnings, newest first
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/runs")
	rest = strings.Trim(rest, "/")
	if rest == "" {
		s.listRuns(w, r)
		return
	}

	parts := strings.Split(rest, "/")
	runID := parts[0]
	if len(parts) == 1 {
		s.showRun(w, runID)
		return
	}

	switch parts[1] {
	case "speeds":
		s.showRunSpeeds(w, r, runID)
	case "clusters":
		s.showRunClusters(w, r, runID)
	case "warnings":
		s.showRunWarnings(w, r, runID)
	default:
		httputil.NotFound(w, "Unknown run resource")
	}
}

// parseLimit reads an optional positive 'limit' query parameter. Zero means
// the store default.
func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid 'limit' parameter")
	}
	return limit, nil
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	runs, err := s.db.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}

	httputil.WriteJSONOK(w, runs)
}

func (s *Server) showRun(w http.ResponseWriter, runID string) {
	run, err := s.db.GetRun(runID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve run: %v", err))
		return
	}

	httputil.WriteJSONOK(w, run)
}

func (s *Server) showRunSpeeds(w http.ResponseWriter, r *http.Request, runID string) {
	limit, err := parseLimit(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	samples, err := s.db.SpeedHistory(runID, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve speed history: %v", err))
		return
	}

	// Apply unit conversion to all speed values
	for i := range samples {
		samples[i].RawSpeed = units.ConvertSpeed(samples[i].RawSpeed, s.units)
		samples[i].SmoothSpeed = units.ConvertSpeed(samples[i].SmoothSpeed, s.units)
	}

	httputil.WriteJSONOK(w, samples)
}

func (s *Server) showRunClusters(w http.ResponseWriter, r *http.Request, runID string) {
	var clusters []db.Cluster
	var err error

	if v := r.URL.Query().Get("position"); v != "" {
		position, perr := strconv.Atoi(v)
		if perr != nil || position < 0 {
			httputil.BadRequest(w, "Invalid 'position' parameter")
			return
		}
		clusters, err = s.db.ListClusters(runID, position)
	} else {
		clusters, err = s.db.LatestClusters(runID)
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve clusters: %v", err))
		return
	}

	httputil.WriteJSONOK(w, clusters)
}

func (s *Server) showRunWarnings(w http.ResponseWriter, r *http.Request, runID string) {
	limit, err := parseLimit(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	warnings, err := s.db.ListWarnings(runID, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve warnings: %v", err))
		return
	}

	httputil.WriteJSONOK(w, warnings)
}
