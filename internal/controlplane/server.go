package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fentz26/teamtimer/internal/models"
	"github.com/fentz26/teamtimer/internal/store"
)

// Version is reported by /health. Set at build time with -ldflags.
var Version = "0.1.0-dev"

// Server provides the local HTTP API for teamtimer.
type Server struct {
	service *Service
	addr    string
	log     *slog.Logger
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: service,
		addr:    addr,
		log:     logger,
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Timer endpoints
	mux.HandleFunc("/timer", s.handleTimer)
	mux.HandleFunc("/timer/start", s.post(s.startTimer))
	mux.HandleFunc("/timer/stop", s.post(s.stopTimer))
	mux.HandleFunc("/timer/toggle", s.post(s.toggleTimer))

	// Team endpoints
	mux.HandleFunc("/team/switch", s.post(s.switchTeam))

	// Statistics & plans
	mux.HandleFunc("/stats", s.get(s.statistics))
	mux.HandleFunc("/plans/compare", s.get(s.comparePlans))
	mux.HandleFunc("/plans/outstanding", s.get(s.outstandingTasks))

	// Journal
	mux.HandleFunc("/journal", s.get(s.journal))

	// Health check
	mux.HandleFunc("/health", s.get(s.handleHealth))

	return mux
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("control plane listening", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) get(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (s *Server) post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	http.Error(w, err.Error(), status)
}

// --- Timer Handlers ---

// handleTimer handles GET /timer
func (s *Server) handleTimer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	view, err := s.service.Timer(r.Context(), refresh)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type startRequest struct {
	TaskID string `json:"task_id"`
}

func (s *Server) startTimer(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	view, err := s.service.StartTimer(r.Context(), req.TaskID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) stopTimer(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.StopTimer(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) toggleTimer(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.ToggleTimer(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// --- Team Handlers ---

type switchRequest struct {
	TeamID string `json:"team_id"`
}

func (s *Server) switchTeam(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	res, err := s.service.SwitchTeam(r.Context(), req.TeamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// --- Statistics & Plan Handlers ---

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Statistics(r.URL.Query().Get("scope"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if stats == nil {
		stats = []models.TaskStatistic{}
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) comparePlans(w http.ResponseWriter, r *http.Request) {
	cmp, err := s.service.ComparePlans(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cmp.Estimated == nil {
		cmp.Estimated = []bool{}
	}
	s.writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) outstandingTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.service.OutstandingTasks(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []models.DailyPlanTask{}
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

// --- Journal Handlers ---

func (s *Server) journal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{
		Action: q.Get("action"),
		TaskID: q.Get("task_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}

	entries, err := s.service.Journal(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	OK      bool      `json:"ok"`
	DB      string    `json:"db"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: Version,
		Time:    time.Now().UTC(),
	}
	if err := s.service.PingJournal(r.Context()); err != nil {
		resp.OK = false
		resp.DB = err.Error()
		if errors.Is(err, ErrNoJournal) {
			resp.OK = true
			resp.DB = "disabled"
		}
	}
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}
