package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/audit"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/pipeline"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/staffing"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
)

type Server struct {
	router   *chi.Mux
	port     int
	pipeline *pipeline.Pipeline
	staffing *staffing.Loader
	auditor  *audit.Logger
	store    store.Store
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, p *pipeline.Pipeline, loader *staffing.Loader, auditor *audit.Logger, db store.Store, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		pipeline: p,
		staffing: loader,
		auditor:  auditor,
		store:    db,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/ai/status", s.status)

	router.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/api/v1/ai/command", s.command)
		r.Post("/api/v1/ai/command/confirm", s.confirm)
		r.Get("/api/v1/ai/suggest-staff/{jobID}", s.suggestStaff)
		r.Get("/api/v1/audit", s.auditList)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the expected token. An
// empty token disables auth, for local development only.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"service":        "siamoon-ai",
		"status":         "ready",
		"pendingActions": s.pipeline.PendingCount(),
	})
}

// command handles POST /api/v1/ai/command
func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid JSON: %v"}`, err), http.StatusBadRequest)
		return
	}
	if req.Text == "" || req.ActorID == "" {
		http.Error(w, `{"error":"text and actorId are required"}`, http.StatusBadRequest)
		return
	}

	resp := s.pipeline.Process(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ConfirmRequest applies a previously surfaced candidate action.
type ConfirmRequest struct {
	ActionID  string `json:"actionId"`
	Override  bool   `json:"override,omitempty"`
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// confirm handles POST /api/v1/ai/command/confirm
func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid JSON: %v"}`, err), http.StatusBadRequest)
		return
	}
	if req.ActionID == "" || req.ActorID == "" {
		http.Error(w, `{"error":"actionId and actorId are required"}`, http.StatusBadRequest)
		return
	}

	resp, err := s.pipeline.ExecuteConfirmed(r.Context(), req.ActionID, req.Override, pipeline.Request{
		ActorID:   req.ActorID,
		ActorName: req.ActorName,
		SessionID: req.SessionID,
		Source:    "api",
	})
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%v"}`, err), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// suggestStaff handles GET /api/v1/ai/suggest-staff/{jobID}
func (s *Server) suggestStaff(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.store.Get(r.Context(), store.CollectionJobs, jobID)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"job %s not found"}`, jobID), http.StatusNotFound)
		return
	}

	suggestions, err := s.staffing.SuggestForJob(r.Context(), job)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"suggest staff: %v"}`, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"jobId":       jobID,
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// auditList handles GET /api/v1/audit
func (s *Server) auditList(w http.ResponseWriter, r *http.Request) {
	q := audit.ListQuery{
		ActorID: r.URL.Query().Get("actor"),
		Limit:   100,
	}

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":"invalid from: %v"}`, err), http.StatusBadRequest)
			return
		}
		q.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":"invalid to: %v"}`, err), http.StatusBadRequest)
			return
		}
		q.To = t
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		q.Limit = limit
	}

	entries, err := s.auditor.List(r.Context(), q)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"list audit: %v"}`, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
