// Package handler exposes the assessment pipeline as a JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aditj/okai-catalyst/internal/assessment"
	"github.com/aditj/okai-catalyst/internal/store"
)

// Version is reported by the health endpoint.
const Version = "2.0.0"

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc   *assessment.Service
	store *store.Store
}

// New creates a new Handler.
func New(svc *assessment.Service, st *store.Store) *Handler {
	return &Handler{svc: svc, store: st}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleHealth)
	r.Get("/api/generate-multipart-case", h.handleGenerateCase)
	r.Post("/api/submit-part", h.handleSubmitPart)
	r.Get("/api/session-status/{sessionID}", h.handleSessionStatus)
	r.Get("/api/final-evaluation/{sessionID}", h.handleFinalEvaluation)
	r.Get("/api/debug/session/{sessionID}", h.handleDebugSession)
	r.Route("/dashboard/api", func(r chi.Router) {
		r.Get("/stats", h.handleDashboardStats)
		r.Get("/sessions", h.handleDashboardSessions)
		r.Get("/session/{sessionID}", h.handleDashboardSession)
	})
}

type healthResponse struct {
	Message             string `json:"message"`
	ActiveSessionsCount int    `json:"activeSessionsCount"`
	Version             string `json:"version"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.svc.Sweep()

	count, err := h.svc.SessionCount()
	if err != nil {
		slog.Error("count sessions", "error", err)
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Message:             "Catalyst backend is running!",
		ActiveSessionsCount: count,
		Version:             Version,
	})
}

func (h *Handler) handleGenerateCase(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleSubmitPart(w http.ResponseWriter, r *http.Request) {
	var req assessment.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.svc.SubmitPart(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.SessionStatus(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleFinalEvaluation(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Finalize(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// writeError maps pipeline rejections onto HTTP statuses: missing
// session 404, conflict 409, bad input 400, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, assessment.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, assessment.ErrAlreadyCompleted):
		status = http.StatusConflict
	case errors.Is(err, assessment.ErrInvalidPart), errors.Is(err, assessment.ErrMissingAudio):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Detail: err.Error()})
}
