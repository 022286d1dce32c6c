package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aditj/okai-catalyst/internal/catalog"
	"github.com/aditj/okai-catalyst/internal/model"
)

// Dashboard endpoints serve aggregate JSON for an analytics frontend.
// They read the store directly; nothing here mutates a session.

type dashboardStats struct {
	TotalSessions           int                `json:"totalSessions"`
	CompletedSessions       int                `json:"completedSessions"`
	CompletionRate          float64            `json:"completionRate"`
	AverageFinalScore       float64            `json:"averageFinalScore"`
	PerformanceDistribution map[string]int     `json:"performanceDistribution"`
	AverageSkillScores      map[string]float64 `json:"averageSkillScores"`
}

func (h *Handler) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		writeError(w, err)
		return
	}
	finals, err := h.store.ListFinalEvaluations()
	if err != nil {
		writeError(w, err)
		return
	}

	stats := dashboardStats{
		TotalSessions:           len(sessions),
		PerformanceDistribution: make(map[string]int),
		AverageSkillScores:      make(map[string]float64),
	}
	for _, s := range sessions {
		if s.IsComplete || len(s.CompletedParts) >= catalog.Count() {
			stats.CompletedSessions++
		}
	}
	if stats.TotalSessions > 0 {
		stats.CompletionRate = float64(stats.CompletedSessions) / float64(stats.TotalSessions)
	}

	if len(finals) > 0 {
		scoreSum := 0.0
		skillSums := make(map[string]float64)
		for _, f := range finals {
			scoreSum += f.AverageScore
			stats.PerformanceDistribution[f.OverallPerformance]++
			for skill, score := range f.OverallScores {
				skillSums[skill] += score
			}
		}
		stats.AverageFinalScore = scoreSum / float64(len(finals))
		for skill, sum := range skillSums {
			stats.AverageSkillScores[skill] = sum / float64(len(finals))
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

type dashboardSession struct {
	SessionID       string    `json:"sessionId"`
	CreatedAt       time.Time `json:"createdAt"`
	LastActivity    time.Time `json:"lastActivity"`
	IsComplete      bool      `json:"isComplete"`
	CompletedParts  int       `json:"completedPartsCount"`
	DurationMinutes int       `json:"durationMinutes"`
	Performance     string    `json:"overallPerformance,omitempty"`
	AverageScore    *float64  `json:"averageScore,omitempty"`
}

func (h *Handler) handleDashboardSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		writeError(w, err)
		return
	}
	finals, err := h.store.ListFinalEvaluations()
	if err != nil {
		writeError(w, err)
		return
	}
	finalBySession := make(map[string]model.FinalEvaluation, len(finals))
	for _, f := range finals {
		finalBySession[f.SessionID] = f
	}

	out := make([]dashboardSession, 0, len(sessions))
	for _, s := range sessions {
		d := dashboardSession{
			SessionID:       s.ID,
			CreatedAt:       s.CreatedAt,
			LastActivity:    s.LastActivity,
			IsComplete:      s.IsComplete,
			CompletedParts:  len(s.CompletedParts),
			DurationMinutes: int(s.LastActivity.Sub(s.CreatedAt).Minutes()),
		}
		if f, ok := finalBySession[s.ID]; ok {
			d.Performance = f.OverallPerformance
			avg := f.AverageScore
			d.AverageScore = &avg
		}
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDashboardSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.store.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	responses, err := h.store.GetResponsesForSession(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	evaluations, err := h.store.GetPartEvaluationsForSession(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	final, err := h.store.GetFinalEvaluation(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":         sess,
		"responses":       responses,
		"partEvaluations": evaluations,
		"finalEvaluation": final,
	})
}

type debugSessionResponse struct {
	SessionID       string    `json:"sessionId"`
	CompletedParts  []int     `json:"completedParts"`
	TotalParts      int       `json:"totalParts"`
	CurrentPart     int       `json:"currentPart"`
	IsComplete      bool      `json:"isComplete"`
	CreatedAt       time.Time `json:"createdAt"`
	LastActivity    time.Time `json:"lastActivity"`
	ResponseCount   int       `json:"responseCount"`
	EvaluationCount int       `json:"evaluationCount"`
	ResponseParts   []int     `json:"responseParts"`
	EvaluationParts []int     `json:"evaluationParts"`
}

// handleDebugSession exposes the raw bookkeeping for one session so
// completed-set drift can be diagnosed against the stored rows.
func (h *Handler) handleDebugSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.store.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	responses, err := h.store.GetResponsesForSession(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	evaluations, err := h.store.GetPartEvaluationsForSession(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	responseParts := make([]int, 0)
	seen := make(map[int]bool)
	for _, resp := range responses {
		if !seen[resp.PartID] {
			seen[resp.PartID] = true
			responseParts = append(responseParts, resp.PartID)
		}
	}
	evaluationParts := make([]int, 0, len(evaluations))
	for _, e := range evaluations {
		evaluationParts = append(evaluationParts, e.PartID)
	}

	writeJSON(w, http.StatusOK, debugSessionResponse{
		SessionID:       sess.ID,
		CompletedParts:  sess.CompletedParts,
		TotalParts:      catalog.Count(),
		CurrentPart:     catalog.CurrentPart(sess.CompletedParts),
		IsComplete:      len(sess.CompletedParts) >= catalog.Count(),
		CreatedAt:       sess.CreatedAt,
		LastActivity:    sess.LastActivity,
		ResponseCount:   len(responses),
		EvaluationCount: len(evaluations),
		ResponseParts:   responseParts,
		EvaluationParts: evaluationParts,
	})
}
