// Package assessment implements the evaluation pipeline: session
// creation, the per-part submission state machine, final aggregation,
// and the weakness-to-tool recommendation mapping.
package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aditj/okai-catalyst/internal/catalog"
	"github.com/aditj/okai-catalyst/internal/llm"
	"github.com/aditj/okai-catalyst/internal/model"
	"github.com/aditj/okai-catalyst/internal/store"

	"github.com/google/uuid"
)

// DefaultRetention is how long an idle session stays usable. Expired
// sessions are swept opportunistically, not by a background timer.
const DefaultRetention = 24 * time.Hour

// estimatedTime is the advertised duration of a full assessment run.
const estimatedTime = "30-45 minutes"

// Scorer is the generative capability behind all evaluations.
// *llm.Client satisfies it; tests substitute a fake.
type Scorer interface {
	GenerateCaseStudy(ctx context.Context) string
	Evaluate(ctx context.Context, req llm.EvalRequest) (map[string]any, error)
}

// Service drives one assessment session from case-study generation to
// final evaluation.
type Service struct {
	store     *store.Store
	scorer    Scorer
	retention time.Duration
	locks     *sessionLocks
	now       func() time.Time
}

// New creates the assessment service. A zero retention falls back to
// DefaultRetention.
func New(st *store.Store, sc Scorer, retention time.Duration) *Service {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{
		store:     st,
		scorer:    sc,
		retention: retention,
		locks:     newSessionLocks(),
		now:       time.Now,
	}
}

// Assessment is the payload returned when a new session starts.
type Assessment struct {
	CaseStudy     string       `json:"caseStudy"`
	SessionID     string       `json:"sessionId"`
	Parts         []model.Part `json:"parts"`
	TotalParts    int          `json:"totalParts"`
	EstimatedTime string       `json:"estimatedTime"`
}

// Create sweeps expired sessions, generates a case study, and opens a
// new session.
func (s *Service) Create(ctx context.Context) (*Assessment, error) {
	s.Sweep()

	caseStudy := s.scorer.GenerateCaseStudy(ctx)

	now := s.now().UTC()
	sess := model.Session{
		ID:             uuid.NewString(),
		CaseStudy:      caseStudy,
		CompletedParts: []int{},
		TotalQuestions: catalog.TotalQuestions(),
		CreatedAt:      now,
		LastActivity:   now,
	}
	if err := s.store.CreateSession(sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("session created", "session_id", sess.ID, "case_study_len", len(caseStudy))

	return &Assessment{
		CaseStudy:     caseStudy,
		SessionID:     sess.ID,
		Parts:         catalog.Parts(),
		TotalParts:    catalog.Count(),
		EstimatedTime: estimatedTime,
	}, nil
}

// Sweep deletes sessions older than the retention window. It runs at
// session creation and health-check time only.
func (s *Service) Sweep() {
	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.store.DeleteSessionsOlderThan(cutoff)
	if err != nil {
		slog.Error("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("cleaned up expired sessions", "count", n)
	}
}

// Status describes session progress.
type Status struct {
	SessionID      string    `json:"sessionId"`
	CompletedParts []int     `json:"completedParts"`
	CurrentPart    int       `json:"currentPart"`
	IsComplete     bool      `json:"isComplete"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SessionStatus reports the progress of one session.
func (s *Service) SessionStatus(sessionID string) (*Status, error) {
	sess, err := s.activeSession(sessionID)
	if err != nil {
		return nil, err
	}
	return &Status{
		SessionID:      sess.ID,
		CompletedParts: sess.CompletedParts,
		CurrentPart:    catalog.CurrentPart(sess.CompletedParts),
		IsComplete:     len(sess.CompletedParts) >= catalog.Count(),
		CreatedAt:      sess.CreatedAt,
	}, nil
}

// SessionCount returns the number of stored sessions, for the health
// endpoint.
func (s *Service) SessionCount() (int, error) {
	return s.store.SessionCount()
}

// activeSession loads a session, treating both a missing row and one
// past the retention window as not found.
func (s *Service) activeSession(sessionID string) (model.Session, error) {
	sess, err := s.store.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}
	if !sess.CreatedAt.IsZero() && s.now().UTC().Sub(sess.CreatedAt) > s.retention {
		return model.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// markCompleted adds a part to the session's completed set idempotently
// and bumps last activity. Completion marking outranks evaluation
// accuracy: it must succeed even when the evaluation itself degraded.
func (s *Service) markCompleted(sess model.Session, partID int) error {
	if sess.HasCompleted(partID) {
		return s.store.UpdateSessionProgress(sess.ID, sess.CompletedParts, s.now().UTC())
	}
	completed := append(append([]int{}, sess.CompletedParts...), partID)
	return s.store.UpdateSessionProgress(sess.ID, completed, s.now().UTC())
}

// averageOf computes the mean of a score set rounded to one decimal.
func averageOf(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range scores {
		sum += v
	}
	return round1(sum / float64(len(scores)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// uniformScores assigns the same value to every key, for fallback and
// placeholder evaluations.
func uniformScores(keys []string, value float64) map[string]float64 {
	scores := make(map[string]float64, len(keys))
	for _, k := range keys {
		scores[k] = value
	}
	return scores
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
