// Package store persists sessions, responses, part evaluations, and
// final evaluations in SQLite. The session row is the root aggregate;
// every child row is keyed by session_id.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aditj/okai-catalyst/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		case_study TEXT NOT NULL,
		completed_parts TEXT NOT NULL DEFAULT '[]',
		total_questions INTEGER NOT NULL DEFAULT 0,
		is_complete INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		last_activity DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS responses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		part_id INTEGER NOT NULL,
		question_id TEXT NOT NULL,
		response_text TEXT NOT NULL DEFAULT '',
		audio_data TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		UNIQUE(session_id, part_id, question_id),
		FOREIGN KEY (session_id) REFERENCES sessions(session_id)
	);

	CREATE TABLE IF NOT EXISTS part_evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		part_id INTEGER NOT NULL,
		scores TEXT NOT NULL,
		feedback TEXT NOT NULL DEFAULT '',
		can_proceed INTEGER NOT NULL DEFAULT 1,
		average_score REAL NOT NULL DEFAULT 0,
		transcription TEXT,
		degraded INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE(session_id, part_id),
		FOREIGN KEY (session_id) REFERENCES sessions(session_id)
	);

	CREATE TABLE IF NOT EXISTS final_evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		overall_scores TEXT NOT NULL,
		detailed_feedback TEXT NOT NULL DEFAULT '',
		overall_performance TEXT NOT NULL DEFAULT '',
		average_score REAL NOT NULL DEFAULT 0,
		completion_minutes INTEGER NOT NULL DEFAULT 0,
		tool_recommendations TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(session_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSession stores a new session row.
func (s *Store) CreateSession(sess model.Session) error {
	completed, err := marshalInts(sess.CompletedParts)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (session_id, case_study, completed_parts, total_questions, is_complete, created_at, last_activity)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.CaseStudy, completed, sess.TotalQuestions, sess.IsComplete, sess.CreatedAt, sess.LastActivity,
	)
	return err
}

// GetSession returns a session by ID. Returns sql.ErrNoRows when missing.
func (s *Store) GetSession(id string) (model.Session, error) {
	var sess model.Session
	var completed string
	err := s.db.QueryRow(
		`SELECT session_id, case_study, completed_parts, total_questions, is_complete, created_at, last_activity
		 FROM sessions WHERE session_id = ?`, id,
	).Scan(&sess.ID, &sess.CaseStudy, &completed, &sess.TotalQuestions, &sess.IsComplete, &sess.CreatedAt, &sess.LastActivity)
	if err != nil {
		return sess, err
	}
	sess.CompletedParts, err = unmarshalInts(completed)
	return sess, err
}

// UpdateSessionProgress writes the completed-part set and bumps the
// last-activity timestamp.
func (s *Store) UpdateSessionProgress(id string, completedParts []int, lastActivity time.Time) error {
	completed, err := marshalInts(completedParts)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE sessions SET completed_parts = ?, last_activity = ? WHERE session_id = ?`,
		completed, lastActivity, id,
	)
	return err
}

// MarkSessionComplete sets the completed set and the is_complete flag.
func (s *Store) MarkSessionComplete(id string, completedParts []int) error {
	completed, err := marshalInts(completedParts)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE sessions SET completed_parts = ?, is_complete = 1 WHERE session_id = ?`,
		completed, id,
	)
	return err
}

// SessionCount returns the number of stored sessions.
func (s *Store) SessionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]model.Session, error) {
	rows, err := s.db.Query(
		`SELECT session_id, case_study, completed_parts, total_questions, is_complete, created_at, last_activity
		 FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var completed string
		if err := rows.Scan(&sess.ID, &sess.CaseStudy, &completed, &sess.TotalQuestions, &sess.IsComplete, &sess.CreatedAt, &sess.LastActivity); err != nil {
			return nil, err
		}
		if sess.CompletedParts, err = unmarshalInts(completed); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DeleteSessionsOlderThan removes sessions created before the cutoff
// along with their responses and evaluations. Returns the number of
// sessions removed.
func (s *Store) DeleteSessionsOlderThan(cutoff time.Time) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, table := range []string{"responses", "part_evaluations", "final_evaluations"} {
		_, err := tx.Exec(
			`DELETE FROM `+table+` WHERE session_id IN (SELECT session_id FROM sessions WHERE created_at < ?)`,
			cutoff,
		)
		if err != nil {
			return 0, err
		}
	}

	res, err := tx.Exec(`DELETE FROM sessions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}

// InsertResponse stores one answer. The (session, part, question) key is
// unique; a second insert for the same question fails.
func (s *Store) InsertResponse(r model.Response) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO responses (session_id, part_id, question_id, response_text, audio_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.PartID, r.QuestionID, r.Text, r.AudioData, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetResponsesForSession returns all responses for a session ordered by
// part then insertion.
func (s *Store) GetResponsesForSession(sessionID string) ([]model.Response, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, part_id, question_id, response_text, audio_data, created_at
		 FROM responses WHERE session_id = ? ORDER BY part_id, id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var responses []model.Response
	for rows.Next() {
		var r model.Response
		if err := rows.Scan(&r.ID, &r.SessionID, &r.PartID, &r.QuestionID, &r.Text, &r.AudioData, &r.CreatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// InsertPartEvaluation stores the scored result for one part. The
// (session, part) key is unique; a duplicate insert fails, which backs
// the already-completed rejection.
func (s *Store) InsertPartEvaluation(e model.PartEvaluation) (int64, error) {
	scores, err := json.Marshal(e.Scores)
	if err != nil {
		return 0, err
	}
	var transcription any
	if e.Transcription != "" {
		transcription = e.Transcription
	}
	res, err := s.db.Exec(
		`INSERT INTO part_evaluations (session_id, part_id, scores, feedback, can_proceed, average_score, transcription, degraded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.PartID, string(scores), e.Feedback, e.CanProceed, e.AverageScore, transcription, e.Degraded, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPartEvaluation returns the evaluation for one part, or nil when the
// part has not been evaluated.
func (s *Store) GetPartEvaluation(sessionID string, partID int) (*model.PartEvaluation, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, part_id, scores, feedback, can_proceed, average_score, transcription, degraded, created_at
		 FROM part_evaluations WHERE session_id = ? AND part_id = ?`, sessionID, partID,
	)
	e, err := scanPartEvaluation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetPartEvaluationsForSession returns all part evaluations ordered by
// part id.
func (s *Store) GetPartEvaluationsForSession(sessionID string) ([]model.PartEvaluation, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, part_id, scores, feedback, can_proceed, average_score, transcription, degraded, created_at
		 FROM part_evaluations WHERE session_id = ? ORDER BY part_id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var evals []model.PartEvaluation
	for rows.Next() {
		e, err := scanPartEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, *e)
	}
	return evals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPartEvaluation(row rowScanner) (*model.PartEvaluation, error) {
	var e model.PartEvaluation
	var scores string
	var transcription sql.NullString
	err := row.Scan(&e.ID, &e.SessionID, &e.PartID, &scores, &e.Feedback, &e.CanProceed, &e.AverageScore, &transcription, &e.Degraded, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(scores), &e.Scores); err != nil {
		return nil, fmt.Errorf("decode scores for part %d: %w", e.PartID, err)
	}
	e.Transcription = transcription.String
	return &e, nil
}

// UpsertFinalEvaluation creates or replaces the final evaluation for a
// session. Finalize is recomputable; a second run overwrites the first.
func (s *Store) UpsertFinalEvaluation(f model.FinalEvaluation) error {
	scores, err := json.Marshal(f.OverallScores)
	if err != nil {
		return err
	}
	recs, err := json.Marshal(f.Recommendations)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO final_evaluations (session_id, overall_scores, detailed_feedback, overall_performance, average_score, completion_minutes, tool_recommendations, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			overall_scores = excluded.overall_scores,
			detailed_feedback = excluded.detailed_feedback,
			overall_performance = excluded.overall_performance,
			average_score = excluded.average_score,
			completion_minutes = excluded.completion_minutes,
			tool_recommendations = excluded.tool_recommendations`,
		f.SessionID, string(scores), f.DetailedFeedback, f.OverallPerformance, f.AverageScore, f.CompletionMinutes, string(recs), time.Now().UTC(),
	)
	return err
}

// GetFinalEvaluation returns the stored final evaluation, or nil when
// finalize has not run for the session.
func (s *Store) GetFinalEvaluation(sessionID string) (*model.FinalEvaluation, error) {
	var f model.FinalEvaluation
	var scores, recs string
	err := s.db.QueryRow(
		`SELECT id, session_id, overall_scores, detailed_feedback, overall_performance, average_score, completion_minutes, tool_recommendations, created_at
		 FROM final_evaluations WHERE session_id = ?`, sessionID,
	).Scan(&f.ID, &f.SessionID, &scores, &f.DetailedFeedback, &f.OverallPerformance, &f.AverageScore, &f.CompletionMinutes, &recs, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(scores), &f.OverallScores); err != nil {
		return nil, fmt.Errorf("decode overall scores: %w", err)
	}
	if err := json.Unmarshal([]byte(recs), &f.Recommendations); err != nil {
		return nil, fmt.Errorf("decode tool recommendations: %w", err)
	}
	return &f, nil
}

// ListFinalEvaluations returns every final evaluation, newest first.
func (s *Store) ListFinalEvaluations() ([]model.FinalEvaluation, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, overall_scores, detailed_feedback, overall_performance, average_score, completion_minutes, tool_recommendations, created_at
		 FROM final_evaluations ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var finals []model.FinalEvaluation
	for rows.Next() {
		var f model.FinalEvaluation
		var scores, recs string
		if err := rows.Scan(&f.ID, &f.SessionID, &scores, &f.DetailedFeedback, &f.OverallPerformance, &f.AverageScore, &f.CompletionMinutes, &recs, &f.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(scores), &f.OverallScores); err != nil {
			return nil, fmt.Errorf("decode overall scores: %w", err)
		}
		if err := json.Unmarshal([]byte(recs), &f.Recommendations); err != nil {
			return nil, fmt.Errorf("decode tool recommendations: %w", err)
		}
		finals = append(finals, f)
	}
	return finals, rows.Err()
}

func marshalInts(v []int) (string, error) {
	if v == nil {
		v = []int{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalInts(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	var v []int
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode completed parts: %w", err)
	}
	return v, nil
}
