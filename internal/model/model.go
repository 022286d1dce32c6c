package model

import (
	"sort"
	"time"
)

// QuestionType distinguishes free-text questions from recorded-audio ones.
type QuestionType string

const (
	QuestionText  QuestionType = "text"
	QuestionAudio QuestionType = "audio"
)

// Question is one prompt inside an evaluation part.
type Question struct {
	ID           string       `json:"id"`
	Text         string       `json:"question"`
	Type         QuestionType `json:"type"`
	MinLength    int          `json:"minLength,omitempty"`
	Duration     int          `json:"duration,omitempty"` // seconds, audio questions only
	Instructions string       `json:"instructions,omitempty"`
}

// Part is one stage of the assessment: a title, its questions, and the
// rubric criteria the scoring model grades against (1-10 each).
type Part struct {
	ID           int               `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Questions    []Question        `json:"questions"`
	Rubrics      map[string]string `json:"rubrics"`
	PassingScore float64           `json:"passingScore"`
}

// RubricKeys returns the part's rubric criterion keys in a stable order.
func (p Part) RubricKeys() []string {
	keys := make([]string, 0, len(p.Rubrics))
	for k := range p.Rubrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsAudio reports whether the part is answered by an audio recording.
func (p Part) IsAudio() bool {
	return len(p.Questions) > 0 && p.Questions[0].Type == QuestionAudio
}

// Session is one end-to-end assessment attempt.
type Session struct {
	ID             string    `json:"sessionId"`
	CaseStudy      string    `json:"caseStudy"`
	CompletedParts []int     `json:"completedParts"`
	TotalQuestions int       `json:"totalQuestions"`
	IsComplete     bool      `json:"isComplete"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivity   time.Time `json:"lastActivity"`
}

// HasCompleted reports whether a part id is already in the completed set.
func (s Session) HasCompleted(partID int) bool {
	for _, id := range s.CompletedParts {
		if id == partID {
			return true
		}
	}
	return false
}

// Response is one stored answer, keyed by (session, part, question).
type Response struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"sessionId"`
	PartID     int       `json:"partId"`
	QuestionID string    `json:"questionId"`
	Text       string    `json:"responseText"`
	AudioData  string    `json:"-"` // base64, audio part only
	CreatedAt  time.Time `json:"createdAt"`
}

// PartEvaluation is the scored result of one part submission. Created
// exactly once per (session, part). Degraded marks a deterministic
// fallback used after the scoring model failed.
type PartEvaluation struct {
	ID            int64              `json:"-"`
	SessionID     string             `json:"-"`
	PartID        int                `json:"partId"`
	Scores        map[string]float64 `json:"scores"`
	Feedback      string             `json:"feedback"`
	CanProceed    bool               `json:"canProceed"`
	AverageScore  float64            `json:"averageScore"`
	Transcription string             `json:"transcription,omitempty"`
	Degraded      bool               `json:"-"`
	CreatedAt     time.Time          `json:"-"`
}

// FinalEvaluation is the cross-part aggregate, recomputable and upserted
// per session.
type FinalEvaluation struct {
	ID                 int64                         `json:"-"`
	SessionID          string                        `json:"sessionId"`
	OverallScores      map[string]float64            `json:"overallScores"`
	DetailedFeedback   string                        `json:"detailedFeedback"`
	OverallPerformance string                        `json:"overallPerformance"`
	AverageScore       float64                       `json:"averageScore"`
	CompletionMinutes  int                           `json:"completionTimeMinutes"`
	Recommendations    map[string]ToolRecommendation `json:"toolRecommendations"`
	CreatedAt          time.Time                     `json:"-"`
}

// ToolRecommendation points a weak skill area at one quality-management
// methodology from the fixed knowledge base.
type ToolRecommendation struct {
	Reason          string `json:"reason"`
	SpecificBenefit string `json:"specific_benefit"`
	Priority        string `json:"priority"`
}

// Performance tier labels assigned by the final evaluation.
const (
	PerformanceExcellent    = "Excellent"
	PerformanceGood         = "Good"
	PerformanceSatisfactory = "Satisfactory"
	PerformanceNeedsWork    = "Needs Improvement"
)

// The five skill dimensions scored by the holistic final evaluation.
const (
	SkillAnalyticalThinking = "analytical_thinking"
	SkillProblemSolving     = "problem_solving"
	SkillSystematicApproach = "systematic_approach"
	SkillPracticalApp       = "practical_application"
	SkillCommunication      = "communication_skills"
)

// OverallSkillKeys lists the final-evaluation skill dimensions in their
// canonical order.
func OverallSkillKeys() []string {
	return []string{
		SkillAnalyticalThinking,
		SkillProblemSolving,
		SkillSystematicApproach,
		SkillPracticalApp,
		SkillCommunication,
	}
}

// PartSummary is the per-part slice of a final evaluation response.
type PartSummary struct {
	PartID       int                `json:"partId"`
	Title        string             `json:"title"`
	Scores       map[string]float64 `json:"scores"`
	AverageScore float64            `json:"averageScore"`
	Feedback     string             `json:"feedback"`
}
