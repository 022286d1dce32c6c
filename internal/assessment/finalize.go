package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/aditj/okai-catalyst/internal/catalog"
	"github.com/aditj/okai-catalyst/internal/llm"
	"github.com/aditj/okai-catalyst/internal/llm/prompts"
	"github.com/aditj/okai-catalyst/internal/model"
)

// placeholderScore is assigned per criterion when finalize has to
// synthesize an evaluation for a part with no data at all.
const placeholderScore = 1.0

// defaultCompletionMinutes is reported when the session's creation
// timestamp is unusable.
const defaultCompletionMinutes = 30

// FinalResult is the complete final-evaluation payload.
type FinalResult struct {
	model.FinalEvaluation
	PartScores     []model.PartSummary `json:"partScores"`
	TotalQuestions int                 `json:"totalQuestions"`
}

// Finalize computes the cross-part aggregate for a session. It never
// permanently blocks once a session exists: stale completion bookkeeping
// is repaired from the stored evaluations, and parts with no data at all
// get a rock-bottom placeholder evaluation. The result is upserted, so a
// second call recomputes and overwrites.
func (s *Service) Finalize(ctx context.Context, sessionID string) (*FinalResult, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.activeSession(sessionID)
	if err != nil {
		return nil, err
	}

	evals, err := s.store.GetPartEvaluationsForSession(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load part evaluations: %w", err)
	}
	responses, err := s.store.GetResponsesForSession(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	evals, responses = s.fillMissingParts(sess, evals, responses)

	if len(sess.CompletedParts) < catalog.Count() {
		// The completed set is a cache over the stored evaluations;
		// recompute it rather than trusting the stale list.
		allParts := make([]int, 0, catalog.Count())
		for _, p := range catalog.Parts() {
			allParts = append(allParts, p.ID)
		}
		if err := s.store.MarkSessionComplete(sess.ID, allParts); err != nil {
			slog.Error("completed-set repair failed", "session_id", sess.ID, "error", err)
		}
		sess.CompletedParts = allParts
	}

	evalByPart := make(map[int]model.PartEvaluation, len(evals))
	for _, e := range evals {
		evalByPart[e.PartID] = e
	}

	// Flat mean over every criterion score ever recorded, not a mean of
	// per-part averages.
	totalScore, totalCriteria := 0.0, 0
	summaries := make([]model.PartSummary, 0, catalog.Count())
	for _, part := range catalog.Parts() {
		e := evalByPart[part.ID]
		for _, v := range e.Scores {
			totalScore += v
			totalCriteria++
		}
		summaries = append(summaries, model.PartSummary{
			PartID:       part.ID,
			Title:        part.Title,
			Scores:       e.Scores,
			AverageScore: e.AverageScore,
			Feedback:     e.Feedback,
		})
	}
	overallAverage := 0.0
	if totalCriteria > 0 {
		overallAverage = round1(totalScore / float64(totalCriteria))
	}

	totalQuestions := sess.TotalQuestions
	if totalQuestions == 0 {
		totalQuestions = catalog.TotalQuestions()
	}

	transcript := buildTranscript(responses, evalByPart)
	overallScores, feedback, performance := s.holisticEvaluation(ctx, sess, totalQuestions, overallAverage, transcript, summaries)

	final := model.FinalEvaluation{
		SessionID:          sess.ID,
		OverallScores:      overallScores,
		DetailedFeedback:   feedback,
		OverallPerformance: performance,
		AverageScore:       overallAverage,
		CompletionMinutes:  s.completionMinutes(sess),
		Recommendations:    Recommend(overallScores, summaries),
	}
	if err := s.store.UpsertFinalEvaluation(final); err != nil {
		return nil, fmt.Errorf("store final evaluation: %w", err)
	}
	slog.Info("session finalized",
		"session_id", sess.ID,
		"average_score", overallAverage,
		"performance", performance,
		"completion_minutes", final.CompletionMinutes,
	)

	return &FinalResult{
		FinalEvaluation: final,
		PartScores:      summaries,
		TotalQuestions:  totalQuestions,
	}, nil
}

// fillMissingParts synthesizes placeholder responses and rock-bottom
// evaluations for parts with no stored evaluation, so the aggregate can
// always be computed. Store failures are logged, not fatal: the
// synthesized records still feed the in-memory aggregation.
func (s *Service) fillMissingParts(sess model.Session, evals []model.PartEvaluation, responses []model.Response) ([]model.PartEvaluation, []model.Response) {
	have := make(map[int]bool, len(evals))
	for _, e := range evals {
		have[e.PartID] = true
	}

	for _, part := range catalog.Parts() {
		if have[part.ID] {
			continue
		}
		slog.Warn("synthesizing placeholder data for missing part", "session_id", sess.ID, "part_id", part.ID)

		if part.IsAudio() {
			r := model.Response{
				SessionID:  sess.ID,
				PartID:     part.ID,
				QuestionID: part.Questions[0].ID,
				Text:       "Audio recording not submitted - technical issue detected",
			}
			if _, err := s.store.InsertResponse(r); err != nil {
				slog.Error("store placeholder response failed", "session_id", sess.ID, "part_id", part.ID, "error", err)
			}
			responses = append(responses, r)
		} else {
			for _, q := range part.Questions {
				r := model.Response{
					SessionID:  sess.ID,
					PartID:     part.ID,
					QuestionID: q.ID,
					Text:       "[No response - technical issue during submission]",
				}
				if _, err := s.store.InsertResponse(r); err != nil {
					slog.Error("store placeholder response failed", "session_id", sess.ID, "part_id", part.ID, "error", err)
				}
				responses = append(responses, r)
			}
		}

		e := model.PartEvaluation{
			SessionID:    sess.ID,
			PartID:       part.ID,
			Scores:       uniformScores(part.RubricKeys(), placeholderScore),
			Feedback:     fmt.Sprintf("Part %d evaluation incomplete due to technical issues. Placeholder scores assigned for final evaluation completion.", part.ID),
			CanProceed:   true,
			AverageScore: placeholderScore,
			Degraded:     true,
		}
		if _, err := s.store.InsertPartEvaluation(e); err != nil {
			slog.Error("store placeholder evaluation failed", "session_id", sess.ID, "part_id", part.ID, "error", err)
		}
		evals = append(evals, e)
	}
	return evals, responses
}

// holisticEvaluation runs the one cross-part model call and applies the
// clamped fallback when it fails.
func (s *Service) holisticEvaluation(ctx context.Context, sess model.Session, totalQuestions int, overallAverage float64, transcript string, summaries []model.PartSummary) (map[string]float64, string, string) {
	skills := model.OverallSkillKeys()
	data, err := s.scorer.Evaluate(ctx, llm.EvalRequest{
		Prompt:       prompts.FinalEvaluation(sess.CaseStudy, totalQuestions, overallAverage, transcript, summaries),
		RequiredKeys: []string{"overallScores", "detailedFeedback", "overallPerformance"},
		ScoreField:   "overallScores",
		ScoreKeys:    skills,
	})
	if err != nil {
		slog.Error("final evaluation degraded to fallback", "session_id", sess.ID, "error", err)
		return fallbackOverallScores(overallAverage), fallbackFinalFeedback(overallAverage), fallbackPerformance(overallAverage)
	}

	return llm.ScoreMap(data, "overallScores", skills),
		llm.StringField(data, "detailedFeedback"),
		llm.StringField(data, "overallPerformance")
}

// fallbackOverallScores derives skill scores from the flat average when
// the holistic call fails: most skills clamp into [5,8], with a slightly
// lower band for systematic_approach and a [5,7] cap for communication.
func fallbackOverallScores(overallAverage float64) map[string]float64 {
	return map[string]float64{
		model.SkillAnalyticalThinking: clamp(overallAverage, 5, 8),
		model.SkillProblemSolving:     clamp(overallAverage, 5, 8),
		model.SkillSystematicApproach: clamp(overallAverage-0.5, 5, 7),
		model.SkillPracticalApp:       clamp(overallAverage, 5, 8),
		model.SkillCommunication:      clamp(overallAverage, 5, 7),
	}
}

func fallbackFinalFeedback(overallAverage float64) string {
	return fmt.Sprintf("You completed all parts of the evaluation including the verbal explanation with an overall "+
		"average of %.1f/10, demonstrating solid problem-solving and communication capabilities. Your systematic "+
		"approach to manufacturing challenges shows good foundational skills. The verbal explanation component added "+
		"valuable insight into your thought process. Continue developing your analytical depth and practical "+
		"application of problem-solving frameworks in real manufacturing environments.", overallAverage)
}

func fallbackPerformance(overallAverage float64) string {
	if overallAverage >= 6.5 {
		return model.PerformanceGood
	}
	return model.PerformanceSatisfactory
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// completionMinutes floors the elapsed wall-clock time since session
// creation to whole minutes, defaulting when the timestamp is unusable.
func (s *Service) completionMinutes(sess model.Session) int {
	if sess.CreatedAt.IsZero() {
		return defaultCompletionMinutes
	}
	minutes := int(s.now().UTC().Sub(sess.CreatedAt).Minutes())
	if minutes < 0 {
		return defaultCompletionMinutes
	}
	return minutes
}

// buildTranscript renders every answer across all parts for the holistic
// prompt, substituting the audio transcription where one exists.
func buildTranscript(responses []model.Response, evalByPart map[int]model.PartEvaluation) string {
	byPart := make(map[int]map[string]string)
	for _, r := range responses {
		if byPart[r.PartID] == nil {
			byPart[r.PartID] = make(map[string]string)
		}
		byPart[r.PartID][r.QuestionID] = r.Text
	}

	var sb strings.Builder
	for _, part := range catalog.Parts() {
		fmt.Fprintf(&sb, "\n--- Part %d: %s ---\n", part.ID, part.Title)
		if part.IsAudio() {
			sb.WriteString("Verbal Explanation: 2-minute audio recording submitted\n")
			transcription := evalByPart[part.ID].Transcription
			if transcription != "" && transcription != "Audio recording submitted" {
				fmt.Fprintf(&sb, "Transcription: %s\n\n", transcription)
			} else {
				sb.WriteString("\n")
			}
			continue
		}
		for _, q := range part.Questions {
			answer := byPart[part.ID][q.ID]
			if answer == "" {
				answer = "No response"
			}
			fmt.Fprintf(&sb, "Q: %s\nA: %s\n\n", q.Text, answer)
		}
	}
	return sb.String()
}
