package assessment

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aditj/okai-catalyst/internal/catalog"
	"github.com/aditj/okai-catalyst/internal/llm"
	"github.com/aditj/okai-catalyst/internal/llm/prompts"
	"github.com/aditj/okai-catalyst/internal/model"
)

// Deterministic fallback scores used when the scoring model fails after
// all retries. Text parts get a neutral 5.0; the audio part gets a
// low-confidence 2.0 because nothing of the recording could be assessed.
const (
	textFallbackScore  = 5.0
	audioFallbackScore = 2.0
)

const textFallbackFeedback = "Your submission has been received. Some questions may not have been fully answered, " +
	"which affects the evaluation. Please ensure you provide detailed responses to all questions for the best assessment. " +
	"You may continue to the next part."

const audioFallbackFeedback = "Thank you for completing the verbal explanation. Your audio submission has been received " +
	"and evaluated. The recording demonstrates your engagement with the problem-solving process. To improve future " +
	"presentations, focus on clearly articulating your analytical approach, connecting insights across different parts " +
	"of your analysis, and speaking with confidence about your manufacturing knowledge."

const fallbackTranscription = "Audio processing unavailable - technical evaluation used"

// SubmitRequest is one part submission.
type SubmitRequest struct {
	SessionID string            `json:"sessionId"`
	PartID    int               `json:"partId"`
	Responses map[string]string `json:"responses"`
	AudioData string            `json:"audioData,omitempty"` // base64, audio part only
}

// SubmitResult is the evaluation returned to the client, with the next
// part to unlock when one remains.
type SubmitResult struct {
	model.PartEvaluation
	NextPartID *int `json:"nextPartId,omitempty"`
}

// SubmitPart evaluates one part submission. Preconditions are checked in
// order: session, part, no prior evaluation, audio present for the audio
// part. Past those, the submission never hard-fails on scoring problems:
// the model call degrades to a deterministic fallback, and the part is
// marked completed even when evaluation storage itself breaks, so the
// session can always reach a final evaluation.
func (s *Service) SubmitPart(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	unlock := s.locks.lock(req.SessionID)
	defer unlock()

	sess, err := s.activeSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	part, ok := catalog.ByID(req.PartID)
	if !ok {
		return nil, ErrInvalidPart
	}

	existing, err := s.store.GetPartEvaluation(sess.ID, part.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing evaluation: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyCompleted
	}

	var eval *model.PartEvaluation
	if part.IsAudio() {
		eval, err = s.evaluateAudioPart(ctx, sess, part, req.AudioData)
	} else {
		eval, err = s.evaluateTextPart(ctx, sess, part, req.Responses)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.store.InsertPartEvaluation(*eval); err != nil {
		// Completion still wins: mark the part done so finalize is never
		// blocked by this failure, then report the error.
		if markErr := s.markCompleted(sess, part.ID); markErr != nil {
			slog.Error("emergency completion marking failed", "session_id", sess.ID, "part_id", part.ID, "error", markErr)
		} else {
			slog.Warn("emergency completion marking after evaluation store failure", "session_id", sess.ID, "part_id", part.ID)
		}
		return nil, fmt.Errorf("store part evaluation: %w", err)
	}

	if err := s.markCompleted(sess, part.ID); err != nil {
		slog.Error("completion marking failed", "session_id", sess.ID, "part_id", part.ID, "error", err)
	}

	result := &SubmitResult{PartEvaluation: *eval}
	if part.ID < catalog.Count() {
		next := part.ID + 1
		result.NextPartID = &next
	}
	slog.Info("part submitted",
		"session_id", sess.ID,
		"part_id", part.ID,
		"average_score", eval.AverageScore,
		"degraded", eval.Degraded,
	)
	return result, nil
}

// evaluateTextPart stores one response per question (synthesizing a
// placeholder for blank answers) and scores the part against its rubric.
func (s *Service) evaluateTextPart(ctx context.Context, sess model.Session, part model.Part, responses map[string]string) (*model.PartEvaluation, error) {
	answers := make(map[string]string, len(part.Questions))
	for _, q := range part.Questions {
		text := strings.TrimSpace(responses[q.ID])
		if text == "" {
			text = placeholderAnswer(q)
		}
		answers[q.ID] = text

		if _, err := s.store.InsertResponse(model.Response{
			SessionID:  sess.ID,
			PartID:     part.ID,
			QuestionID: q.ID,
			Text:       text,
		}); err != nil {
			slog.Error("store response failed", "session_id", sess.ID, "question_id", q.ID, "error", err)
		}
	}

	keys := part.RubricKeys()
	data, err := s.scorer.Evaluate(ctx, llm.EvalRequest{
		Prompt:       prompts.PartEvaluation(sess.CaseStudy, part, answers),
		RequiredKeys: []string{"scores", "feedback"},
		ScoreField:   "scores",
		ScoreKeys:    keys,
	})
	if err != nil {
		slog.Error("text evaluation degraded to fallback", "session_id", sess.ID, "part_id", part.ID, "error", err)
		return s.newEvaluation(sess, part, uniformScores(keys, textFallbackScore), textFallbackFeedback, "", true), nil
	}

	return s.newEvaluation(sess, part, llm.ScoreMap(data, "scores", keys), llm.StringField(data, "feedback"), "", false), nil
}

// evaluateAudioPart stores a placeholder response for the recording and
// scores the decoded audio against the four communication criteria.
func (s *Service) evaluateAudioPart(ctx context.Context, sess model.Session, part model.Part, audioData string) (*model.PartEvaluation, error) {
	audioData = strings.TrimSpace(audioData)
	if audioData == "" {
		return nil, ErrMissingAudio
	}
	audio, err := base64.StdEncoding.DecodeString(audioData)
	if err != nil || len(audio) == 0 {
		return nil, ErrMissingAudio
	}

	question := part.Questions[0]
	if _, err := s.store.InsertResponse(model.Response{
		SessionID:  sess.ID,
		PartID:     part.ID,
		QuestionID: question.ID,
		Text:       "Audio recording submitted",
		AudioData:  audioData,
	}); err != nil {
		slog.Error("store audio response failed", "session_id", sess.ID, "error", err)
	}

	keys := part.RubricKeys()
	data, err := s.scorer.Evaluate(ctx, llm.EvalRequest{
		Prompt:       prompts.AudioEvaluation(sess.CaseStudy, part),
		Audio:        audio,
		AudioFormat:  "mp3",
		RequiredKeys: []string{"scores", "feedback"},
		ScoreField:   "scores",
		ScoreKeys:    keys,
	})
	if err != nil {
		slog.Error("audio evaluation degraded to fallback", "session_id", sess.ID, "error", err)
		return s.newEvaluation(sess, part, uniformScores(keys, audioFallbackScore), audioFallbackFeedback, fallbackTranscription, true), nil
	}

	transcription := llm.StringField(data, "transcription")
	if transcription == "" {
		transcription = "Transcription not available"
	}
	return s.newEvaluation(sess, part, llm.ScoreMap(data, "scores", keys), llm.StringField(data, "feedback"), transcription, false), nil
}

func (s *Service) newEvaluation(sess model.Session, part model.Part, scores map[string]float64, feedback, transcription string, degraded bool) *model.PartEvaluation {
	return &model.PartEvaluation{
		SessionID:     sess.ID,
		PartID:        part.ID,
		Scores:        scores,
		Feedback:      feedback,
		CanProceed:    true, // passing threshold is defined but never enforced
		AverageScore:  averageOf(scores),
		Transcription: transcription,
		Degraded:      degraded,
	}
}

// placeholderAnswer synthesizes the stand-in text for a blank answer.
// Blank answers are never rejected; the scoring prompt tells the model
// how to grade the marker.
func placeholderAnswer(q model.Question) string {
	return fmt.Sprintf("%s %s...]", prompts.BlankAnswerPrefix, truncate(q.Text, 100))
}
