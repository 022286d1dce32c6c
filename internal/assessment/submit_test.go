package assessment

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/aditj/okai-catalyst/internal/catalog"
	"github.com/aditj/okai-catalyst/internal/llm/prompts"
)

func createSessionForSubmit(t *testing.T, svc *Service) string {
	t.Helper()
	a, err := svc.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a.SessionID
}

func answersForPart(t *testing.T, partID int) map[string]string {
	t.Helper()
	part, ok := catalog.ByID(partID)
	if !ok {
		t.Fatalf("part %d missing from catalog", partID)
	}
	answers := make(map[string]string, len(part.Questions))
	for _, q := range part.Questions {
		answers[q.ID] = "A detailed answer describing the approach for " + q.ID + "."
	}
	return answers
}

func TestSubmitTextPart(t *testing.T) {
	sc := &fakeScorer{score: 7}
	svc := newTestService(t, sc)
	sessionID := createSessionForSubmit(t, svc)

	res, err := svc.SubmitPart(context.Background(), SubmitRequest{
		SessionID: sessionID,
		PartID:    1,
		Responses: answersForPart(t, 1),
	})
	if err != nil {
		t.Fatalf("SubmitPart: %v", err)
	}
	if res.PartID != 1 {
		t.Errorf("expected part 1, got %d", res.PartID)
	}
	if res.AverageScore != 7 {
		t.Errorf("expected average 7, got %v", res.AverageScore)
	}
	if !res.CanProceed {
		t.Error("submissions always unlock the next part")
	}
	if res.Degraded {
		t.Error("successful scoring should not be degraded")
	}
	if res.NextPartID == nil || *res.NextPartID != 2 {
		t.Errorf("expected next part 2, got %v", res.NextPartID)
	}

	// Progress is recorded.
	status, err := svc.SessionStatus(sessionID)
	if err != nil {
		t.Fatalf("SessionStatus: %v", err)
	}
	if len(status.CompletedParts) != 1 || status.CompletedParts[0] != 1 {
		t.Errorf("expected completed [1], got %v", status.CompletedParts)
	}
	if status.CurrentPart != 2 {
		t.Errorf("expected current part 2, got %d", status.CurrentPart)
	}

	// Each answer was stored.
	part, _ := catalog.ByID(1)
	responses, err := svc.store.GetResponsesForSession(sessionID)
	if err != nil {
		t.Fatalf("GetResponsesForSession: %v", err)
	}
	if len(responses) != len(part.Questions) {
		t.Errorf("expected %d stored responses, got %d", len(part.Questions), len(responses))
	}
}

func TestSubmitDuplicatePart(t *testing.T) {
	svc := newTestService(t, &fakeScorer{score: 7})
	sessionID := createSessionForSubmit(t, svc)

	req := SubmitRequest{SessionID: sessionID, PartID: 1, Responses: answersForPart(t, 1)}
	if _, err := svc.SubmitPart(context.Background(), req); err != nil {
		t.Fatalf("first SubmitPart: %v", err)
	}
	if _, err := svc.SubmitPart(context.Background(), req); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestSubmitInvalidPart(t *testing.T) {
	svc := newTestService(t, &fakeScorer{score: 7})
	sessionID := createSessionForSubmit(t, svc)

	for _, partID := range []int{0, 6, -1, 99} {
		if _, err := svc.SubmitPart(context.Background(), SubmitRequest{SessionID: sessionID, PartID: partID}); !errors.Is(err, ErrInvalidPart) {
			t.Errorf("part %d: expected ErrInvalidPart, got %v", partID, err)
		}
	}
}

func TestSubmitUnknownSession(t *testing.T) {
	svc := newTestService(t, &fakeScorer{score: 7})
	_, err := svc.SubmitPart(context.Background(), SubmitRequest{SessionID: "missing", PartID: 1})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSubmitBlankAnswersSynthesized(t *testing.T) {
	svc := newTestService(t, &fakeScorer{score: 5})
	sessionID := createSessionForSubmit(t, svc)

	// Whitespace-only and missing answers both count as blank.
	part, _ := catalog.ByID(1)
	responses := map[string]string{part.Questions[0].ID: "   "}

	if _, err := svc.SubmitPart(context.Background(), SubmitRequest{
		SessionID: sessionID,
		PartID:    1,
		Responses: responses,
	}); err != nil {
		t.Fatalf("SubmitPart: %v", err)
	}

	stored, err := svc.store.GetResponsesForSession(sessionID)
	if err != nil {
		t.Fatalf("GetResponsesForSession: %v", err)
	}
	if len(stored) != len(part.Questions) {
		t.Fatalf("expected %d responses, got %d", len(part.Questions), len(stored))
	}
	for _, r := range stored {
		if !strings.HasPrefix(r.Text, prompts.BlankAnswerPrefix) {
			t.Errorf("expected synthesized placeholder for %s, got %q", r.QuestionID, r.Text)
		}
	}
}

func TestSubmitTextFallback(t *testing.T) {
	svc := newTestService(t, &fakeScorer{failEval: true})
	sessionID := createSessionForSubmit(t, svc)

	res, err := svc.SubmitPart(context.Background(), SubmitRequest{
		SessionID: sessionID,
		PartID:    1,
		Responses: answersForPart(t, 1),
	})
	if err != nil {
		t.Fatalf("SubmitPart should degrade, not fail: %v", err)
	}
	if !res.Degraded {
		t.Error("expected degraded evaluation")
	}
	if res.AverageScore != textFallbackScore {
		t.Errorf("expected fallback average %v, got %v", textFallbackScore, res.AverageScore)
	}
	part, _ := catalog.ByID(1)
	for _, key := range part.RubricKeys() {
		if res.Scores[key] != textFallbackScore {
			t.Errorf("criterion %q: expected %v, got %v", key, textFallbackScore, res.Scores[key])
		}
	}
	if !res.CanProceed {
		t.Error("fallback must still unlock the next part")
	}

	// The part counts as completed despite the degraded scoring.
	status, err := svc.SessionStatus(sessionID)
	if err != nil {
		t.Fatalf("SessionStatus: %v", err)
	}
	if len(status.CompletedParts) != 1 {
		t.Errorf("expected part marked completed, got %v", status.CompletedParts)
	}
}

func TestSubmitAudioPart(t *testing.T) {
	sc := &fakeScorer{score: 8}
	svc := newTestService(t, sc)
	sessionID := createSessionForSubmit(t, svc)

	audio := base64.StdEncoding.EncodeToString([]byte("pretend mp3 bytes"))
	res, err := svc.SubmitPart(context.Background(), SubmitRequest{
		SessionID: sessionID,
		PartID:    5,
		AudioData: audio,
	})
	if err != nil {
		t.Fatalf("SubmitPart: %v", err)
	}
	if res.Transcription == "" {
		t.Error("expected a transcription on the audio part")
	}
	if res.NextPartID != nil {
		t.Errorf("last part should have no next part, got %v", *res.NextPartID)
	}
	if res.AverageScore != 8 {
		t.Errorf("expected average 8, got %v", res.AverageScore)
	}
}

func TestSubmitAudioMissing(t *testing.T) {
	svc := newTestService(t, &fakeScorer{score: 8})
	sessionID := createSessionForSubmit(t, svc)

	for _, audio := range []string{"", "   ", "not-base64!!!"} {
		_, err := svc.SubmitPart(context.Background(), SubmitRequest{
			SessionID: sessionID,
			PartID:    5,
			AudioData: audio,
		})
		if !errors.Is(err, ErrMissingAudio) {
			t.Errorf("audio %q: expected ErrMissingAudio, got %v", audio, err)
		}
	}
}

func TestSubmitAudioFallback(t *testing.T) {
	svc := newTestService(t, &fakeScorer{failEval: true})
	sessionID := createSessionForSubmit(t, svc)

	audio := base64.StdEncoding.EncodeToString([]byte("pretend mp3 bytes"))
	res, err := svc.SubmitPart(context.Background(), SubmitRequest{
		SessionID: sessionID,
		PartID:    5,
		AudioData: audio,
	})
	if err != nil {
		t.Fatalf("SubmitPart should degrade, not fail: %v", err)
	}
	if !res.Degraded {
		t.Error("expected degraded evaluation")
	}
	if res.AverageScore != audioFallbackScore {
		t.Errorf("expected fallback average %v, got %v", audioFallbackScore, res.AverageScore)
	}
	if res.Transcription != fallbackTranscription {
		t.Errorf("expected fallback transcription, got %q", res.Transcription)
	}
}

func TestPlaceholderAnswerTruncatesQuestion(t *testing.T) {
	part, _ := catalog.ByID(1)
	q := part.Questions[0]
	got := placeholderAnswer(q)
	if !strings.HasPrefix(got, prompts.BlankAnswerPrefix) {
		t.Errorf("placeholder missing prefix: %q", got)
	}
	if !strings.HasSuffix(got, "...]") {
		t.Errorf("placeholder missing suffix: %q", got)
	}
}
