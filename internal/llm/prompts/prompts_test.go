package prompts

import (
	"strings"
	"testing"

	"github.com/aditj/okai-catalyst/internal/catalog"
	"github.com/aditj/okai-catalyst/internal/model"
)

func TestCaseStudyPrompt(t *testing.T) {
	p := CaseStudy()
	for _, want := range []string{
		"manufacturing case study",
		"Do NOT state or hint at the root cause",
		"Your task is to analyze this problem systematically",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("case study prompt missing %q", want)
		}
	}
}

func TestPartEvaluationPrompt(t *testing.T) {
	part, ok := catalog.ByID(1)
	if !ok {
		t.Fatal("part 1 missing from catalog")
	}
	answers := map[string]string{
		part.Questions[0].ID: "The defect rate doubled after the supplier change.",
	}
	p := PartEvaluation("ACME is losing units to solder defects.", part, answers)

	if !strings.Contains(p, "ACME is losing units to solder defects.") {
		t.Error("prompt missing case study")
	}
	if !strings.Contains(p, part.Questions[0].Text) {
		t.Error("prompt missing question text")
	}
	if !strings.Contains(p, "The defect rate doubled after the supplier change.") {
		t.Error("prompt missing student answer")
	}
	// Unanswered questions fall back to "No response".
	if len(part.Questions) > 1 && !strings.Contains(p, "No response") {
		t.Error("prompt missing placeholder for unanswered question")
	}
	// Every rubric key must appear in the requested JSON format.
	for _, key := range part.RubricKeys() {
		if !strings.Contains(p, `"`+key+`"`) {
			t.Errorf("prompt missing rubric key %q in JSON format", key)
		}
	}
	if !strings.Contains(p, BlankAnswerPrefix) {
		t.Error("prompt missing blank-answer guidance")
	}
	if !strings.Contains(p, "Respond only with valid JSON.") {
		t.Error("prompt missing JSON-only instruction")
	}
}

func TestAudioEvaluationPrompt(t *testing.T) {
	part, ok := catalog.ByID(5)
	if !ok {
		t.Fatal("part 5 missing from catalog")
	}
	if !part.IsAudio() {
		t.Fatal("part 5 should be the audio part")
	}
	p := AudioEvaluation("Case text here.", part)

	if !strings.Contains(p, "transcription") {
		t.Error("prompt missing transcription request")
	}
	for _, key := range part.RubricKeys() {
		if !strings.Contains(p, key) {
			t.Errorf("prompt missing criterion %q", key)
		}
	}
}

func TestFinalEvaluationPrompt(t *testing.T) {
	summaries := []model.PartSummary{
		{PartID: 1, Title: "Problem Analysis", Scores: map[string]float64{"clarity": 7}, AverageScore: 7, Feedback: "good"},
	}
	p := FinalEvaluation("Case text.", 13, 6.8, "--- Part 1 ---\nQ: a\nA: b\n", summaries)

	for _, want := range []string{
		"Total Questions Answered: 13",
		"Overall Average Score: 6.8/10",
		"Problem Analysis",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("final prompt missing %q", want)
		}
	}
	for _, skill := range model.OverallSkillKeys() {
		if !strings.Contains(p, skill) {
			t.Errorf("final prompt missing skill %q", skill)
		}
	}
	for _, tier := range []string{"Excellent", "Good", "Satisfactory", "Needs Improvement"} {
		if !strings.Contains(p, tier) {
			t.Errorf("final prompt missing tier %q", tier)
		}
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"data_focus", "Data Focus"},
		{"clarity", "Clarity"},
		{"root_cause_depth", "Root Cause Depth"},
	}
	for _, tt := range tests {
		if got := titleCase(tt.in); got != tt.want {
			t.Errorf("titleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
