package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/aditj/okai-catalyst/internal/assessment"
	"github.com/aditj/okai-catalyst/internal/catalog"
	"github.com/aditj/okai-catalyst/internal/llm"
	"github.com/aditj/okai-catalyst/internal/store"
)

type stubScorer struct {
	score    float64
	failEval bool
}

func (s *stubScorer) GenerateCaseStudy(_ context.Context) string {
	return "Case Study: Stub Plant. Defect rates are climbing on line 3."
}

func (s *stubScorer) Evaluate(_ context.Context, req llm.EvalRequest) (map[string]any, error) {
	if s.failEval {
		return nil, errors.New("model unavailable")
	}
	scores := make(map[string]any, len(req.ScoreKeys))
	for _, k := range req.ScoreKeys {
		scores[k] = s.score
	}
	data := map[string]any{req.ScoreField: scores}
	for _, key := range req.RequiredKeys {
		if key == req.ScoreField {
			continue
		}
		if key == "overallPerformance" {
			data[key] = "Good"
			continue
		}
		data[key] = "stub " + key
	}
	if len(req.Audio) > 0 {
		data["transcription"] = "stub transcription"
	}
	return data, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc := assessment.New(st, &stubScorer{score: 7}, 0)
	h := New(svc, st)

	r := chi.NewRouter()
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, st
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body, out any) int {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var a struct {
		SessionID string `json:"sessionId"`
		CaseStudy string `json:"caseStudy"`
	}
	if code := getJSON(t, srv.URL+"/api/generate-multipart-case", &a); code != http.StatusOK {
		t.Fatalf("generate case: status %d", code)
	}
	if a.SessionID == "" {
		t.Fatal("expected a session id")
	}
	return a.SessionID
}

func partAnswers(partID int) map[string]string {
	part, _ := catalog.ByID(partID)
	answers := make(map[string]string, len(part.Questions))
	for _, q := range part.Questions {
		answers[q.ID] = "A reasonable answer for " + q.ID + "."
	}
	return answers
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var health struct {
		Message             string `json:"message"`
		ActiveSessionsCount int    `json:"activeSessionsCount"`
		Version             string `json:"version"`
	}
	if code := getJSON(t, srv.URL+"/", &health); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if health.Message == "" {
		t.Error("expected a health message")
	}
	if health.Version != Version {
		t.Errorf("expected version %q, got %q", Version, health.Version)
	}
	if health.ActiveSessionsCount != 0 {
		t.Errorf("expected 0 sessions, got %d", health.ActiveSessionsCount)
	}
}

func TestGenerateCase(t *testing.T) {
	srv, _ := newTestServer(t)

	var a struct {
		SessionID  string `json:"sessionId"`
		CaseStudy  string `json:"caseStudy"`
		TotalParts int    `json:"totalParts"`
	}
	if code := getJSON(t, srv.URL+"/api/generate-multipart-case", &a); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if a.CaseStudy == "" {
		t.Error("expected a case study")
	}
	if a.TotalParts != catalog.Count() {
		t.Errorf("expected %d parts, got %d", catalog.Count(), a.TotalParts)
	}
}

func TestSubmitPartEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	sessionID := createSession(t, srv)

	var result struct {
		PartID       int                `json:"partId"`
		Scores       map[string]float64 `json:"scores"`
		AverageScore float64            `json:"averageScore"`
		NextPartID   *int               `json:"nextPartId"`
	}
	code := postJSON(t, srv.URL+"/api/submit-part", map[string]any{
		"sessionId": sessionID,
		"partId":    1,
		"responses": partAnswers(1),
	}, &result)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if result.PartID != 1 || result.AverageScore != 7 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.NextPartID == nil || *result.NextPartID != 2 {
		t.Errorf("expected next part 2, got %v", result.NextPartID)
	}

	// Second submission of the same part conflicts.
	code = postJSON(t, srv.URL+"/api/submit-part", map[string]any{
		"sessionId": sessionID,
		"partId":    1,
		"responses": partAnswers(1),
	}, nil)
	if code != http.StatusConflict {
		t.Errorf("expected 409 on duplicate, got %d", code)
	}
}

func TestSubmitPartErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	sessionID := createSession(t, srv)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			name: "unknown session",
			body: map[string]any{"sessionId": "missing", "partId": 1},
			want: http.StatusNotFound,
		},
		{
			name: "invalid part",
			body: map[string]any{"sessionId": sessionID, "partId": 42},
			want: http.StatusBadRequest,
		},
		{
			name: "audio part without audio",
			body: map[string]any{"sessionId": sessionID, "partId": 5},
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp struct {
				Detail string `json:"detail"`
			}
			code := postJSON(t, srv.URL+"/api/submit-part", tt.body, &errResp)
			if code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, code)
			}
			if errResp.Detail == "" {
				t.Error("expected an error detail")
			}
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/submit-part", "application/json", bytes.NewReader([]byte("{not json")))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestFullAssessmentFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	sessionID := createSession(t, srv)

	audio := base64.StdEncoding.EncodeToString([]byte("pretend mp3 bytes"))
	for _, part := range catalog.Parts() {
		body := map[string]any{"sessionId": sessionID, "partId": part.ID}
		if part.IsAudio() {
			body["audioData"] = audio
		} else {
			body["responses"] = partAnswers(part.ID)
		}
		if code := postJSON(t, srv.URL+"/api/submit-part", body, nil); code != http.StatusOK {
			t.Fatalf("submit part %d: status %d", part.ID, code)
		}
	}

	var status struct {
		CompletedParts []int `json:"completedParts"`
		IsComplete     bool  `json:"isComplete"`
	}
	if code := getJSON(t, srv.URL+"/api/session-status/"+sessionID, &status); code != http.StatusOK {
		t.Fatalf("session status: %d", code)
	}
	if !status.IsComplete || len(status.CompletedParts) != catalog.Count() {
		t.Errorf("expected complete session, got %+v", status)
	}

	var final struct {
		AverageScore       float64            `json:"averageScore"`
		OverallScores      map[string]float64 `json:"overallScores"`
		OverallPerformance string             `json:"overallPerformance"`
		TotalQuestions     int                `json:"totalQuestions"`
		ToolRecs           map[string]any     `json:"toolRecommendations"`
	}
	if code := getJSON(t, srv.URL+"/api/final-evaluation/"+sessionID, &final); code != http.StatusOK {
		t.Fatalf("final evaluation: %d", code)
	}
	if final.AverageScore != 7 {
		t.Errorf("expected average 7, got %v", final.AverageScore)
	}
	if final.OverallPerformance != "Good" {
		t.Errorf("expected Good, got %q", final.OverallPerformance)
	}
	if final.TotalQuestions != catalog.TotalQuestions() {
		t.Errorf("expected %d questions, got %d", catalog.TotalQuestions(), final.TotalQuestions)
	}
	if len(final.ToolRecs) == 0 {
		t.Error("expected tool recommendations")
	}

	// The debug endpoint reflects the finished bookkeeping.
	var debug struct {
		CompletedParts  []int `json:"completedParts"`
		EvaluationParts []int `json:"evaluationParts"`
		IsComplete      bool  `json:"isComplete"`
	}
	if code := getJSON(t, srv.URL+"/api/debug/session/"+sessionID, &debug); code != http.StatusOK {
		t.Fatalf("debug session: %d", code)
	}
	if !debug.IsComplete || len(debug.EvaluationParts) != catalog.Count() {
		t.Errorf("unexpected debug payload %+v", debug)
	}
}

func TestSessionStatusNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	if code := getJSON(t, srv.URL+"/api/session-status/missing", nil); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if code := getJSON(t, srv.URL+"/api/final-evaluation/missing", nil); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if code := getJSON(t, srv.URL+"/api/debug/session/missing", nil); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestDashboardEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	sessionID := createSession(t, srv)

	// One part submitted, then finalized, gives the dashboard data to
	// aggregate.
	if code := postJSON(t, srv.URL+"/api/submit-part", map[string]any{
		"sessionId": sessionID,
		"partId":    1,
		"responses": partAnswers(1),
	}, nil); code != http.StatusOK {
		t.Fatalf("submit: %d", code)
	}
	if code := getJSON(t, srv.URL+"/api/final-evaluation/"+sessionID, nil); code != http.StatusOK {
		t.Fatalf("finalize: %d", code)
	}

	var stats struct {
		TotalSessions     int     `json:"totalSessions"`
		CompletedSessions int     `json:"completedSessions"`
		CompletionRate    float64 `json:"completionRate"`
	}
	if code := getJSON(t, srv.URL+"/dashboard/api/stats", &stats); code != http.StatusOK {
		t.Fatalf("stats: %d", code)
	}
	if stats.TotalSessions != 1 || stats.CompletedSessions != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.CompletionRate != 1 {
		t.Errorf("expected completion rate 1, got %v", stats.CompletionRate)
	}

	var sessions []struct {
		SessionID  string `json:"sessionId"`
		IsComplete bool   `json:"isComplete"`
	}
	if code := getJSON(t, srv.URL+"/dashboard/api/sessions", &sessions); code != http.StatusOK {
		t.Fatalf("sessions: %d", code)
	}
	if len(sessions) != 1 || sessions[0].SessionID != sessionID {
		t.Errorf("unexpected session listing %+v", sessions)
	}

	var detail struct {
		Session         map[string]any   `json:"session"`
		Responses       []map[string]any `json:"responses"`
		PartEvaluations []map[string]any `json:"partEvaluations"`
		FinalEvaluation map[string]any   `json:"finalEvaluation"`
	}
	if code := getJSON(t, srv.URL+"/dashboard/api/session/"+sessionID, &detail); code != http.StatusOK {
		t.Fatalf("session detail: %d", code)
	}
	if detail.FinalEvaluation == nil {
		t.Error("expected a final evaluation in the detail payload")
	}
	if len(detail.PartEvaluations) != catalog.Count() {
		t.Errorf("expected %d part evaluations after finalize, got %d", catalog.Count(), len(detail.PartEvaluations))
	}

	if code := getJSON(t, srv.URL+"/dashboard/api/session/missing", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for missing session, got %d", code)
	}
}
