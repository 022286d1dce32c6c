// Package llm wraps the generative scoring model behind an
// OpenAI-compatible API. All evaluation calls go through Evaluate, which
// owns the parse-validate-retry loop; callers supply their own
// deterministic fallback once the retries are exhausted.
package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/aditj/okai-catalyst/internal/llm/prompts"

	openai "github.com/sashabaranov/go-openai"
)

// maxAttempts is the total number of model calls made per evaluation
// before the caller's fallback takes over. Attempts are sequential and
// carry no delay.
const maxAttempts = 3

// minCaseStudyLen rejects truncated case-study generations.
const minCaseStudyLen = 100

// fallbackCaseStudy is served when every generation attempt fails, so a
// session can always be created.
const fallbackCaseStudy = "Case Study: Critical Quality Crisis at Advanced Electronics Manufacturing. " +
	"TechFlow Industries, a 500-employee electronics manufacturer, is experiencing a severe quality crisis " +
	"affecting their primary product line. Over the past 6 weeks, customer returns have increased by 35%, " +
	"with defects ranging from intermittent connection failures (40% of returns) to complete component " +
	"malfunctions (25% of returns). The defects are discovered at various stages: 30% during final testing, " +
	"45% during customer burn-in testing, and 25% in field use within 30 days. This has resulted in " +
	"$2.3M in warranty costs, 15% reduction in production throughput due to increased rework, and " +
	"two major customers threatening to switch suppliers. The manufacturing process involves 12 automated " +
	"assembly stations, 3 manual inspection points, and employs 85 production workers across 3 shifts. " +
	"Recent changes include a new supplier for critical components (implemented 8 weeks ago) and " +
	"upgraded software on 4 assembly machines (implemented 10 weeks ago). Your task is to analyze " +
	"this problem systematically through a structured approach."

// EvalRequest describes one evaluation call: the prompt, an optional
// audio attachment, and the shape the returned JSON must satisfy.
type EvalRequest struct {
	Prompt       string
	Audio        []byte // raw bytes; encoded for transport here
	AudioFormat  string // e.g. "mp3", "wav"
	RequiredKeys []string
	ScoreField   string   // key of the score object, e.g. "scores"
	ScoreKeys    []string // criteria that must appear under ScoreField
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a scoring client against an OpenAI-compatible endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// GenerateCaseStudy produces the manufacturing case study text. It
// retries short or failed generations and, when every attempt fails,
// returns the fixed fallback case so session creation never blocks.
func (c *Client) GenerateCaseStudy(ctx context.Context) string {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := c.complete(ctx, prompts.CaseStudy(), nil, "", false)
		if err != nil {
			slog.Warn("case study generation attempt failed", "attempt", attempt, "error", err)
			continue
		}
		if len(text) < minCaseStudyLen {
			slog.Warn("generated case study too short", "attempt", attempt, "length", len(text))
			continue
		}
		return text
	}
	slog.Error("all case study generation attempts failed, using fallback case")
	return fallbackCaseStudy
}

// Evaluate sends one evaluation prompt (plus optional audio attachment)
// and returns the parsed, validated JSON object. Up to maxAttempts
// independent calls are made; on exhaustion the last error is returned
// and the caller must substitute its deterministic fallback. No state is
// written between attempts.
func (c *Client) Evaluate(ctx context.Context, req EvalRequest) (map[string]any, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := c.complete(ctx, req.Prompt, req.Audio, req.AudioFormat, true)
		if err != nil {
			lastErr = err
			slog.Warn("evaluation attempt failed", "attempt", attempt, "error", err)
			continue
		}

		data, err := DecodeObject(text)
		if err != nil {
			lastErr = err
			slog.Warn("evaluation attempt returned unusable JSON", "attempt", attempt, "error", err)
			continue
		}

		if err := validateEvaluation(data, req); err != nil {
			lastErr = err
			slog.Warn("evaluation attempt failed validation", "attempt", attempt, "error", err)
			continue
		}

		return data, nil
	}
	return nil, fmt.Errorf("evaluation failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) complete(ctx context.Context, prompt string, audio []byte, audioFormat string, wantJSON bool) (string, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(audio) > 0 {
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{
				Type: openai.ChatMessagePartTypeInputAudio,
				InputAudio: &openai.ChatMessageInputAudio{
					Data:   base64.StdEncoding.EncodeToString(audio),
					Format: audioFormat,
				},
			},
		}
	} else {
		msg.Content = prompt
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: 0.3,
	}
	if wantJSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// validateEvaluation checks the parsed object against the request shape
// and coerces every expected score to float64 in place.
func validateEvaluation(data map[string]any, req EvalRequest) error {
	for _, key := range req.RequiredKeys {
		if _, ok := data[key]; !ok {
			return fmt.Errorf("missing required key %q", key)
		}
	}
	if req.ScoreField == "" {
		return nil
	}

	scores, ok := data[req.ScoreField].(map[string]any)
	if !ok {
		return fmt.Errorf("field %q is not a score object", req.ScoreField)
	}
	for _, key := range req.ScoreKeys {
		v, ok := scores[key]
		if !ok {
			return fmt.Errorf("missing score for criterion %q", key)
		}
		f, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("score for %q is not numeric: %v", key, v)
		}
		if f < 1 || f > 10 {
			return fmt.Errorf("score for %q out of range [1,10]: %v", key, f)
		}
		scores[key] = f
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// ScoreMap reads the validated score object under field into a typed map.
func ScoreMap(data map[string]any, field string, keys []string) map[string]float64 {
	out := make(map[string]float64, len(keys))
	obj, _ := data[field].(map[string]any)
	for _, key := range keys {
		if f, ok := asFloat(obj[key]); ok {
			out[key] = f
		}
	}
	return out
}

// StringField reads a top-level string field, empty when absent.
func StringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
