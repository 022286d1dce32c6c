package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoObject is returned when model output contains no JSON object.
var ErrNoObject = errors.New("no JSON object in model output")

// ExtractObject pulls a single JSON object out of freeform model output.
// Models wrap their JSON in code fences or surround it with prose; the
// cleanup is deliberately blunt: drop fence markers, then slice from the
// first '{' to the last '}'.
func ExtractObject(text string) (string, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoObject
	}
	return cleaned[start : end+1], nil
}

// DecodeObject extracts and unmarshals a JSON object from model output.
// If the sliced object does not parse, one jsonrepair pass is attempted
// before the call is counted as a failed evaluation attempt.
func DecodeObject(text string) (map[string]any, error) {
	raw, err := ExtractObject(text)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err == nil {
		return data, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, fmt.Errorf("parse model JSON: %w", repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), &data); err != nil {
		return nil, fmt.Errorf("parse repaired model JSON: %w", err)
	}
	return data, nil
}
