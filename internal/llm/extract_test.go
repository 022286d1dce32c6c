package llm

import (
	"errors"
	"testing"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"scores": {"clarity": 7}}`,
			want:  `{"scores": {"clarity": 7}}`,
		},
		{
			name:  "fenced json block",
			input: "```json\n{\"feedback\": \"good\"}\n```",
			want:  `{"feedback": "good"}`,
		},
		{
			name:  "plain fence",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "surrounded by prose",
			input: "Here is my evaluation:\n{\"a\": 1}\nHope that helps!",
			want:  `{"a": 1}`,
		},
		{
			name:  "nested braces slice to outermost",
			input: "prefix {\"outer\": {\"inner\": 2}} suffix",
			want:  `{"outer": {"inner": 2}}`,
		},
		{
			name:    "no object at all",
			input:   "I could not evaluate this response.",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "close before open",
			input:   "} oops {",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrNoObject) {
					t.Fatalf("expected ErrNoObject, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractObject: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeObject(t *testing.T) {
	t.Run("valid json", func(t *testing.T) {
		data, err := DecodeObject(`{"scores": {"clarity": 7.5}, "feedback": "solid"}`)
		if err != nil {
			t.Fatalf("DecodeObject: %v", err)
		}
		if data["feedback"] != "solid" {
			t.Errorf("unexpected feedback %v", data["feedback"])
		}
	})

	t.Run("repairable json", func(t *testing.T) {
		// Trailing comma and single quotes are common model mistakes.
		data, err := DecodeObject(`{'feedback': 'ok', 'scores': {'clarity': 6,},}`)
		if err != nil {
			t.Fatalf("DecodeObject with repair: %v", err)
		}
		if data["feedback"] != "ok" {
			t.Errorf("unexpected feedback %v", data["feedback"])
		}
	})

	t.Run("no object", func(t *testing.T) {
		if _, err := DecodeObject("nothing here"); !errors.Is(err, ErrNoObject) {
			t.Errorf("expected ErrNoObject, got %v", err)
		}
	})
}
