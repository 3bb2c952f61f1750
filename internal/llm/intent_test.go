package llm

import (
	"testing"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantGen    bool
		wantPrompt string
	}{
		{
			name:       "strict JSON",
			text:       `{"generate": true, "prompt": "red bicycle"}`,
			wantGen:    true,
			wantPrompt: "red bicycle",
		},
		{
			name:    "strict JSON negative",
			text:    `{"generate": false}`,
			wantGen: false,
		},
		{
			name:       "escaped newlines and extra whitespace",
			text:       "{\\n  \"generate\": true,\\n  \"prompt\": \"a calm lake\"\\n}",
			wantGen:    true,
			wantPrompt: "a calm lake",
		},
		{
			name:       "JSON embedded in prose",
			text:       `Sure! Here is my decision: {"generate": true, "prompt": "sunset over mountains"} hope that helps`,
			wantGen:    true,
			wantPrompt: "sunset over mountains",
		},
		{
			name:    "embedded JSON negative",
			text:    `I think {"generate": false} fits here`,
			wantGen: false,
		},
		{
			name:       "keyword heuristic with quoted prompt",
			text:       `Yes, I will generate that. prompt: "a red bicycle"`,
			wantGen:    true,
			wantPrompt: "a red bicycle",
		},
		{
			name:       "keyword heuristic colon-delimited prompt",
			text:       `Let me draw it. prompt: red bicycle at dawn`,
			wantGen:    true,
			wantPrompt: "red bicycle at dawn",
		},
		{
			name:    "keyword without extractable prompt",
			text:    `Yes, I can generate an image for you!`,
			wantGen: false,
		},
		{
			name:    "no indicators at all",
			text:    `The weather in Lisbon is sunny today.`,
			wantGen: false,
		},
		{
			name:    "empty output",
			text:    "",
			wantGen: false,
		},
		{
			name:    "garbage",
			text:    `<<<>>>%%%{{{`,
			wantGen: false,
		},
		{
			name:    "generate true but empty prompt degrades",
			text:    `{"generate": true, "prompt": ""}`,
			wantGen: false,
		},
		{
			name:    "generate true with whitespace prompt degrades",
			text:    `{"generate": true, "prompt": "   "}`,
			wantGen: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseIntent(tt.text)
			if got.Generate != tt.wantGen {
				t.Errorf("ParseIntent(%q).Generate = %v, want %v", tt.text, got.Generate, tt.wantGen)
			}
			if tt.wantGen && got.Prompt != tt.wantPrompt {
				t.Errorf("ParseIntent(%q).Prompt = %q, want %q", tt.text, got.Prompt, tt.wantPrompt)
			}
			if !got.Generate && got.Prompt != "" {
				t.Errorf("Prompt must be empty when Generate is false, got %q", got.Prompt)
			}
		})
	}
}

func TestParseIntentNeverPanics(t *testing.T) {
	inputs := []string{
		`{"generate":`,
		"{{{{}}}}",
		"\x00\x01\x02",
		`{"generate": "maybe"}`,
		`[1, 2, 3]`,
		`null`,
	}
	for _, in := range inputs {
		got := ParseIntent(in)
		if got.Generate {
			t.Errorf("ParseIntent(%q) unexpectedly decided to generate", in)
		}
	}
}
