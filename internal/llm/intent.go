package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mintchat/mintchat/internal/session"
)

// IntentDecision is the classifier's judgment on whether the user wants an
// image generated, plus the extracted prompt if so. Prompt is non-empty
// exactly when Generate is true.
type IntentDecision struct {
	Generate bool   `json:"generate"`
	Prompt   string `json:"prompt,omitempty"`
}

// classifierInstruction is prepended as a system message on every
// classification call.
const classifierInstruction = `You are an intent classifier for an art chat. ` +
	`Decide whether the user's latest message asks for an image to be generated. ` +
	`Respond with ONLY a JSON object of the form {"generate": true, "prompt": "<subject to draw>"} ` +
	`or {"generate": false}. No prose, no code fences.`

// Classifier asks the model whether the user wants an image generated.
type Classifier struct {
	client *Client
}

// NewClassifier creates a classifier on top of a completion client.
func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// Classify sends the conversation (role/content only, instruction
// prepended) to the model and parses its output into a decision. Only
// transport/upstream failures are returned as errors; unparseable model
// output degrades to generate:false.
func (c *Classifier) Classify(ctx context.Context, messages []session.Message) (IntentDecision, error) {
	wire := append([]Message{{Role: session.RoleSystem, Content: classifierInstruction}},
		StripDescriptors(messages)...)

	completion, err := c.client.Complete(ctx, wire)
	if err != nil {
		return IntentDecision{}, fmt.Errorf("classify intent: %w", err)
	}

	return ParseIntent(completion.Output), nil
}

// intentParser attempts one parsing strategy; ok is false when the
// strategy does not apply to the text.
type intentParser func(text string) (IntentDecision, bool)

// Ordered from strictest to loosest; the first success wins.
var intentParsers = []intentParser{
	parseStrictJSON,
	parseEmbeddedJSON,
	parseKeywords,
}

// ParseIntent extracts a decision from the model's free-form output. The
// model is not guaranteed to emit strict JSON, so parsing is a layered
// fallback: strict JSON, then a brace-delimited substring, then keyword
// heuristics. ParseIntent never fails; when every strategy comes up empty
// the decision is generate:false.
func ParseIntent(text string) IntentDecision {
	for _, parse := range intentParsers {
		if decision, ok := parse(text); ok {
			return normalize(decision)
		}
	}
	return IntentDecision{Generate: false}
}

// normalize enforces the invariant that Prompt is present iff Generate.
func normalize(d IntentDecision) IntentDecision {
	d.Prompt = strings.TrimSpace(d.Prompt)
	if !d.Generate {
		d.Prompt = ""
	}
	if d.Generate && d.Prompt == "" {
		d.Generate = false
	}
	return d
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// rawDecision distinguishes "generate was absent" from "generate: false".
type rawDecision struct {
	Generate *bool  `json:"generate"`
	Prompt   string `json:"prompt"`
}

func parseStrictJSON(text string) (IntentDecision, bool) {
	cleaned := strings.ReplaceAll(text, `\n`, " ")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	var raw rawDecision
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil || raw.Generate == nil {
		return IntentDecision{}, false
	}
	return IntentDecision{Generate: *raw.Generate, Prompt: raw.Prompt}, true
}

var embeddedObject = regexp.MustCompile(`\{[^{}]*"generate"[^{}]*\}`)

func parseEmbeddedJSON(text string) (IntentDecision, bool) {
	match := embeddedObject.FindString(text)
	if match == "" {
		return IntentDecision{}, false
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(match), &raw); err != nil || raw.Generate == nil {
		return IntentDecision{}, false
	}
	return IntentDecision{Generate: *raw.Generate, Prompt: raw.Prompt}, true
}

var positiveIndicators = []string{
	"generate", "create", "make", "draw", "image", "picture", "yes", "true",
}

var promptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"prompt"\s*:?\s*"([^"]+)"`),
	regexp.MustCompile(`(?i)prompt\s*[:=]\s*"([^"]+)"`),
	regexp.MustCompile(`(?i)prompt\s*[:=]\s*([^,}\n]+)`),
}

func parseKeywords(text string) (IntentDecision, bool) {
	lowered := strings.ToLower(text)

	found := false
	for _, word := range positiveIndicators {
		if strings.Contains(lowered, word) {
			found = true
			break
		}
	}
	if !found {
		return IntentDecision{}, false
	}

	for _, pattern := range promptPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			prompt := strings.TrimSpace(m[1])
			if prompt == "" {
				return IntentDecision{Generate: false}, true
			}
			return IntentDecision{Generate: true, Prompt: prompt}, true
		}
	}

	// Positive indicator without an extractable prompt: stay safe.
	return IntentDecision{Generate: false}, true
}
