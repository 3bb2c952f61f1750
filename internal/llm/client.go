// Package llm bridges conversations to the hosted completion endpoint and
// derives image-generation intent from the model's free-form output.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mintchat/mintchat/internal/config"
	"github.com/mintchat/mintchat/internal/session"
	"github.com/mintchat/mintchat/internal/upstream"
)

// Message is the role/content pair sent to the model. Attached NFT
// descriptors never cross this boundary.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the model's reply plus the input echo the endpoint returns.
type Completion struct {
	Output string
	Input  json.RawMessage
}

// Client talks to the completion endpoint.
type Client struct {
	up          *upstream.Client
	url         string
	temperature float64
	topP        float64
	maxTokens   int
}

// NewClient creates a completion client from the LLM configuration.
func NewClient(up *upstream.Client, cfg config.LLMConfig) *Client {
	return &Client{
		up:          up,
		url:         cfg.URL,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
	}
}

type completionRequest struct {
	Input completionInput `json:"input"`
}

type completionInput struct {
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
}

type completionEnvelope struct {
	Body struct {
		InferRequests []struct {
			Output string          `json:"output"`
			Input  json.RawMessage `json:"input"`
		} `json:"infer_requests"`
	} `json:"body"`
}

// Complete sends the conversation to the model and unwraps its reply.
func (c *Client) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	req := completionRequest{
		Input: completionInput{
			MaxTokens:   c.maxTokens,
			Messages:    messages,
			Stream:      false,
			Temperature: c.temperature,
			TopP:        c.topP,
		},
	}

	data, err := c.up.PostJSON(ctx, c.url, req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}

	var envelope completionEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode completion envelope: %w", err)
	}
	if len(envelope.Body.InferRequests) == 0 {
		return nil, fmt.Errorf("completion envelope contains no infer_requests")
	}

	first := envelope.Body.InferRequests[0]
	return &Completion{Output: first.Output, Input: first.Input}, nil
}

// StripDescriptors converts conversation messages to the wire form the
// model sees: role and content only. Descriptors attached to prior
// messages must never leak into the model's context.
func StripDescriptors(messages []session.Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = Message{Role: m.Role, Content: m.Content}
	}
	return out
}
