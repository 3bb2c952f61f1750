// Package imagegen submits image generation jobs to the hosted diffusion
// endpoint and polls them to a terminal state.
package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mintchat/mintchat/internal/config"
	"github.com/mintchat/mintchat/internal/upstream"
)

// Job states reported by the status endpoint. Anything else is treated as
// transient and polled again.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailed  = "failed"
)

// ErrMalformedResult means the upstream reported success without a result
// URL. That is a contract violation by the service, not a retryable
// condition.
var ErrMalformedResult = errors.New("generation succeeded but no image URL was returned")

// ErrPollTimeout means the attempt budget ran out before the job reached a
// terminal state. The budget exists because a crashed upstream worker may
// never terminate the job, and the caller must not block indefinitely.
var ErrPollTimeout = errors.New("image generation timed out")

// SubmissionError reports a failed job submission.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("image job submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// GenerationFailedError reports a job that reached the failed state.
type GenerationFailedError struct {
	Message string
}

func (e *GenerationFailedError) Error() string {
	if e.Message == "" {
		return "image generation failed"
	}
	return "image generation failed: " + e.Message
}

// Client submits and polls image generation jobs. Polling is strictly
// sequential per call; there are never concurrent polls for one request id.
type Client struct {
	up          *upstream.Client
	submitURL   string
	statusURL   string
	guidance    float64
	width       int
	height      int
	steps       int
	interval    time.Duration
	maxAttempts int
}

// New creates a client from the image configuration.
func New(up *upstream.Client, cfg config.ImageConfig) *Client {
	return &Client{
		up:          up,
		submitURL:   cfg.SubmitURL,
		statusURL:   cfg.StatusURL,
		guidance:    cfg.Guidance,
		width:       cfg.Width,
		height:      cfg.Height,
		steps:       cfg.Steps,
		interval:    cfg.PollInterval,
		maxAttempts: cfg.MaxAttempts,
	}
}

type submitRequest struct {
	Input submitInput `json:"input"`
}

type submitInput struct {
	Prompt        string  `json:"prompt"`
	GuidanceScale float64 `json:"guidance_scale"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Steps         int     `json:"num_inference_steps"`
}

type submitEnvelope struct {
	Body struct {
		InferRequests []struct {
			RequestID string `json:"request_id"`
		} `json:"infer_requests"`
	} `json:"body"`
}

type statusResponse struct {
	State  string `json:"state"`
	Output struct {
		ImageURL string `json:"image_url"`
	} `json:"output"`
	ErrorMessage string `json:"error_message"`
}

// Submit posts a generation job and returns its opaque request id.
func (c *Client) Submit(ctx context.Context, prompt string) (string, error) {
	req := submitRequest{
		Input: submitInput{
			Prompt:        prompt,
			GuidanceScale: c.guidance,
			Width:         c.width,
			Height:        c.height,
			Steps:         c.steps,
		},
	}

	data, err := c.up.PostJSON(ctx, c.submitURL, req)
	if err != nil {
		return "", &SubmissionError{Err: err}
	}

	var envelope submitEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", &SubmissionError{Err: fmt.Errorf("decode submit envelope: %w", err)}
	}
	if len(envelope.Body.InferRequests) == 0 || envelope.Body.InferRequests[0].RequestID == "" {
		return "", &SubmissionError{Err: errors.New("no request id in submit response")}
	}

	return envelope.Body.InferRequests[0].RequestID, nil
}

// PollUntilTerminal polls the status endpoint once per interval until the
// job reaches success or failed, or the attempt budget is exhausted. On
// success it returns the image URL.
func (c *Client) PollUntilTerminal(ctx context.Context, requestID string) (string, error) {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}

		data, err := c.up.GetJSON(ctx, c.statusEndpoint(requestID))
		if err != nil {
			return "", fmt.Errorf("poll status: %w", err)
		}

		var status statusResponse
		if err := json.Unmarshal(data, &status); err != nil {
			return "", fmt.Errorf("decode status response: %w", err)
		}

		switch status.State {
		case StateSuccess:
			if status.Output.ImageURL == "" {
				return "", ErrMalformedResult
			}
			return status.Output.ImageURL, nil
		case StateFailed:
			return "", &GenerationFailedError{Message: status.ErrorMessage}
		default:
			// pending, processing, absent: transient, keep polling
		}

		timer.Reset(c.interval)
	}

	return "", ErrPollTimeout
}

// Generate runs the full submit-then-poll sequence for one prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	requestID, err := c.Submit(ctx, prompt)
	if err != nil {
		return "", err
	}
	return c.PollUntilTerminal(ctx, requestID)
}

func (c *Client) statusEndpoint(requestID string) string {
	return strings.TrimSuffix(c.statusURL, "/") + "/" + requestID
}
