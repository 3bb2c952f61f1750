package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mintchat/mintchat/internal/config"
	"github.com/mintchat/mintchat/internal/upstream"
)

// fakeImageService serves a fixed sequence of status responses after a
// successful submission.
type fakeImageService struct {
	statuses  []string // raw JSON bodies served in order; last one repeats
	submits   int
	polls     int
	requestID string
}

func (f *fakeImageService) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			f.submits++
			body := fmt.Sprintf(`{"body":{"infer_requests":[{"request_id":"%s"}]}}`, f.requestID)
			if _, err := w.Write([]byte(body)); err != nil {
				t.Errorf("Failed to write submit response: %v", err)
			}
		case r.Method == http.MethodGet:
			if !strings.HasSuffix(r.URL.Path, "/"+f.requestID) {
				t.Errorf("Status poll for unexpected request id: %s", r.URL.Path)
			}
			idx := f.polls
			if idx >= len(f.statuses) {
				idx = len(f.statuses) - 1
			}
			f.polls++
			if _, err := w.Write([]byte(f.statuses[idx])); err != nil {
				t.Errorf("Failed to write status response: %v", err)
			}
		}
	}
}

func newTestClient(t *testing.T, svc *fakeImageService, maxAttempts int) *Client {
	t.Helper()
	if svc.requestID == "" {
		svc.requestID = "req-123"
	}
	srv := httptest.NewServer(svc.handler(t))
	t.Cleanup(srv.Close)

	return New(upstream.New(""), config.ImageConfig{
		SubmitURL:    srv.URL + "/submit",
		StatusURL:    srv.URL + "/status",
		Guidance:     7.5,
		Width:        512,
		Height:       512,
		Steps:        20,
		PollInterval: time.Millisecond,
		MaxAttempts:  maxAttempts,
	})
}

func TestGenerateAfterPendingPolls(t *testing.T) {
	pending := `{"state":"pending"}`
	success := `{"state":"success","output":{"image_url":"https://img/1.png"}}`
	svc := &fakeImageService{statuses: []string{pending, pending, success}}

	client := newTestClient(t, svc, 30)
	url, err := client.Generate(context.Background(), "red bicycle")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if url != "https://img/1.png" {
		t.Errorf("Expected success URL, got %q", url)
	}
	if svc.submits != 1 {
		t.Errorf("Expected exactly one submission, got %d", svc.submits)
	}
	// Two pending responses then success: exactly N+1 = 3 status checks.
	if svc.polls != 3 {
		t.Errorf("Expected exactly 3 status checks, got %d", svc.polls)
	}
}

func TestPollTimeoutAfterMaxAttempts(t *testing.T) {
	svc := &fakeImageService{statuses: []string{`{"state":"pending"}`}}

	client := newTestClient(t, svc, 5)
	_, err := client.Generate(context.Background(), "red bicycle")

	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("Expected ErrPollTimeout, got %v", err)
	}
	if svc.polls != 5 {
		t.Errorf("Expected exactly 5 status checks, got %d", svc.polls)
	}
}

func TestFailedStateIsTerminal(t *testing.T) {
	svc := &fakeImageService{statuses: []string{
		`{"state":"pending"}`,
		`{"state":"failed","error_message":"NSFW content detected"}`,
	}}

	client := newTestClient(t, svc, 30)
	_, err := client.Generate(context.Background(), "red bicycle")

	var genErr *GenerationFailedError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected GenerationFailedError, got %v", err)
	}
	if genErr.Message != "NSFW content detected" {
		t.Errorf("Expected upstream error message, got %q", genErr.Message)
	}
	if svc.polls != 2 {
		t.Errorf("Expected polling to stop at the failed state, got %d polls", svc.polls)
	}
}

func TestSuccessWithoutURLIsMalformed(t *testing.T) {
	svc := &fakeImageService{statuses: []string{`{"state":"success"}`}}

	client := newTestClient(t, svc, 30)
	_, err := client.Generate(context.Background(), "red bicycle")

	if !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("Expected ErrMalformedResult, got %v", err)
	}
	if svc.polls != 1 {
		t.Errorf("Malformed success must not be retried, got %d polls", svc.polls)
	}
}

func TestUnknownStatesAreTransient(t *testing.T) {
	svc := &fakeImageService{statuses: []string{
		`{"state":"queued"}`,
		`{"state":"processing"}`,
		`{}`,
		`{"state":"success","output":{"image_url":"https://img/2.png"}}`,
	}}

	client := newTestClient(t, svc, 30)
	url, err := client.Generate(context.Background(), "red bicycle")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if url != "https://img/2.png" {
		t.Errorf("Expected success URL, got %q", url)
	}
	if svc.polls != 4 {
		t.Errorf("Expected 4 status checks, got %d", svc.polls)
	}
}

func TestSubmitFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	client := New(upstream.New(""), config.ImageConfig{
		SubmitURL:    srv.URL + "/submit",
		StatusURL:    srv.URL + "/status",
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
	})

	_, err := client.Submit(context.Background(), "red bicycle")

	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("Expected SubmissionError, got %v", err)
	}
	var upErr *upstream.UpstreamError
	if !errors.As(err, &upErr) || upErr.Status != http.StatusTooManyRequests {
		t.Errorf("Expected wrapped UpstreamError with status 429, got %v", err)
	}
}

func TestSubmitWithoutRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{"body":{"infer_requests":[]}}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	client := New(upstream.New(""), config.ImageConfig{
		SubmitURL:    srv.URL,
		StatusURL:    srv.URL,
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
	})

	var subErr *SubmissionError
	if _, err := client.Submit(context.Background(), "x"); !errors.As(err, &subErr) {
		t.Fatalf("Expected SubmissionError, got %v", err)
	}
}

func TestPollHonorsContextCancellation(t *testing.T) {
	svc := &fakeImageService{statuses: []string{`{"state":"pending"}`}}
	client := newTestClient(t, svc, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.PollUntilTerminal(ctx, "req-123")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestSubmitSendsStyleParameters(t *testing.T) {
	var got submitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode submit body: %v", err)
		}
		if _, err := w.Write([]byte(`{"body":{"infer_requests":[{"request_id":"r1"}]}}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	client := New(upstream.New(""), config.ImageConfig{
		SubmitURL:    srv.URL,
		StatusURL:    srv.URL,
		Guidance:     9.0,
		Width:        768,
		Height:       512,
		Steps:        25,
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
	})

	if _, err := client.Submit(context.Background(), "red bicycle"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	in := got.Input
	if in.Prompt != "red bicycle" || in.GuidanceScale != 9.0 || in.Width != 768 || in.Height != 512 || in.Steps != 25 {
		t.Errorf("Style parameters not forwarded: %+v", in)
	}
}
