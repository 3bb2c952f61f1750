package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mintchat/mintchat/internal/nft"
	"github.com/mintchat/mintchat/internal/session"
)

// apiClient talks to the mintchat server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
	}
}

// chatReply is the server's answer to one conversation turn. Result is
// kept raw: the assistant text is extracted from whichever shape the
// backend returned.
type chatReply struct {
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result"`
	LatestNFT nft.Descriptor  `json:"latestNFT"`
}

// Text extracts the assistant reply from the raw result.
func (r *chatReply) Text() string {
	var typed struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal(r.Result, &typed); err == nil && typed.Output != "" {
		return typed.Output
	}
	return session.ExtractAssistantText(r.Result)
}

// Chat posts the conversation and the session descriptor to /chat.
func (c *apiClient) Chat(ctx context.Context, messages []session.Message, d nft.Descriptor) (*chatReply, error) {
	body := map[string]any{"messages": messages}
	if d != (nft.Descriptor{}) {
		body["nft"] = d
	}

	data, err := c.post(ctx, "/chat", body)
	if err != nil {
		return nil, err
	}

	var reply chatReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("decode chat reply: %w", err)
	}
	return &reply, nil
}

// Mint posts the descriptor to /mint and returns the transaction hash.
func (c *apiClient) Mint(ctx context.Context, d nft.Descriptor) (string, error) {
	data, err := c.post(ctx, "/mint", d)
	if err != nil {
		return "", err
	}

	var reply struct {
		Success bool   `json:"success"`
		TxHash  string `json:"txHash"`
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("decode mint reply: %w", err)
	}
	if !reply.Success || reply.TxHash == "" {
		return "", fmt.Errorf("server did not confirm the mint")
	}
	return reply.TxHash, nil
}

func (c *apiClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reach server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var serverErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &serverErr) == nil && serverErr.Error != "" {
			return nil, fmt.Errorf("%s", serverErr.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	return data, nil
}
