package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mintchat/mintchat/internal/llm"
	"github.com/mintchat/mintchat/internal/nft"
	"github.com/mintchat/mintchat/internal/session"
	"github.com/mintchat/mintchat/internal/wallet"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Messages []session.Message `json:"messages"`
	NFT      *nft.Descriptor   `json:"nft,omitempty"`
}

// ChatResult carries the assistant output plus the input echo from the
// completion endpoint.
type ChatResult struct {
	Output string          `json:"output"`
	Input  json.RawMessage `json:"input,omitempty"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Success   bool           `json:"success"`
	Result    ChatResult     `json:"result"`
	LatestNFT nft.Descriptor `json:"latestNFT"`
}

// HandleChat runs one conversation turn: wallet detection on the latest
// user message, intent classification, then either image generation or a
// plain completion. The whole sequence runs inside this request; there is
// no background job store.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		Error(w, http.StatusBadRequest, "messages are required")
		return
	}

	descriptor := nft.Descriptor{}
	if req.NFT != nil {
		descriptor = *req.NFT
	}

	latest := req.Messages[len(req.Messages)-1]
	if addr, ok := wallet.Extract(latest.Content); ok {
		descriptor.Wallet = addr
	}

	ctx := r.Context()

	decision, err := h.classifier.Classify(ctx, req.Messages)
	if err != nil {
		slog.Error("Intent classification failed", "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "failed to reach the model", err.Error())
		return
	}

	if decision.Generate {
		h.handleGeneration(ctx, w, decision, descriptor)
		return
	}

	if wantsMint(latest.Content) && !nft.Mintable(descriptor) {
		// Soft guidance rather than a structured error: the user asked to
		// mint through conversation, so the answer is conversational too.
		// The dedicated /mint endpoint stays strict.
		JSON(w, http.StatusOK, ChatResponse{
			Success:   true,
			Result:    ChatResult{Output: mintGuidance(descriptor)},
			LatestNFT: descriptor,
		})
		return
	}

	completion, err := h.completer.Complete(ctx, llm.StripDescriptors(req.Messages))
	if err != nil {
		slog.Error("Completion failed", "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "failed to reach the model", err.Error())
		return
	}

	JSON(w, http.StatusOK, ChatResponse{
		Success:   true,
		Result:    ChatResult{Output: completion.Output, Input: completion.Input},
		LatestNFT: descriptor,
	})
}

func (h *Handler) handleGeneration(ctx context.Context, w http.ResponseWriter, decision llm.IntentDecision, descriptor nft.Descriptor) {
	imageURL, err := h.images.Generate(ctx, decision.Prompt)
	if err != nil {
		slog.Error("Image generation failed", "prompt", decision.Prompt, "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "image generation failed", err.Error())
		return
	}

	descriptor.Image = imageURL
	descriptor.Prompt = decision.Prompt

	output := fmt.Sprintf("Here is your image for %q: %s", decision.Prompt, imageURL)
	if descriptor.Wallet == "" {
		output += "\n\nShare your wallet address if you'd like to mint it as an NFT."
	}

	JSON(w, http.StatusOK, ChatResponse{
		Success:   true,
		Result:    ChatResult{Output: output},
		LatestNFT: descriptor,
	})
}

func wantsMint(text string) bool {
	return strings.Contains(strings.ToLower(text), "mint")
}

func mintGuidance(d nft.Descriptor) string {
	missing := nft.Missing(d)
	return "Almost there! Before I can mint, I still need: " + strings.Join(missing, ", ") +
		". Generate an image and share a wallet address, and we're good to go."
}
