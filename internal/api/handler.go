// Package api provides HTTP handlers for the mintchat API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mintchat/mintchat/internal/imagegen"
	"github.com/mintchat/mintchat/internal/llm"
	"github.com/mintchat/mintchat/internal/nft"
)

// Minter executes a mint and returns the confirmed transaction hash.
type Minter interface {
	Mint(ctx context.Context, d nft.Descriptor) (string, error)
}

// Handler serves the chat, mint, and health endpoints. It owns no state
// across requests; every call is independently stateless.
type Handler struct {
	completer   *llm.Client
	classifier  *llm.Classifier
	images      *imagegen.Client
	minter      Minter
	mintEnabled bool
}

// NewHandler creates a Handler with its upstream collaborators. minter may
// be nil when minting is disabled.
func NewHandler(completer *llm.Client, classifier *llm.Classifier, images *imagegen.Client, minter Minter, mintEnabled bool) *Handler {
	return &Handler{
		completer:   completer,
		classifier:  classifier,
		images:      images,
		minter:      minter,
		mintEnabled: mintEnabled,
	}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleChat)
	r.Post("/mint", h.HandleMint)
	r.Get("/health", h.HandleHealth)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ErrorWithDetails writes a JSON error response with diagnostic detail.
func ErrorWithDetails(w http.ResponseWriter, status int, message, details string) {
	JSON(w, status, map[string]string{"error": message, "details": details})
}
