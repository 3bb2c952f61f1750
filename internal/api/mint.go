package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mintchat/mintchat/internal/config"
	"github.com/mintchat/mintchat/internal/mint"
	"github.com/mintchat/mintchat/internal/nft"
)

// MintResponse is the body of a successful POST /mint.
type MintResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash"`
}

// HandleMint mints the posted descriptor. Unlike the chat path, this
// endpoint is strict: incomplete descriptors are rejected with 400.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	if !h.mintEnabled || h.minter == nil {
		Error(w, http.StatusBadRequest, "minting is not enabled on this server")
		return
	}

	var descriptor nft.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&descriptor); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !nft.Mintable(descriptor) {
		Error(w, http.StatusBadRequest, "descriptor is not mintable: image, prompt, and a valid wallet address are required")
		return
	}

	txHash, err := h.minter.Mint(r.Context(), descriptor)
	if err != nil {
		h.writeMintError(w, err)
		return
	}

	slog.Info("Mint confirmed", "tx_hash", txHash, "wallet", descriptor.Wallet)
	JSON(w, http.StatusOK, MintResponse{Success: true, TxHash: txHash})
}

// writeMintError maps mint failures onto the response contract: validation
// problems are 4xx, everything else 5xx with the original message attached.
func (h *Handler) writeMintError(w http.ResponseWriter, err error) {
	var cfgErr *config.ConfigurationError

	switch {
	case errors.Is(err, mint.ErrNotMintable):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cfgErr):
		slog.Error("Mint misconfigured", "field", cfgErr.Field)
		ErrorWithDetails(w, http.StatusInternalServerError, "minting is misconfigured", cfgErr.Error())
	case errors.Is(err, mint.ErrCredential):
		slog.Error("Mint credential failure", "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "could not unlock the minting credential", err.Error())
	case errors.Is(err, mint.ErrInsufficientBalance):
		slog.Error("Mint balance failure", "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "the minting account has no funds for transaction fees", err.Error())
	default:
		slog.Error("Mint failed", "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "mint transaction failed", err.Error())
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// HandleHealth reports service liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "mintchat",
	})
}
