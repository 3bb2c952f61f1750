// Package nft defines the token descriptor attached to chat messages and
// the self-contained metadata encoding used at mint time.
package nft

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/mintchat/mintchat/internal/wallet"
)

// Descriptor tracks an image through its lifecycle: Image and Prompt are
// populated together when generation succeeds, Wallet when an address is
// detected or edited, and Hash exactly once after a confirmed mint.
type Descriptor struct {
	Image  string `json:"image,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	Wallet string `json:"wallet,omitempty"`
	Hash   string `json:"hash,omitempty"`
}

// Mintable reports whether d carries everything a mint needs: an image, the
// prompt that produced it, and a format-valid wallet address. Used by the
// client to gate the mint action and by the orchestrator to reject
// incomplete requests before touching the network.
func Mintable(d Descriptor) bool {
	return d.Image != "" && d.Prompt != "" && wallet.Valid(d.Wallet)
}

// Missing lists the descriptor fields still required before d is mintable.
func Missing(d Descriptor) []string {
	var missing []string
	if d.Image == "" {
		missing = append(missing, "image")
	}
	if d.Prompt == "" {
		missing = append(missing, "prompt")
	}
	if !wallet.Valid(d.Wallet) {
		missing = append(missing, "wallet address")
	}
	return missing
}

type metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// MetadataURI encodes the descriptor's metadata JSON as a
// data:application/json;base64 URI so the token is self-contained on-chain,
// trading higher transaction cost for permanence.
func MetadataURI(d Descriptor) string {
	m := metadata{
		Name:        metadataName(d.Prompt),
		Description: "AI-generated artwork for the prompt: " + d.Prompt,
		Image:       d.Image,
	}
	// Marshal cannot fail for a struct of plain strings.
	payload, _ := json.Marshal(m)
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(payload)
}

const maxNameLen = 64

func metadataName(prompt string) string {
	name := strings.TrimSpace(prompt)
	if name == "" {
		return "Untitled"
	}
	if len(name) > maxNameLen {
		name = strings.TrimSpace(name[:maxNameLen])
	}
	return name
}
