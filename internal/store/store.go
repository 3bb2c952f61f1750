// Package store provides the chat client's local persistence: the wallet
// address carried across sessions and a log of completed mints. It is the
// terminal client's equivalent of a browser's local storage; the server
// itself persists nothing.
package store

import (
	"context"

	"github.com/mintchat/mintchat/internal/nft"
)

// MintRecord is one completed mint.
type MintRecord struct {
	Descriptor nft.Descriptor
	MintedAt   int64 // unix seconds
}

// Repository defines the client-side persistence surface.
type Repository interface {
	// Wallet returns the saved wallet address, or "" when none is saved.
	Wallet(ctx context.Context) (string, error)

	// SaveWallet stores the wallet address, replacing any previous one.
	SaveWallet(ctx context.Context, address string) error

	// RecordMint appends a completed mint to the local log.
	RecordMint(ctx context.Context, d nft.Descriptor) error

	// Mints returns all recorded mints, most recent first.
	Mints(ctx context.Context) ([]MintRecord, error)

	// Close closes the underlying database.
	Close() error
}
