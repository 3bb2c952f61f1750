// mintchat terminal client
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/mintchat/mintchat/internal/nft"
	"github.com/mintchat/mintchat/internal/session"
	"github.com/mintchat/mintchat/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional for the client.
	_ = godotenv.Load()

	serverURL := os.Getenv("MINTCHAT_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	dataDir := os.Getenv("MINTCHAT_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".mintchat")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Log to a file so the alt screen stays clean.
	logFile, err := os.OpenFile(filepath.Join(dataDir, "client.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		defer logFile.Close()
		slog.SetDefault(slog.New(slog.NewJSONHandler(logFile, nil)))
	} else {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}

	repo, err := store.NewSQLite(filepath.Join(dataDir, "client.db"))
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close local store", "error", closeErr)
		}
	}()

	sess := session.New()
	if addr, err := repo.Wallet(context.Background()); err == nil && addr != "" {
		sess.SetNFT(nft.Descriptor{Wallet: addr})
		slog.Info("Restored wallet address from local store")
	}

	slog.Info("Starting chat client",
		"server", serverURL, "session_id", uuid.NewString())

	model := newChatModel(sess, repo, newAPIClient(serverURL))
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run chat UI: %w", err)
	}
	return nil
}
