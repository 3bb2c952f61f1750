// mintchat - chat-driven image generation and NFT minting server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/mintchat/mintchat/internal/api"
	"github.com/mintchat/mintchat/internal/config"
	"github.com/mintchat/mintchat/internal/imagegen"
	"github.com/mintchat/mintchat/internal/llm"
	"github.com/mintchat/mintchat/internal/middleware"
	"github.com/mintchat/mintchat/internal/mint"
	"github.com/mintchat/mintchat/internal/upstream"
	"github.com/mintchat/mintchat/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "mint_enabled", cfg.Chain.MintEnabled)

	// Initialize upstream clients.
	up := upstream.New(cfg.LLM.Token)
	completer := llm.NewClient(up, cfg.LLM)
	classifier := llm.NewClassifier(completer)
	images := imagegen.New(up, cfg.Image)

	var minter api.Minter
	if cfg.Chain.MintEnabled {
		minter = mint.New(cfg.Chain)
		slog.Info("Minting enabled", "contract", cfg.Chain.ContractAddress, "rpc", cfg.Chain.RPCURL)
	} else {
		slog.Info("Minting disabled (MINT_ENABLED not set)")
	}

	handler := api.NewHandler(completer, classifier, images, minter, cfg.Chain.MintEnabled)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	allowedOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		allowedOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(allowedOrigins))

	handler.RegisterRoutes(r)

	// Serve the embedded chat page for everything else.
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		// Image generation holds the request open across the whole
		// submit-then-poll sequence, so the write timeout must cover the
		// full attempt budget.
		WriteTimeout: time.Duration(cfg.Image.MaxAttempts+5) * cfg.Image.PollInterval,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
