package config

import (
	"errors"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LLM_URL", "http://llm.local/infer")
	t.Setenv("IMAGE_SUBMIT_URL", "http://img.local/submit")
	t.Setenv("IMAGE_STATUS_URL", "http://img.local/status")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("Expected default temperature 0.7, got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 512 {
		t.Errorf("Expected default max tokens 512, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.Image.PollInterval != 2*time.Second {
		t.Errorf("Expected default poll interval 2s, got %v", cfg.Image.PollInterval)
	}
	if cfg.Image.MaxAttempts != 30 {
		t.Errorf("Expected default max attempts 30, got %d", cfg.Image.MaxAttempts)
	}
	if cfg.Chain.MintEnabled {
		t.Error("Expected minting disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_MAX_TOKENS", "1024")
	t.Setenv("IMAGE_POLL_INTERVAL_MS", "50")
	t.Setenv("IMAGE_MAX_ATTEMPTS", "5")
	t.Setenv("MINT_ENABLED", "true")
	t.Setenv("CONTRACT_ADDRESS", "0x1111111111111111111111111111111111111111")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", cfg.Port)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("Expected temperature 0.2, got %v", cfg.LLM.Temperature)
	}
	if cfg.Image.PollInterval != 50*time.Millisecond {
		t.Errorf("Expected poll interval 50ms, got %v", cfg.Image.PollInterval)
	}
	if cfg.Image.MaxAttempts != 5 {
		t.Errorf("Expected max attempts 5, got %d", cfg.Image.MaxAttempts)
	}
	if !cfg.Chain.MintEnabled {
		t.Error("Expected minting enabled")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name      string
		unset     string
		wantField string
	}{
		{name: "missing LLM URL", unset: "LLM_URL", wantField: "LLM_URL"},
		{name: "missing submit URL", unset: "IMAGE_SUBMIT_URL", wantField: "IMAGE_SUBMIT_URL"},
		{name: "missing status URL", unset: "IMAGE_STATUS_URL", wantField: "IMAGE_STATUS_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigurationError, got %T: %v", err, err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Expected field %s, got %s", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_TEMPERATURE", "hot")
	t.Setenv("IMAGE_MAX_ATTEMPTS", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("Expected fallback temperature 0.7, got %v", cfg.LLM.Temperature)
	}
	if cfg.Image.MaxAttempts != 30 {
		t.Errorf("Expected fallback max attempts 30, got %d", cfg.Image.MaxAttempts)
	}
}
