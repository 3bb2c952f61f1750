// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is built once at startup
// and passed into components at construction time; nothing reads the
// environment after Load returns.
type Config struct {
	Port        string
	FrontendURL string
	LLM         LLMConfig
	Image       ImageConfig
	Chain       ChainConfig
}

// LLMConfig holds the completion endpoint settings.
type LLMConfig struct {
	URL         string
	Token       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// ImageConfig holds the image generation endpoint and polling settings.
type ImageConfig struct {
	SubmitURL    string
	StatusURL    string
	Guidance     float64
	Width        int
	Height       int
	Steps        int
	PollInterval time.Duration
	MaxAttempts  int
}

// ChainConfig holds the minting settings. When MintEnabled is false the
// remaining fields are not validated and the mint endpoint is disabled.
type ChainConfig struct {
	RPCURL             string
	ContractAddress    string
	ContractABI        string // inline JSON, or @path to a file
	KeystorePath       string
	KeystorePassphrase string
	MintEnabled        bool
}

// ConfigurationError reports a missing required setting.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Field)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		LLM: LLMConfig{
			URL:         getEnv("LLM_URL", ""),
			Token:       getEnv("LLM_TOKEN", ""),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			TopP:        getEnvFloat("LLM_TOP_P", 0.9),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 512),
		},
		Image: ImageConfig{
			SubmitURL:    getEnv("IMAGE_SUBMIT_URL", ""),
			StatusURL:    getEnv("IMAGE_STATUS_URL", ""),
			Guidance:     getEnvFloat("IMAGE_GUIDANCE", 7.5),
			Width:        getEnvInt("IMAGE_WIDTH", 1024),
			Height:       getEnvInt("IMAGE_HEIGHT", 1024),
			Steps:        getEnvInt("IMAGE_STEPS", 30),
			PollInterval: time.Duration(getEnvInt("IMAGE_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
			MaxAttempts:  getEnvInt("IMAGE_MAX_ATTEMPTS", 30),
		},
		Chain: ChainConfig{
			RPCURL:             getEnv("CHAIN_RPC_URL", ""),
			ContractAddress:    getEnv("CONTRACT_ADDRESS", ""),
			ContractABI:        getEnv("CONTRACT_ABI", ""),
			KeystorePath:       getEnv("KEYSTORE_PATH", ""),
			KeystorePassphrase: getEnv("KEYSTORE_PASSPHRASE", ""),
			MintEnabled:        getEnvBool("MINT_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return &ConfigurationError{Field: "PORT"}
	}
	if c.LLM.URL == "" {
		return &ConfigurationError{Field: "LLM_URL"}
	}
	if c.Image.SubmitURL == "" {
		return &ConfigurationError{Field: "IMAGE_SUBMIT_URL"}
	}
	if c.Image.StatusURL == "" {
		return &ConfigurationError{Field: "IMAGE_STATUS_URL"}
	}
	if c.Image.PollInterval <= 0 {
		return fmt.Errorf("IMAGE_POLL_INTERVAL_MS must be > 0")
	}
	if c.Image.MaxAttempts <= 0 {
		return fmt.Errorf("IMAGE_MAX_ATTEMPTS must be > 0")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
