package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Defaults mirror the original tool's flag defaults.
const (
	DefaultBaseURL         = "https://api.mistral.ai/v1"
	DefaultOCRModel        = "mistral-ocr-latest"
	DefaultStructuredModel = "pixtral-12b-latest"
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = 2 * time.Second
	DefaultChunkCount      = 100
	DefaultConcurrency     = 4
)

// Config carries everything a single document conversion needs. It is
// built once in main and passed down; no package-level mutable state.
type Config struct {
	APIKey          string
	BaseURL         string
	OCRModel        string
	StructuredModel string

	// MaxRetries is the per-call attempt budget for remote operations.
	MaxRetries int
	// RetryDelay is the initial backoff delay; it doubles per retry.
	RetryDelay time.Duration

	// Split enables chunked processing of multi-page PDFs.
	Split bool
	// ChunkCount is the requested number of chunks when splitting.
	ChunkCount int
	// Concurrency bounds how many chunk calls may be in flight at once.
	Concurrency int

	// Structured requests the second extraction pass over the OCR output.
	Structured bool

	// KeepPartials writes already-succeeded chunk outputs to PartialDir
	// when a later chunk fails terminally. Off by default: the merged
	// document is all-or-nothing.
	KeepPartials bool
	PartialDir   string
}

// Default returns a Config carrying the stock defaults, with credentials
// and endpoint taken from the environment.
func Default() Config {
	cfg := Config{
		OCRModel:        DefaultOCRModel,
		StructuredModel: DefaultStructuredModel,
		MaxRetries:      DefaultMaxRetries,
		RetryDelay:      DefaultRetryDelay,
		ChunkCount:      DefaultChunkCount,
		Concurrency:     DefaultConcurrency,
	}
	cfg.FromEnv()
	return cfg
}

// FromEnv fills credential and endpoint fields that were not set
// explicitly from the conventional environment variables.
func (c *Config) FromEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("MISTRAL_API_KEY")
	}
	if c.BaseURL == "" {
		c.BaseURL = os.Getenv("MISTRAL_BASE_URL")
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
}

// Validate reports configuration errors before any work starts.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("API key is required: pass -api-key or set MISTRAL_API_KEY")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %v", c.RetryDelay)
	}
	if c.Split && c.ChunkCount < 1 {
		return fmt.Errorf("chunk count must be at least 1, got %d", c.ChunkCount)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}
