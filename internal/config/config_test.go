package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		APIKey:      "test-key",
		BaseURL:     DefaultBaseURL,
		OCRModel:    DefaultOCRModel,
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
		ChunkCount:  DefaultChunkCount,
		Concurrency: DefaultConcurrency,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing API key", func(c *Config) { c.APIKey = "" }, true},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, true},
		{"negative delay", func(c *Config) { c.RetryDelay = -time.Second }, true},
		{"zero chunks without split", func(c *Config) { c.Split = false; c.ChunkCount = 0 }, false},
		{"zero chunks with split", func(c *Config) { c.Split = true; c.ChunkCount = 0 }, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "env-key")
	t.Setenv("MISTRAL_BASE_URL", "")

	cfg := Config{}
	cfg.FromEnv()
	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "env-key")
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want default %q", cfg.BaseURL, DefaultBaseURL)
	}

	cfg = Config{APIKey: "explicit", BaseURL: "http://localhost:8080"}
	cfg.FromEnv()
	if cfg.APIKey != "explicit" || cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("explicit values overridden: %+v", cfg)
	}
}
