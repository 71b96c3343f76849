package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Backend  BackendConfig  `json:"backend"`
	Detector DetectorConfig `json:"detector"`
	Payload  PayloadConfig  `json:"payload"`
}

// BackendConfig selects and configures the vision classifier backend
type BackendConfig struct {
	Provider       string `json:"provider"` // ollama, llamacpp or gemini
	Model          string `json:"model"`
	OllamaURL      string `json:"ollama_url"`
	LlamaURL       string `json:"llama_url"`
	GeminiAPIKey   string `json:"gemini_api_key,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// DetectorConfig configures the optional generation detector service
type DetectorConfig struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key,omitempty"`
}

// PayloadConfig holds limits for oracle payload preparation
type PayloadConfig struct {
	MaxPayloadMB int `json:"max_payload_mb"`
	MaxDimension int `json:"max_dimension"`
	JPEGQuality  int `json:"jpeg_quality"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Provider:       "ollama",
			Model:          "qwen2.5vl:7b",
			OllamaURL:      "http://localhost:11434",
			LlamaURL:       "http://localhost:8080",
			TimeoutSeconds: 15,
		},
		Detector: DetectorConfig{
			URL: "",
		},
		Payload: PayloadConfig{
			MaxPayloadMB: 15,
			MaxDimension: 2048,
			JPEGQuality:  85,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment variables onto the configuration.
// Unset variables leave the current values untouched.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("IMAGE_VERDICT_BACKEND"); v != "" {
		c.Backend.Provider = v
	}
	if v := os.Getenv("IMAGE_VERDICT_MODEL"); v != "" {
		c.Backend.Model = v
	}
	if v := os.Getenv("IMAGE_VERDICT_OLLAMA_URL"); v != "" {
		c.Backend.OllamaURL = v
	}
	if v := os.Getenv("IMAGE_VERDICT_LLAMA_URL"); v != "" {
		c.Backend.LlamaURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Backend.GeminiAPIKey = v
	}
	if v := os.Getenv("IMAGE_VERDICT_TIMEOUT_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			c.Backend.TimeoutSeconds = seconds
		}
	}
	if v := os.Getenv("IMAGE_VERDICT_DETECTOR_URL"); v != "" {
		c.Detector.URL = v
	}
	if v := os.Getenv("IMAGE_VERDICT_DETECTOR_API_KEY"); v != "" {
		c.Detector.APIKey = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Backend.Provider {
	case "ollama", "llamacpp", "gemini":
	default:
		return fmt.Errorf("backend.provider must be one of ollama, llamacpp, gemini")
	}

	if c.Backend.Model == "" && c.Backend.Provider != "gemini" {
		return fmt.Errorf("backend.model cannot be empty")
	}

	if c.Backend.Provider == "gemini" && c.Backend.GeminiAPIKey == "" {
		return fmt.Errorf("backend.gemini_api_key is required for the gemini backend (set GEMINI_API_KEY)")
	}

	if c.Backend.TimeoutSeconds < 1 {
		return fmt.Errorf("backend.timeout_seconds must be positive")
	}

	if c.Payload.MaxPayloadMB < 1 {
		return fmt.Errorf("payload.max_payload_mb must be positive")
	}

	if c.Payload.JPEGQuality < 1 || c.Payload.JPEGQuality > 100 {
		return fmt.Errorf("payload.jpeg_quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-verdict", "config.json")
}
