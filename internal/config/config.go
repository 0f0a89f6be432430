// Package config resolves runtime settings from an optional YAML file and
// environment variables. Command-line flags layer on top in cmd/privenrich,
// so precedence is flags > environment > file > defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "90s" decode directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(out)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type OllamaConfig struct {
	URL         string  `yaml:"url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	APIKey      string  `yaml:"api_key"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type PipelineConfig struct {
	Workers        int      `yaml:"workers"`
	MaxRetries     int      `yaml:"max_retries"`
	RequestTimeout Duration `yaml:"request_timeout"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	FailFast       bool     `yaml:"fail_fast"`
}

// Supported enrichment backends.
const (
	BackendOllama = "ollama"
	BackendGemini = "gemini"
)

type Config struct {
	// Backend selects the enrichment backend: "ollama" (default) or "gemini".
	Backend  string         `yaml:"backend"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Default returns the built-in configuration: a local Ollama daemon and the
// conservative concurrency the enrichment prompts were tuned against.
func Default() Config {
	return Config{
		Backend: BackendOllama,
		Ollama: OllamaConfig{
			URL:         "http://localhost:11434/api/generate",
			Model:       "codellama:7b",
			Temperature: 0.1,
		},
		Pipeline: PipelineConfig{
			Workers:        2,
			MaxRetries:     2,
			RequestTimeout: Duration(5 * time.Minute),
		},
	}
}

// Load resolves configuration from the optional file at path plus the
// environment. An empty path skips the file layer; a named file that does not
// exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() error {
	applyString(&c.Backend, "ENRICH_BACKEND")
	applyString(&c.Ollama.URL, "OLLAMA_URL")
	applyString(&c.Ollama.Model, "OLLAMA_MODEL")
	applyString(&c.Ollama.APIKey, "OLLAMA_API_KEY")
	applyString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	applyString(&c.Gemini.Model, "GEMINI_MODEL")
	applyString(&c.Gemini.BaseURL, "GEMINI_BASE_URL")

	var err error
	if c.Pipeline.Workers, err = envInt("WORKERS", c.Pipeline.Workers); err != nil {
		return err
	}
	if c.Pipeline.MaxRetries, err = envInt("MAX_RETRIES", c.Pipeline.MaxRetries); err != nil {
		return err
	}
	timeout, err := envDuration("REQUEST_TIMEOUT", c.Pipeline.RequestTimeout.Std())
	if err != nil {
		return err
	}
	c.Pipeline.RequestTimeout = Duration(timeout)
	if c.Pipeline.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", c.Pipeline.RateLimitRPS); err != nil {
		return err
	}
	if c.Pipeline.FailFast, err = envBool("FAIL_FAST", c.Pipeline.FailFast); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	switch strings.TrimSpace(strings.ToLower(c.Backend)) {
	case "", BackendOllama:
		c.Backend = BackendOllama
	case BackendGemini:
		c.Backend = BackendGemini
	default:
		return fmt.Errorf("unknown backend %q (want ollama or gemini)", c.Backend)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.Pipeline.MaxRetries)
	}
	return nil
}

func applyString(dst *string, varName string) {
	if v := strings.TrimSpace(os.Getenv(varName)); v != "" {
		*dst = v
	}
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(varName string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
