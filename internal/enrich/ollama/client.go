// Package ollama talks to an Ollama-compatible /api/generate endpoint and
// adapts its replies into typed enrichment results.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich"
)

const (
	// DefaultURL points at a local Ollama daemon.
	DefaultURL = "http://localhost:11434/api/generate"
	// DefaultModel is the model the enrichment prompts were tuned against.
	DefaultModel = "codellama:7b"
	// DefaultTemperature keeps sampling near-deterministic.
	DefaultTemperature = 0.1

	// healthCheckTimeout allows time for a cold model load on first contact.
	healthCheckTimeout = 3 * time.Minute
)

// Config captures the runtime settings required to talk to the model endpoint.
type Config struct {
	URL         string
	Model       string
	Temperature float64

	// APIKey is an optional bearer token for deployments behind an
	// authenticating proxy. Empty for a plain local daemon.
	APIKey string
}

// Client issues generate requests against one Ollama-compatible endpoint.
//
// The underlying http.Client is shared across the whole batch; per-request
// deadlines come from the caller's context, not a client-wide timeout.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: Config{
			URL:         strings.TrimSpace(cfg.URL),
			Model:       strings.TrimSpace(cfg.Model),
			Temperature: cfg.Temperature,
			APIKey:      strings.TrimSpace(cfg.APIKey),
		},
		httpClient: &http.Client{},
	}
	if c.cfg.URL == "" {
		c.cfg.URL = DefaultURL
	}
	if c.cfg.Model == "" {
		c.cfg.Model = DefaultModel
	}
	if c.cfg.Temperature <= 0 {
		c.cfg.Temperature = DefaultTemperature
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends one prompt and returns the model's raw reply text, trimmed.
//
// Every failure mode of a single call (transport error, non-2xx status,
// unreadable or malformed body, empty reply) is wrapped as transient so the
// worker pool retries it; nothing about one bad call is permanent.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:       c.cfg.Model,
		Prompt:      prompt,
		Stream:      false,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama generate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &enrich.TransientError{Err: fmt.Errorf("ollama generate: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &enrich.TransientError{Err: fmt.Errorf("ollama generate: read body: %w", err)}
	}
	if resp.StatusCode/100 != 2 {
		return "", &enrich.TransientError{Err: newHTTPError("generate", resp, b)}
	}

	var out generateResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return "", &enrich.TransientError{Err: fmt.Errorf("ollama generate: parse response: %w", err)}
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", &enrich.TransientError{Err: errors.New("model returned an empty response")}
	}
	return text, nil
}

// HealthCheck probes whether the configured model is loaded and responding.
// It returns the model's reply so callers can surface it to the operator.
//
// A failed probe is a fatal precondition for batch processing: nothing should
// be scheduled against an endpoint that cannot answer this.
func (c *Client) HealthCheck(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	text, err := c.Generate(ctx, healthProbePrompt)
	if err != nil {
		return "", fmt.Errorf("model health check: %w", err)
	}
	return text, nil
}
