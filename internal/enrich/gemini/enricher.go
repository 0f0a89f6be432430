// Package gemini is an alternative enrichment backend using Gemini structured
// output. Because the reply is schema-constrained JSON, no fallback parse
// chain is needed; a well-formed reply is always StatusOK.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich/reply"
	"google.golang.org/genai"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

type Enricher struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Enricher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Enricher{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
	}, nil
}

type responseSchema struct {
	SuggestedScore      int    `json:"suggested_privilege_score"`
	ExtendedDescription string `json:"extended_description"`
}

var outputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"suggested_privilege_score": {Type: genai.TypeInteger},
		"extended_description":      {Type: genai.TypeString},
	},
	Required: []string{
		"suggested_privilege_score",
		"extended_description",
	},
}

func (e *Enricher) Enrich(ctx context.Context, p enrich.Privilege) (enrich.Result, error) {
	if strings.TrimSpace(p.Name) == "" {
		return enrich.Result{}, errors.New("empty privilege name")
	}

	resp, err := e.client.Models.GenerateContent(
		ctx,
		e.model,
		genai.Text(buildPrompt(p)),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   outputSchema,
		},
	)
	if err != nil {
		return enrich.Result{}, classifyErr(err)
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(resp.Text()), &parsed); err != nil {
		return enrich.Result{}, fmt.Errorf("gemini: parse structured json: %w", err)
	}

	return enrich.Result{
		Score:       validScore(parsed.SuggestedScore),
		Description: strings.TrimSpace(parsed.ExtendedDescription),
		Status:      enrich.StatusOK,
	}, nil
}

func buildPrompt(p enrich.Privilege) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are an expert in Microsoft Graph API permissions.

For the privilege below, return a JSON object with these keys:
- suggested_privilege_score (integer between 1 and 20; 1 = least privilege, 20 = full/admin)
- extended_description (a long, human-readable description of what the privilege allows, security implications, use-cases and guidance)

Do not include extra keys.

Privilege Type: %s
Privilege Name: %s
`, p.Type, p.Name))
}

// validScore drops out-of-range scores rather than clamping them.
func validScore(n int) *int {
	if n < reply.MinScore || n > reply.MaxScore {
		return nil
	}
	return &n
}

func classifyErr(err error) error {
	// Wrap transient failures so the worker pool will retry with backoff.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &enrich.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || ne.Temporary()) {
		return &enrich.TransientError{Err: err}
	}
	return err
}
