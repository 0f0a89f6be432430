package ollama

import (
	"context"
	"errors"
	"strings"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich/reply"
)

// Enricher asks the model for a suggested score and extended description for
// one privilege.
//
// In combined mode a single query returns both fields as a two-field CSV.
// Two-pass mode issues a description-only query followed by a score-only
// query, which some models answer more reliably; a score-pass failure only
// blanks the score, it does not fail the row.
type Enricher struct {
	client  *Client
	twoPass bool
}

// NewEnricher wraps a client as an enrich.Enricher.
func NewEnricher(client *Client, twoPass bool) *Enricher {
	return &Enricher{client: client, twoPass: twoPass}
}

func (e *Enricher) Enrich(ctx context.Context, p enrich.Privilege) (enrich.Result, error) {
	if strings.TrimSpace(p.Name) == "" {
		return enrich.Result{}, errors.New("empty privilege name")
	}
	if e.twoPass {
		return e.enrichTwoPass(ctx, p)
	}

	raw, err := e.client.Generate(ctx, combinedPrompt(p))
	if err != nil {
		return enrich.Result{}, err
	}

	parsed := reply.ScoredDescription(raw)
	return enrich.Result{
		Score:       parsed.Score,
		Description: parsed.Description,
		Status:      statusFor(parsed.Degraded),
	}, nil
}

func (e *Enricher) enrichTwoPass(ctx context.Context, p enrich.Privilege) (enrich.Result, error) {
	raw, err := e.client.Generate(ctx, descriptionPrompt(p))
	if err != nil {
		return enrich.Result{}, err
	}
	desc, degraded := reply.Description(raw)

	// The description is the row's payload; losing the score pass is not
	// worth retrying the whole row over.
	var score *int
	scoreRaw, err := e.client.Generate(ctx, scorePrompt(p))
	if err != nil {
		degraded = true
	} else {
		score = reply.Score(scoreRaw)
	}

	return enrich.Result{
		Score:       score,
		Description: desc,
		Status:      statusFor(degraded),
	}, nil
}

func statusFor(degraded bool) enrich.Status {
	if degraded {
		return enrich.StatusDegraded
	}
	return enrich.StatusOK
}
