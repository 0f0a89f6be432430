// Package app wires the enrichment pipeline to files and logging: load and
// validate the input table, gate on the model health probe, run the batch,
// and write the merged output.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/pipeline"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/util"
	"github.com/google/uuid"
)

// Probe checks that the model endpoint is alive and answering. A nil Probe
// skips the precondition gate.
type Probe func(ctx context.Context) (string, error)

type RunOptions struct {
	InputPath  string
	OutputPath string

	// Resume reuses rows that enriched cleanly in a previous output file and
	// re-queries only the rest.
	Resume bool

	Pipeline pipeline.Options
}

// RunEnrich drives one enrichment batch end to end and returns the final
// batch statistics.
//
// Validation and the health probe both run before any row is scheduled; once
// the batch starts it always completes with one output row per input row.
func RunEnrich(ctx context.Context, logger *log.Logger, enricher enrich.Enricher, probe Probe, opts RunOptions) (pipeline.Stats, error) {
	runID := uuid.NewString()
	logf := func(format string, args ...any) {
		prefix := make([]any, 0, len(args)+1)
		prefix = append(prefix, runID)
		prefix = append(prefix, args...)
		logger.Printf("run=%s "+format, prefix...)
	}
	runStart := time.Now()

	inF, err := os.Open(opts.InputPath)
	if err != nil {
		return pipeline.Stats{}, err
	}
	privs, err := pipeline.ReadPrivilegesCSV(inF)
	cerr := inF.Close()
	if err != nil {
		return pipeline.Stats{}, fmt.Errorf("input %s: %w", opts.InputPath, err)
	}
	if cerr != nil {
		return pipeline.Stats{}, cerr
	}
	logf("loaded %d privileges from %s", len(privs), opts.InputPath)

	if probe != nil {
		probeStart := time.Now()
		reply, err := probe(ctx)
		if err != nil {
			return pipeline.Stats{}, fmt.Errorf("aborting before batch start: %w", err)
		}
		logf("model probe ok in %s: %s", time.Since(probeStart).Round(time.Millisecond), excerpt(reply))
	}

	plan := resumePlanFor(privs, opts, logf)
	logf("plan: inputRows=%d cachedRows=%d rowsToEnrich=%d", len(privs), plan.cachedRows, len(plan.pending))

	var stats pipeline.Stats
	if len(plan.pending) > 0 {
		freshRows, freshStats, err := pipeline.EnrichPrivileges(ctx, plan.pending, enricher, opts.Pipeline)
		if err != nil {
			return pipeline.Stats{}, err
		}
		if err := plan.applyFreshRows(freshRows); err != nil {
			return pipeline.Stats{}, err
		}
		stats = freshStats
	}
	rows := plan.rows

	final := countStatuses(rows)
	final.Elapsed = stats.Elapsed
	logf(
		"enrichment complete: produced=%d ok=%d degraded=%d failed=%d cached=%d duration=%s avg=%s",
		final.Total,
		final.OK,
		final.Degraded,
		final.Failed,
		plan.cachedRows,
		stats.Elapsed.Round(time.Millisecond),
		stats.PerItem().Round(time.Millisecond),
	)

	outF, err := os.Create(opts.OutputPath)
	if err != nil {
		return pipeline.Stats{}, err
	}
	if err := pipeline.WriteCSV(outF, rows); err != nil {
		_ = outF.Close()
		return pipeline.Stats{}, err
	}
	if err := outF.Close(); err != nil {
		return pipeline.Stats{}, err
	}

	logf("output written to %s totalDuration=%s", opts.OutputPath, time.Since(runStart).Round(time.Millisecond))
	return final, nil
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(util.RedactSecrets(s)), " ")
	const max = 160
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func countStatuses(rows []pipeline.Row) pipeline.Stats {
	stats := pipeline.Stats{Total: len(rows)}
	for _, row := range rows {
		switch enrich.Status(row.Status) {
		case enrich.StatusOK:
			stats.OK++
		case enrich.StatusDegraded:
			stats.Degraded++
		default:
			stats.Failed++
		}
	}
	return stats
}

type resumePlan struct {
	rows       []pipeline.Row
	pending    []enrich.Privilege
	pendingIdx map[string][]int
	cachedRows int
}

func resumePlanFor(privs []enrich.Privilege, opts RunOptions, logf func(string, ...any)) resumePlan {
	existing := map[string]pipeline.Row{}
	if opts.Resume {
		prior, err := readExistingRows(opts.OutputPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logf("resume: no prior output at %s, enriching everything", opts.OutputPath)
		case err != nil:
			logf("resume: ignoring unreadable prior output %s: %v", opts.OutputPath, err)
		default:
			existing = prior
			logf("resume: loaded %d prior rows from %s", len(existing), opts.OutputPath)
		}
	}
	return buildResumePlan(privs, existing)
}

// buildResumePlan reuses prior rows that enriched cleanly, keyed by privilege
// name; everything else is queued for enrichment. Duplicate names share one
// query.
func buildResumePlan(privs []enrich.Privilege, existingByName map[string]pipeline.Row) resumePlan {
	plan := resumePlan{
		rows:       make([]pipeline.Row, len(privs)),
		pendingIdx: make(map[string][]int),
	}
	for i, p := range privs {
		key := strings.TrimSpace(p.Name)

		if prev, ok := existingByName[key]; ok && prev.Status == string(enrich.StatusOK) {
			// Keep the prior enrichment but the current input's own fields.
			prev.PrivilegeType = p.Type
			prev.PrivilegeName = key
			prev.PrivilegeDescription = p.Description
			prev.PrivilegeScore = p.Score
			plan.rows[i] = prev
			plan.cachedRows++
			continue
		}

		if _, seen := plan.pendingIdx[key]; !seen {
			plan.pending = append(plan.pending, p)
		}
		plan.pendingIdx[key] = append(plan.pendingIdx[key], i)
	}
	return plan
}

func (p *resumePlan) applyFreshRows(rows []pipeline.Row) error {
	if len(rows) != len(p.pending) {
		return fmt.Errorf("enrichment mismatch: got %d rows for %d pending privileges", len(rows), len(p.pending))
	}
	for i, pending := range p.pending {
		key := strings.TrimSpace(pending.Name)
		idxs, ok := p.pendingIdx[key]
		if !ok || len(idxs) == 0 {
			return fmt.Errorf("enrichment mismatch: missing pending indexes for %q", key)
		}
		for _, idx := range idxs {
			p.rows[idx] = rows[i]
		}
	}
	return nil
}

func readExistingRows(path string) (map[string]pipeline.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := pipeline.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse prior output csv: %w", err)
	}
	out := make(map[string]pipeline.Row, len(rows))
	for _, row := range rows {
		key := strings.TrimSpace(row.PrivilegeName)
		if key == "" {
			continue
		}
		out[key] = row
	}
	return out, nil
}
