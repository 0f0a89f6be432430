// Package pipeline drives the privilege enrichment batch: column validation,
// bounded fan-out through the worker pool, and the order-preserving merge into
// the fixed output schema.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich/worker"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/util"
)

// Row is the stable output schema contract: one enriched privilege.
type Row struct {
	PrivilegeType        string
	PrivilegeName        string
	PrivilegeDescription string
	PrivilegeScore       string
	SuggestedScore       string
	ExtendedDescription  string

	// Status is ok|degraded|failed. Tracked for reporting and resume
	// planning; not part of the serialized schema.
	Status string
}

type Options struct {
	Workers        int
	MaxRetries     int
	RequestTimeout time.Duration
	RateLimitRPS   float64
	FailFast       bool

	// Backoff overrides for retries. Zero values take the worker defaults.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// OnRowDone, when set, is invoked once per row as it completes, in
	// completion order. Must be safe for concurrent use.
	OnRowDone func(Row)
}

// Stats summarizes one enrichment batch.
type Stats struct {
	Total    int
	OK       int
	Degraded int
	Failed   int
	Elapsed  time.Duration
}

// PerItem derives the average wall-clock latency per row.
func (s Stats) PerItem() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Total)
}

// Header returns the stable CSV header for Row.
func Header() []string {
	return OutputContract.Columns
}

// EnrichPrivileges runs the enricher over all privileges and returns output
// rows in input order.
//
// Errors from enrichment are recorded per-row and do not fail the full run:
// an exhausted retry budget degrades that row's content, never the batch's
// cardinality.
func EnrichPrivileges(ctx context.Context, privs []enrich.Privilege, enricher enrich.Enricher, opts Options) ([]Row, Stats, error) {
	policy := worker.FailurePolicyPartialOutput
	if opts.FailFast {
		policy = worker.FailurePolicyFailFast
	}

	var onResult func(worker.Output)
	if opts.OnRowDone != nil {
		onResult = func(o worker.Output) {
			opts.OnRowDone(mergeRow(o))
		}
	}

	start := time.Now()
	out, err := worker.EnrichAll(ctx, privs, enricher, worker.Options{
		Workers:           opts.Workers,
		MaxRetries:        opts.MaxRetries,
		RequestTimeout:    opts.RequestTimeout,
		RateLimitRPS:      opts.RateLimitRPS,
		FailurePolicy:     policy,
		BackoffInitial:    opts.BackoffInitial,
		BackoffMax:        opts.BackoffMax,
		BackoffJitterFrac: 0.2,
		OnResult:          onResult,
	})
	if err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Total: len(out), Elapsed: time.Since(start)}
	rows := make([]Row, 0, len(out))
	for _, item := range out {
		row := mergeRow(item)
		switch enrich.Status(row.Status) {
		case enrich.StatusOK:
			stats.OK++
		case enrich.StatusDegraded:
			stats.Degraded++
		default:
			stats.Failed++
		}
		rows = append(rows, row)
	}
	return rows, stats, nil
}

// mergeRow joins one input privilege with its enrichment outcome in the fixed
// field order.
func mergeRow(o worker.Output) Row {
	row := Row{
		PrivilegeType:        o.Privilege.Type,
		PrivilegeName:        strings.TrimSpace(o.Privilege.Name),
		PrivilegeDescription: o.Privilege.Description,
		PrivilegeScore:       o.Privilege.Score,
	}

	if o.Err != nil {
		row.Status = string(enrich.StatusFailed)
		row.ExtendedDescription = fmt.Sprintf("ERROR after retries: %s", util.RedactSecrets(o.Err.Error()))
		return row
	}

	row.Status = string(o.Result.Status)
	row.ExtendedDescription = o.Result.Description
	if o.Result.Score != nil {
		row.SuggestedScore = strconv.Itoa(*o.Result.Score)
	}
	return row
}
