package enrich

import (
	"context"
)

// Status describes how an enrichment value was obtained.
type Status string

const (
	// StatusOK means the reply parsed through the primary structured path.
	StatusOK Status = "ok"
	// StatusDegraded means a value was recovered through a fallback parse path.
	StatusDegraded Status = "degraded"
	// StatusFailed means all retries were exhausted without a usable reply.
	StatusFailed Status = "failed"
)

// Privilege is one input row from the privilege table. Rows are read once at
// run start and never mutated.
type Privilege struct {
	Type        string
	Name        string
	Description string
	Score       string
}

// Result is the typed enrichment output for a single privilege.
//
// Score is nil when the reply carried no usable 1-20 integer; absence is
// preserved rather than defaulted or clamped.
type Result struct {
	Score       *int
	Description string
	Status      Status
}

// Enricher enriches a single privilege record.
type Enricher interface {
	Enrich(ctx context.Context, p Privilege) (Result, error)
}

// TransientError marks an error as retryable.
//
// Worker pools should retry transient failures with backoff rather than immediately
// failing the full run.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
