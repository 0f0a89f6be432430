// Package reply parses the loosely structured text a generative model returns
// into typed enrichment fields.
//
// The model is instructed to answer with a small CSV, but replies routinely
// arrive wrapped in code fences, without the header, with unescaped commas
// inside the description, or as plain prose. Each parser walks an ordered
// chain of strategies and never fails: the worst case is an absent score and
// the raw trimmed text as the description.
package reply

import (
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Parsed is the outcome of parsing a combined score+description reply.
type Parsed struct {
	// Score is nil when no usable 1-20 integer was present.
	Score *int
	// Description is the recovered description text, trimmed.
	Description string
	// Degraded is true when a fallback path produced the value instead of the
	// structured CSV parse.
	Degraded bool
}

const (
	// MinScore and MaxScore bound the suggested privilege score.
	MinScore = 1
	MaxScore = 20
)

// ScoredDescription parses a reply that should be a two-field CSV record with
// the header "suggested_privilege_score,extended_description".
func ScoredDescription(text string) Parsed {
	text = stripFence(strings.TrimSpace(text))

	for _, row := range csvRows(text) {
		if skipHeader(row, "suggested") {
			continue
		}
		if len(row) < 2 {
			continue
		}
		desc := strings.TrimSpace(row[1])
		if len(row) > 2 {
			// The model left a comma unescaped: rejoin the tail fields to
			// reconstitute the description.
			desc = joinTrimmed(row[1:])
		}
		return Parsed{
			Score:       scoreInRange(row[0]),
			Description: desc,
		}
	}

	// Naive split on the first comma.
	if i := strings.Index(text, ","); i >= 0 {
		return Parsed{
			Score:       scoreInRange(text[:i]),
			Description: strings.TrimSpace(text[i+1:]),
			Degraded:    true,
		}
	}

	// No delimiter at all: the whole reply is the description.
	return Parsed{Description: text, Degraded: true}
}

// Description parses a reply that should be a single-field CSV record with the
// header "extended_description". It returns the recovered description and
// whether a fallback path was used.
func Description(text string) (string, bool) {
	text = stripFence(strings.TrimSpace(text))

	for _, row := range csvRows(text) {
		if skipHeader(row, "extended") {
			continue
		}
		// Join all fields: accidental extra commas stay part of the text.
		return joinTrimmed(row), false
	}

	return text, true
}

var scoreTokenRe = regexp.MustCompile(`\b\d{1,2}\b`)

// Score parses a reply that should be a single integer score between 1 and 20.
// It returns nil for out-of-range or non-numeric values; a reply with no
// parseable first field is scanned for the first 1-2 digit token in range.
func Score(text string) *int {
	text = stripFence(strings.TrimSpace(text))

	for _, row := range csvRows(text) {
		if skipHeader(row, "suggested") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		if n < MinScore || n > MaxScore {
			return nil
		}
		return &n
	}

	for _, tok := range scoreTokenRe.FindAllString(text, -1) {
		n, err := strconv.Atoi(tok)
		if err != nil || n < MinScore || n > MaxScore {
			continue
		}
		return &n
	}
	return nil
}

// stripFence removes a surrounding markdown code fence. Only applied when the
// reply both starts and ends with a fence marker.
func stripFence(s string) string {
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") {
		return strings.Trim(s, "`\n ")
	}
	return s
}

// csvRows reads records leniently; a malformed tail stops iteration rather
// than failing, leaving recovery to the callers' fallback paths.
func csvRows(text string) [][]string {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF || (err != nil && len(rec) == 0) {
			return rows
		}
		if err != nil {
			return rows
		}
		if len(rec) == 0 {
			continue
		}
		rows = append(rows, rec)
	}
}

func skipHeader(row []string, token string) bool {
	return len(row) > 0 && strings.HasPrefix(strings.ToLower(strings.TrimSpace(row[0])), token)
}

func joinTrimmed(fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, strings.TrimSpace(f))
	}
	return strings.Join(parts, ",")
}

// scoreInRange coerces a raw field to an in-range score; any failure yields an
// absent score, never a parse failure.
func scoreInRange(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < MinScore || n > MaxScore {
		return nil
	}
	return &n
}
