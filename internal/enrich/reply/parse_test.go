package reply_test

import (
	"testing"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich/reply"
)

func TestScoredDescription_QuotedTwoField(t *testing.T) {
	t.Parallel()

	in := "suggested_privilege_score,extended_description\n7,\"Allows read access, broadly\""
	got := reply.ScoredDescription(in)

	if got.Score == nil || *got.Score != 7 {
		t.Fatalf("expected score 7, got %v", got.Score)
	}
	if got.Description != "Allows read access, broadly" {
		t.Fatalf("unexpected description: %q", got.Description)
	}
	if got.Degraded {
		t.Fatalf("expected primary parse, got degraded")
	}
}

func TestScoredDescription_NoHeader(t *testing.T) {
	t.Parallel()

	got := reply.ScoredDescription("12,\"Grants full admin control\"")
	if got.Score == nil || *got.Score != 12 {
		t.Fatalf("expected score 12, got %v", got.Score)
	}
	if got.Description != "Grants full admin control" || got.Degraded {
		t.Fatalf("unexpected parse: %#v", got)
	}
}

func TestScoredDescription_UnescapedCommaRejoinsTail(t *testing.T) {
	t.Parallel()

	in := "suggested_privilege_score,extended_description\n9,Allows updates,including bulk edits"
	got := reply.ScoredDescription(in)

	if got.Score == nil || *got.Score != 9 {
		t.Fatalf("expected score 9, got %v", got.Score)
	}
	if got.Description != "Allows updates,including bulk edits" {
		t.Fatalf("unexpected description: %q", got.Description)
	}
	if got.Degraded {
		t.Fatalf("expected primary parse, got degraded")
	}
}

func TestScoredDescription_CodeFence(t *testing.T) {
	t.Parallel()

	in := "```\nsuggested_privilege_score,extended_description\n3,\"Read-only directory access\"\n```"
	got := reply.ScoredDescription(in)

	if got.Score == nil || *got.Score != 3 {
		t.Fatalf("expected score 3, got %v", got.Score)
	}
	if got.Description != "Read-only directory access" {
		t.Fatalf("unexpected description: %q", got.Description)
	}
}

func TestScoredDescription_NaiveSplitFallback(t *testing.T) {
	t.Parallel()

	// A fully quoted single field hides its commas from the structured parse,
	// so the naive first-comma split over the raw text takes over.
	got := reply.ScoredDescription(`"Allows read, write"`)
	if !got.Degraded {
		t.Fatalf("expected degraded parse: %#v", got)
	}
	if got.Score != nil {
		t.Fatalf("expected absent score, got %d", *got.Score)
	}
}

func TestScoredDescription_NoDelimiter(t *testing.T) {
	t.Parallel()

	got := reply.ScoredDescription("  This permission grants broad access to mail.  ")
	if got.Score != nil {
		t.Fatalf("expected absent score, got %v", *got.Score)
	}
	if got.Description != "This permission grants broad access to mail." {
		t.Fatalf("unexpected description: %q", got.Description)
	}
	if !got.Degraded {
		t.Fatalf("expected degraded status")
	}
}

func TestScoredDescription_ScoreAbsence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "non_numeric", in: "high,\"Full mailbox control\""},
		{name: "out_of_range_high", in: "42,\"Full mailbox control\""},
		{name: "out_of_range_low", in: "0,\"Full mailbox control\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reply.ScoredDescription(tt.in)
			if got.Score != nil {
				t.Fatalf("expected absent score, got %d", *got.Score)
			}
			if got.Description != "Full mailbox control" {
				t.Fatalf("unexpected description: %q", got.Description)
			}
		})
	}
}

func TestDescription(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		in           string
		want         string
		wantDegraded bool
	}{
		{
			name: "header_and_quoted_field",
			in:   "extended_description\n\"Allows reading all user mail, with audit.\"",
			want: "Allows reading all user mail, with audit.",
		},
		{
			name: "extra_commas_joined",
			in:   "Allows reading mail,calendars,and contacts",
			want: "Allows reading mail,calendars,and contacts",
		},
		{
			name:         "blank_reply",
			in:           "   ",
			want:         "",
			wantDegraded: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, degraded := reply.Description(tt.in)
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			if degraded != tt.wantDegraded {
				t.Fatalf("degraded=%v, want %v", degraded, tt.wantDegraded)
			}
		})
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	intp := func(n int) *int { return &n }

	tests := []struct {
		name string
		in   string
		want *int
	}{
		{name: "bare_integer", in: "14", want: intp(14)},
		{name: "with_header", in: "suggested_privilege_score\n6", want: intp(6)},
		{name: "fenced", in: "```\n8\n```", want: intp(8)},
		{name: "out_of_range", in: "99", want: nil},
		{name: "digit_scan_fallback", in: "The score is 11 on the scale.", want: intp(11)},
		{name: "digit_scan_skips_out_of_range", in: "rated 55 overall, call it 9", want: intp(9)},
		{name: "no_digits", in: "no idea", want: nil},
		{name: "empty", in: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reply.Score(tt.in)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Fatalf("got %d, want %d", *got, *tt.want)
			}
		})
	}
}
