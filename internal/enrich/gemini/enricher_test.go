package gemini

import (
	"errors"
	"testing"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich"
	"google.golang.org/genai"
)

type tempNetErr struct{}

func (tempNetErr) Error() string   { return "temp net err" }
func (tempNetErr) Timeout() bool   { return false }
func (tempNetErr) Temporary() bool { return true }

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name          string
		in            error
		wantTransient bool
	}{
		{name: "nil", in: nil, wantTransient: false},
		{name: "api_429", in: genai.APIError{Code: 429}, wantTransient: true},
		{name: "api_500", in: genai.APIError{Code: 500}, wantTransient: true},
		{name: "api_401", in: genai.APIError{Code: 401}, wantTransient: false},
		{name: "net_temporary", in: tempNetErr{}, wantTransient: true},
		{name: "wrapped_api_429", in: errors.New(genai.APIError{Code: 429}.Error()), wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyErr(tt.in)
			var te *enrich.TransientError
			isTransient := errors.As(got, &te)
			if isTransient != tt.wantTransient {
				t.Fatalf("transient=%v want=%v (err=%T %v)", isTransient, tt.wantTransient, got, got)
			}
		})
	}
}

func TestValidScore(t *testing.T) {
	tests := []struct {
		in   int
		want bool
	}{
		{in: 1, want: true},
		{in: 20, want: true},
		{in: 0, want: false},
		{in: 21, want: false},
		{in: -3, want: false},
	}
	for _, tt := range tests {
		got := validScore(tt.in)
		if (got != nil) != tt.want {
			t.Fatalf("validScore(%d) = %v, want present=%v", tt.in, got, tt.want)
		}
		if got != nil && *got != tt.in {
			t.Fatalf("validScore(%d) = %d", tt.in, *got)
		}
	}
}
