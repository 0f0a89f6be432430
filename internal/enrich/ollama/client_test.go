package ollama_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/enrich/ollama"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/mockollama"
)

func newTestClient(t *testing.T, mock *mockollama.Server) *ollama.Client {
	t.Helper()
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)
	return ollama.NewClient(ollama.Config{
		URL:   srv.URL + "/api/generate",
		Model: "testmodel",
	})
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	mock := mockollama.New()
	mock.RespondText = func(req mockollama.GenerateRequest) string {
		if req.Model != "testmodel" {
			t.Errorf("unexpected model: %q", req.Model)
		}
		if req.Stream {
			t.Errorf("expected stream=false")
		}
		if req.Temperature != ollama.DefaultTemperature {
			t.Errorf("unexpected temperature: %g", req.Temperature)
		}
		return "  hello  "
	}
	c := newTestClient(t, mock)

	got, err := c.Generate(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected trimmed reply, got %q", got)
	}
	calls := mock.Calls()
	if len(calls) != 1 || calls[0].Prompt != "say hello" {
		t.Fatalf("unexpected calls: %#v", calls)
	}
}

func TestGenerate_NonSuccessStatusIsTransient(t *testing.T) {
	t.Parallel()

	mock := mockollama.New()
	mock.RespondRaw = func(mockollama.GenerateRequest) (int, string) {
		return http.StatusInternalServerError, `{"error":"model is loading"}`
	}
	c := newTestClient(t, mock)

	_, err := c.Generate(context.Background(), "p")
	var te *enrich.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected transient error, got %T %v", err, err)
	}
	var he *ollama.HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected wrapped HTTPError, got %v", err)
	}
	if !strings.Contains(he.Error(), "model is loading") {
		t.Fatalf("expected error envelope message, got %q", he.Error())
	}
}

func TestGenerate_EmptyReplyIsTransient(t *testing.T) {
	t.Parallel()

	mock := mockollama.New()
	mock.RespondText = func(mockollama.GenerateRequest) string { return "   " }
	c := newTestClient(t, mock)

	_, err := c.Generate(context.Background(), "p")
	var te *enrich.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected transient error, got %T %v", err, err)
	}
	if !strings.Contains(err.Error(), "empty response") {
		t.Fatalf("unexpected error text: %q", err.Error())
	}
}

func TestGenerate_MalformedBodyIsTransient(t *testing.T) {
	t.Parallel()

	mock := mockollama.New()
	mock.RespondRaw = func(mockollama.GenerateRequest) (int, string) {
		return http.StatusOK, "not json"
	}
	c := newTestClient(t, mock)

	_, err := c.Generate(context.Background(), "p")
	var te *enrich.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected transient error, got %T %v", err, err)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	mock := mockollama.New()
	c := newTestClient(t, mock)

	reply, err := c.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply == "" {
		t.Fatalf("expected a probe reply")
	}
}

func TestHealthCheck_EmptyReplyFails(t *testing.T) {
	t.Parallel()

	mock := mockollama.New()
	mock.RespondText = func(mockollama.GenerateRequest) string { return "" }
	c := newTestClient(t, mock)

	if _, err := c.HealthCheck(context.Background()); err == nil {
		t.Fatalf("expected health check failure on empty reply")
	}
}
