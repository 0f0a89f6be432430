package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/mockollama"
	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/version"
)

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "privenrich " + version.Current; !strings.Contains(out, want) {
		t.Fatalf("expected %q in output, got %q", want, out)
	}
}

func TestEnrichCommand(t *testing.T) {
	mock := mockollama.New()
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()
	t.Setenv("OLLAMA_URL", srv.URL+"/api/generate")

	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.csv")
	outPath := filepath.Join(dir, "out.csv")
	input := "privilege_type,privilege_name,privilege_description,privilege_score\n" +
		"roles,User.Read.All,Read all users,5\n"
	if err := os.WriteFile(inPath, []byte(input), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out, _, err := runCommand(t, "enrich", "--input", inPath, "--output", outPath, "--workers", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "User.Read.All") {
		t.Fatalf("output missing enriched row: %q", string(data))
	}
	// Summary table lands on stdout.
	if !strings.Contains(out, "Total") || !strings.Contains(out, "1") {
		t.Fatalf("expected summary table, got %q", out)
	}
}

func TestEnrichCommand_RequiresInputAndOutput(t *testing.T) {
	_, _, err := runCommand(t, "enrich")
	if err == nil {
		t.Fatal("expected missing required flag error")
	}
}

func TestEnrichCommand_UnknownBackend(t *testing.T) {
	_, _, err := runCommand(t, "enrich", "--input", "a.csv", "--output", "b.csv", "--backend", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestFixCSVCommand(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "raw.csv")
	outPath := filepath.Join(dir, "fixed.csv")
	raw := "privilege_type,privilege_name,privilege_description,privilege_score,suggested_privilege_score,extended_description\n" +
		"roles,User.Read.All,Read all users,5,7,\"line one\nline two\"\n"
	if err := os.WriteFile(inPath, []byte(raw), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	if _, _, err := runCommand(t, "fixcsv", inPath, outPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if strings.Contains(string(data), "line one\nline two") {
		t.Fatalf("embedded newline should be flattened: %q", string(data))
	}
	if !strings.Contains(string(data), `"line one line two"`) {
		t.Fatalf("expected flattened quoted description: %q", string(data))
	}
}

func TestFixCSVCommand_SamePathRejected(t *testing.T) {
	_, _, err := runCommand(t, "fixcsv", "same.csv", "same.csv")
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected same-path rejection, got %v", err)
	}
}
