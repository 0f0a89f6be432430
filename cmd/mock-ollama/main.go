package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/davidcsisk/ms-graph-api-privilege-scraper/internal/mockollama"
)

func main() {
	addr := defaultString("MOCK_OLLAMA_ADDR", ":11434")

	fs := flag.NewFlagSet("mock-ollama", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address (env: MOCK_OLLAMA_ADDR)")
	delay := fs.Duration("delay", 0, "Artificial per-request latency")
	reply := fs.String("reply", "", "Fixed reply text for every generate request (default: a valid score CSV)")
	_ = fs.Parse(os.Args[1:])

	srv := mockollama.New()
	srv.Delay = *delay
	if *reply != "" {
		text := *reply
		srv.RespondText = func(mockollama.GenerateRequest) string { return text }
	}

	_, _ = fmt.Fprintf(os.Stdout, "mock-ollama listening on %s (delay=%s)\n", addr, *delay)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
