// Package mockollama implements a minimal Ollama-compatible /api/generate
// surface for tests and the local harness binary.
package mockollama

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// GenerateRequest is the request body accepted by /api/generate.
type GenerateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
}

// Call records a generate request made to the mock server.
type Call struct {
	Model  string
	Prompt string
}

// Server implements a minimal Ollama-like generate API surface.
//
// It records every call and tracks the peak number of simultaneously
// in-flight requests, which lets tests assert concurrency caps.
type Server struct {
	// RespondText produces the reply text for a request. When nil,
	// defaultReply is used. Wrapped in the standard JSON envelope.
	RespondText func(req GenerateRequest) string

	// RespondRaw, when set, takes precedence over RespondText and controls
	// the full HTTP status and body.
	RespondRaw func(req GenerateRequest) (int, string)

	// Delay is slept while a request is in flight. Widens the window in
	// which overlapping requests can be observed.
	Delay time.Duration

	mu          sync.Mutex
	calls       []Call
	inFlight    int
	maxInFlight int
}

// New constructs a new mock server.
func New() *Server {
	return &Server{}
}

// Handler returns the HTTP handler for the mock surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", s.handleGenerate)
	return mux
}

// Calls returns a copy of all recorded generate calls.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// MaxInFlight returns the peak number of simultaneously in-flight requests.
func (s *Server) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	s.enter(req)
	defer s.leave()

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	if s.RespondRaw != nil {
		status, body := s.RespondRaw(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	text := defaultReply(req)
	if s.RespondText != nil {
		text = s.RespondText(req)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":    req.Model,
		"response": text,
		"done":     true,
	})
}

func (s *Server) enter(req GenerateRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Model: req.Model, Prompt: req.Prompt})
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
}

func (s *Server) leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
}

func defaultReply(req GenerateRequest) string {
	if strings.Contains(req.Prompt, "model name") {
		return "I am a mock model used for local pipeline testing."
	}
	return "suggested_privilege_score,extended_description\n" +
		`7,"Allows read access, broadly"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
