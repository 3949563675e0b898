package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// OllamaRequest is a /api/generate body as received by FakeOllama.
type OllamaRequest struct {
	Options struct {
		Stop        []string `json:"stop"`
		Temperature float64  `json:"temperature"`
		TopP        float64  `json:"top_p"`
		NumPredict  int      `json:"num_predict"`
		NumCtx      int      `json:"num_ctx"`
	} `json:"options"`
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	RequestID string `json:"-"`
	Stream    bool   `json:"stream"`
}

// FakeOllama is a scriptable stand-in for an Ollama server.
type FakeOllama struct {
	server   *httptest.Server
	requests []OllamaRequest
	models   []string
	response string
	body     string
	status   int
	mu       sync.Mutex
}

// NewFakeOllama starts a server that answers every generate call with an
// empty object until SetResponse is called. It is closed with the test.
func NewFakeOllama(t *testing.T) *FakeOllama {
	t.Helper()

	f := &FakeOllama{
		response: "{}",
		status:   http.StatusOK,
		models:   []string{"phi:latest"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", f.handleGenerate)
	mux.HandleFunc("/api/tags", f.handleTags)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

// URL returns the base URL of the server.
func (f *FakeOllama) URL() string {
	return f.server.URL
}

// SetResponse sets the text returned in the "response" field.
func (f *FakeOllama) SetResponse(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.response = text
}

// SetStatus makes every endpoint fail with code and body. Use
// http.StatusOK to recover.
func (f *FakeOllama) SetStatus(code int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = code
	f.body = body
}

// SetModels sets the names listed by /api/tags.
func (f *FakeOllama) SetModels(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = names
}

// GenerateCalls returns how many generate requests were received.
func (f *FakeOllama) GenerateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// LastRequest returns the most recent generate request.
func (f *FakeOllama) LastRequest() (OllamaRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return OllamaRequest{}, false
	}
	return f.requests[len(f.requests)-1], true
}

func (f *FakeOllama) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req OllamaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.RequestID = r.Header.Get("X-Request-ID")

	f.mu.Lock()
	f.requests = append(f.requests, req)
	status, body, response := f.status, f.body, f.response
	f.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, body, status)
		return
	}

	writeJSON(w, map[string]any{
		"model":          req.Model,
		"created_at":     time.Now().UTC().Format(time.RFC3339Nano),
		"response":       response,
		"done":           true,
		"total_duration": int64(25 * time.Millisecond),
	})
}

func (f *FakeOllama) handleTags(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	status, body := f.status, f.body
	models := make([]map[string]any, 0, len(f.models))
	for _, name := range f.models {
		models = append(models, map[string]any{
			"name":        name,
			"size":        1600000000,
			"digest":      "e2fd6321a5fe",
			"modified_at": "2025-07-01T10:00:00Z",
		})
	}
	f.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, body, status)
		return
	}
	writeJSON(w, map[string]any{"models": models})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
