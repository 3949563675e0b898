package hybrid

import (
	"sync"
	"time"

	"github.com/Veraticus/cardwise/internal/llm"
)

// Method names the parsing path that produced a result.
type Method string

// Parsing paths.
const (
	MethodLLM    Method = "llm"
	MethodRegex  Method = "regex"
	MethodHybrid Method = "hybrid"
)

// Stats are the controller's running counters.
type Stats struct {
	TotalRequests       int64   `json:"totalRequests"`
	HybridRequests      int64   `json:"hybridRequests"`
	CacheHits           int64   `json:"cacheHits"`
	LLMRequests         int64   `json:"llmRequests"`
	LLMAccepted         int64   `json:"llmAccepted"`
	RegexRequests       int64   `json:"regexRequests"`
	RegexFallbacks      int64   `json:"regexFallbacks"`
	Failures            int64   `json:"failures"`
	LLMSuccessRate      float64 `json:"llmSuccessRate"`
	RegexFallbackRate   float64 `json:"regexFallbackRate"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	AverageConfidence   float64 `json:"averageConfidence"`
}

// DetailedStats bundles the stats with a live view of the LLM endpoint.
type DetailedStats struct {
	Config           Config    `json:"config"`
	Stats            Stats     `json:"stats"`
	LLMStats         llm.Stats `json:"llmStats"`
	AvailableModels  []string  `json:"availableModels"`
	ConnectionStatus bool      `json:"connectionStatus"`
}

// attempt describes one ParseSMS call for the recorder.
type attempt struct {
	method     Method
	elapsed    time.Duration
	confidence float64
	triedLLM   bool
	fellBack   bool
	failed     bool
}

type statsRecorder struct {
	stats     Stats
	succeeded int64
	mu        sync.Mutex
}

func (r *statsRecorder) record(a attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &r.stats
	s.TotalRequests++
	s.HybridRequests++

	ms := float64(a.elapsed) / float64(time.Millisecond)
	s.AverageResponseTime += (ms - s.AverageResponseTime) / float64(s.TotalRequests)

	if a.triedLLM {
		s.LLMRequests++
	}
	if a.fellBack {
		s.RegexFallbacks++
	}

	switch {
	case a.failed:
		s.Failures++
	case a.method == MethodLLM:
		s.LLMAccepted++
	case a.method == MethodRegex:
		s.RegexRequests++
	}

	if !a.failed {
		r.succeeded++
		s.AverageConfidence += (a.confidence - s.AverageConfidence) / float64(r.succeeded)
	}

	if s.LLMRequests > 0 {
		s.LLMSuccessRate = float64(s.LLMAccepted) / float64(s.LLMRequests)
	}
	s.RegexFallbackRate = float64(s.RegexFallbacks) / float64(s.TotalRequests)
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
