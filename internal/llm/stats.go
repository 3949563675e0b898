package llm

import (
	"sync"
	"time"
)

// Stats are the running counters of a Parser.
type Stats struct {
	TotalRequests       int64   `json:"totalRequests"`
	CacheHits           int64   `json:"cacheHits"`
	LLMRequests         int64   `json:"llmRequests"`
	LLMFailures         int64   `json:"llmFailures"`
	RegexFallbacks      int64   `json:"regexFallbacks"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	AverageConfidence   float64 `json:"averageConfidence"`
	CacheSize           int     `json:"cacheSize"`
}

type outcome int

const (
	outcomeCacheHit outcome = iota
	outcomeSuccess
	outcomeFallback
	outcomeFailure
)

// statsRecorder serializes read-modify-write updates of the running averages.
type statsRecorder struct {
	stats  Stats
	scored int64
	mu     sync.Mutex
}

func (r *statsRecorder) record(o outcome, elapsed time.Duration, confidence float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &r.stats
	s.TotalRequests++
	ms := float64(elapsed) / float64(time.Millisecond)
	s.AverageResponseTime += (ms - s.AverageResponseTime) / float64(s.TotalRequests)

	switch o {
	case outcomeCacheHit:
		s.CacheHits++
		return
	case outcomeFailure:
		s.LLMRequests++
		s.LLMFailures++
		return
	case outcomeFallback:
		s.LLMRequests++
		s.LLMFailures++
		s.RegexFallbacks++
	case outcomeSuccess:
		s.LLMRequests++
	}

	r.scored++
	s.AverageConfidence += (confidence - s.AverageConfidence) / float64(r.scored)
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
