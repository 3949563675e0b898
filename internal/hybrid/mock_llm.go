package hybrid

import (
	"context"
	"sync"

	"github.com/Veraticus/cardwise/internal/llm"
	"github.com/Veraticus/cardwise/internal/model"
)

// MockLLMParser is a scriptable LLMParser for tests and offline runs.
type MockLLMParser struct {
	Err       error
	ModelErr  error
	Models    []string
	calls     []MockLLMCall
	Result    model.LLMParsedSMS
	URL       string
	Model     string
	stats     llm.Stats
	Connected bool
	Caching   bool
	mu        sync.Mutex
}

// MockLLMCall records one ParseSMS call.
type MockLLMCall struct {
	Message string
	Sender  string
}

// NewMockLLMParser returns a mock answering every call with result.
func NewMockLLMParser(result model.LLMParsedSMS) *MockLLMParser {
	return &MockLLMParser{
		Result:    result,
		Connected: true,
		Models:    []string{"phi:latest"},
		Caching:   true,
	}
}

// ParseSMS implements LLMParser.
func (m *MockLLMParser) ParseSMS(_ context.Context, message, sender string) (model.LLMParsedSMS, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockLLMCall{Message: message, Sender: sender})
	m.stats.TotalRequests++
	m.stats.LLMRequests++
	if m.Err != nil {
		m.stats.LLMFailures++
		return model.LLMParsedSMS{}, m.Err
	}

	result := m.Result
	result.RawMessage = message
	return result, nil
}

// Calls returns the recorded ParseSMS calls.
func (m *MockLLMParser) Calls() []MockLLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockLLMCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// SetError makes subsequent calls fail with err.
func (m *MockLLMParser) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// SetConfidence changes the confidence of subsequent results.
func (m *MockLLMParser) SetConfidence(c float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Result.Confidence = c
}

// Stats implements LLMParser.
func (m *MockLLMParser) Stats() llm.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// ClearCache implements LLMParser.
func (m *MockLLMParser) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CacheSize = 0
}

// SetCaching implements LLMParser.
func (m *MockLLMParser) SetCaching(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Caching = enabled
}

// SetModel implements LLMParser.
func (m *MockLLMParser) SetModel(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = name
}

// SetOllamaURL implements LLMParser.
func (m *MockLLMParser) SetOllamaURL(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.URL = url
}

// TestConnection implements LLMParser.
func (m *MockLLMParser) TestConnection(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Connected
}

// AvailableModels implements LLMParser.
func (m *MockLLMParser) AvailableModels(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ModelErr != nil {
		return nil, m.ModelErr
	}
	return m.Models, nil
}
