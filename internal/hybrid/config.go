package hybrid

import (
	"sync/atomic"
)

// Config controls how the controller arbitrates between the two parsers.
type Config struct {
	OllamaURL              string  `json:"ollamaUrl"`
	Model                  string  `json:"model"`
	LLMConfidenceThreshold float64 `json:"llmConfidenceThreshold"`
	UseLLM                 bool    `json:"useLLM"`
	EnableCaching          bool    `json:"enableCaching"`
	FallbackToRegex        bool    `json:"fallbackToRegex"`
}

// DefaultConfig returns the startup configuration.
func DefaultConfig() Config {
	return Config{
		UseLLM:                 true,
		LLMConfidenceThreshold: 0.8,
		EnableCaching:          true,
		FallbackToRegex:        true,
		OllamaURL:              "http://localhost:11434",
		Model:                  "phi",
	}
}

// ConfigUpdate is a partial configuration. Nil fields keep their value.
type ConfigUpdate struct {
	UseLLM                 *bool    `json:"useLLM,omitempty"`
	LLMConfidenceThreshold *float64 `json:"llmConfidenceThreshold,omitempty"`
	EnableCaching          *bool    `json:"enableCaching,omitempty"`
	FallbackToRegex        *bool    `json:"fallbackToRegex,omitempty"`
	OllamaURL              *string  `json:"ollamaUrl,omitempty"`
	Model                  *string  `json:"model,omitempty"`
}

// Apply returns c with the non-nil fields of u merged in.
func (c Config) Apply(u ConfigUpdate) Config {
	if u.UseLLM != nil {
		c.UseLLM = *u.UseLLM
	}
	if u.LLMConfidenceThreshold != nil {
		c.LLMConfidenceThreshold = ClampThreshold(*u.LLMConfidenceThreshold)
	}
	if u.EnableCaching != nil {
		c.EnableCaching = *u.EnableCaching
	}
	if u.FallbackToRegex != nil {
		c.FallbackToRegex = *u.FallbackToRegex
	}
	if u.OllamaURL != nil && *u.OllamaURL != "" {
		c.OllamaURL = *u.OllamaURL
	}
	if u.Model != nil && *u.Model != "" {
		c.Model = *u.Model
	}
	return c
}

// ClampThreshold limits a confidence threshold to [0,1].
func ClampThreshold(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ConfigHolder publishes immutable Config snapshots. Readers never block;
// writers replace the whole snapshot.
type ConfigHolder struct {
	current atomic.Pointer[Config]
}

// NewConfigHolder returns a holder initialized with cfg.
func NewConfigHolder(cfg Config) *ConfigHolder {
	cfg.LLMConfidenceThreshold = ClampThreshold(cfg.LLMConfidenceThreshold)
	h := &ConfigHolder{}
	h.current.Store(&cfg)
	return h
}

// Load returns the current snapshot.
func (h *ConfigHolder) Load() Config {
	return *h.current.Load()
}

// Update applies fn to the current snapshot with compare-and-swap and
// returns the stored result.
func (h *ConfigHolder) Update(fn func(Config) Config) Config {
	for {
		old := h.current.Load()
		next := fn(*old)
		next.LLMConfidenceThreshold = ClampThreshold(next.LLMConfidenceThreshold)
		if h.current.CompareAndSwap(old, &next) {
			return next
		}
	}
}
