package hybrid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigApply(t *testing.T) {
	base := DefaultConfig()
	yes, no := true, false
	threshold := -0.5
	empty := ""

	tests := []struct {
		check  func(t *testing.T, got Config)
		name   string
		update ConfigUpdate
	}{
		{
			name:   "empty update keeps everything",
			update: ConfigUpdate{},
			check: func(t *testing.T, got Config) {
				assert.Equal(t, base, got)
			},
		},
		{
			name:   "booleans",
			update: ConfigUpdate{UseLLM: &no, FallbackToRegex: &no, EnableCaching: &yes},
			check: func(t *testing.T, got Config) {
				assert.False(t, got.UseLLM)
				assert.False(t, got.FallbackToRegex)
				assert.True(t, got.EnableCaching)
				assert.Equal(t, base.Model, got.Model)
			},
		},
		{
			name:   "threshold clamped",
			update: ConfigUpdate{LLMConfidenceThreshold: &threshold},
			check: func(t *testing.T, got Config) {
				assert.InDelta(t, 0.0, got.LLMConfidenceThreshold, 0.0001)
			},
		},
		{
			name:   "empty strings ignored",
			update: ConfigUpdate{OllamaURL: &empty, Model: &empty},
			check: func(t *testing.T, got Config) {
				assert.Equal(t, base.OllamaURL, got.OllamaURL)
				assert.Equal(t, base.Model, got.Model)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, base.Apply(tt.update))
		})
	}
}

func TestConfigHolder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLMConfidenceThreshold = 3
	h := NewConfigHolder(cfg)
	assert.InDelta(t, 1.0, h.Load().LLMConfidenceThreshold, 0.0001)

	snapshot := h.Load()
	h.Update(func(c Config) Config {
		c.Model = "mistral"
		return c
	})
	assert.Equal(t, "phi", snapshot.Model, "snapshots are immutable")
	assert.Equal(t, "mistral", h.Load().Model)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Update(func(c Config) Config {
				c.LLMConfidenceThreshold -= 0.001
				return c
			})
		}()
	}
	wg.Wait()
	assert.InDelta(t, 0.9, h.Load().LLMConfidenceThreshold, 0.0001)
}
