package hybrid

import (
	"context"

	"github.com/Veraticus/cardwise/internal/llm"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/smsparse"
)

var (
	_ RegexParser = (*smsparse.Parser)(nil)
	_ LLMParser   = (*llm.Parser)(nil)
	_ LLMParser   = (*MockLLMParser)(nil)
)

// RegexParser is the deterministic catalogue-driven path.
type RegexParser interface {
	Parse(message, sender string) (model.ParsedSMSData, error)
}

// LLMParser is the model-backed path together with its runtime controls.
type LLMParser interface {
	ParseSMS(ctx context.Context, message, sender string) (model.LLMParsedSMS, error)
	Stats() llm.Stats
	ClearCache()
	SetCaching(enabled bool)
	SetModel(name string)
	SetOllamaURL(url string)
	TestConnection(ctx context.Context) bool
	AvailableModels(ctx context.Context) ([]string, error)
}
