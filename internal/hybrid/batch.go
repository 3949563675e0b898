package hybrid

import (
	"context"

	"github.com/Veraticus/cardwise/internal/model"
)

// ParseMultipleSMS parses each input in order. A message that cannot be
// parsed yields a zero-confidence placeholder, so the output always has one
// entry per input.
func (p *Parser) ParseMultipleSMS(ctx context.Context, inputs []model.SMSInput) []model.ParsedSMSData {
	results := make([]model.ParsedSMSData, 0, len(inputs))
	for i, in := range inputs {
		parsed, err := p.ParseSMS(ctx, in.Message, in.Sender)
		if err != nil {
			p.logger.Warn("Batch item failed", "index", i, "sender", in.Sender, "error", err)
			parsed = p.failedResult(in)
		}
		results = append(results, parsed)
	}
	return results
}

// TestResult compares both paths on one message.
type TestResult struct {
	LLMResult      *model.LLMParsedSMS  `json:"llmResult,omitempty"`
	RegexResult    *model.ParsedSMSData `json:"regexResult,omitempty"`
	HybridResult   *model.ParsedSMSData `json:"hybridResult,omitempty"`
	LLMError       string               `json:"llmError,omitempty"`
	RegexError     string               `json:"regexError,omitempty"`
	Method         Method               `json:"method"`
	ProcessingTime int64                `json:"processingTime"`
}

// TestParse runs the LLM and regex paths independently and then the hybrid
// policy. Method reports which path the policy would pick, or "hybrid" when
// neither produced a usable result. The hybrid error is returned as is.
func (p *Parser) TestParse(ctx context.Context, message, sender string) (TestResult, error) {
	start := p.now()
	cfg := p.config.Load()
	out := TestResult{Method: MethodHybrid}

	if cfg.UseLLM {
		llmResult, err := p.parseWithLLM(ctx, message, sender)
		if err != nil {
			out.LLMError = err.Error()
		} else {
			out.LLMResult = &llmResult
			if llmResult.Confidence >= cfg.LLMConfidenceThreshold {
				out.Method = MethodLLM
			}
		}
	}

	regexResult, err := p.regex.Parse(message, sender)
	if err != nil {
		out.RegexError = err.Error()
	} else {
		out.RegexResult = &regexResult
		if out.Method != MethodLLM {
			out.Method = MethodRegex
		}
	}

	hybridResult, err := p.ParseSMS(ctx, message, sender)
	out.ProcessingTime = p.now().Sub(start).Milliseconds()
	if err != nil {
		return out, err
	}
	out.HybridResult = &hybridResult
	return out, nil
}
