// Package hybrid arbitrates between the regex and LLM SMS parsers. The LLM
// result is used when it clears the confidence threshold; otherwise the
// controller falls back to the regex catalogue when allowed to.
package hybrid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/registry"
)

// Parser is the hybrid controller. It is safe for concurrent use and is
// expected to live for the whole process.
type Parser struct {
	regex    RegexParser
	llm      LLMParser
	registry *registry.Registry
	config   *ConfigHolder
	logger   *slog.Logger
	now      func() time.Time
	stats    statsRecorder
}

// Option configures a Parser.
type Option func(*Parser)

// WithRegistry sets the catalogue used to resolve LLM bank names.
func WithRegistry(reg *registry.Registry) Option {
	return func(p *Parser) {
		p.registry = reg
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// NewParser creates a controller. llmParser may be nil, in which case every
// LLM attempt counts as a failure.
func NewParser(cfg Config, regex RegexParser, llmParser LLMParser, logger *slog.Logger, opts ...Option) (*Parser, error) {
	if regex == nil {
		return nil, fmt.Errorf("%w: regex parser is required", common.ErrMissingConfig)
	}

	p := &Parser{
		regex:    regex,
		llm:      llmParser,
		registry: registry.Default(),
		config:   NewConfigHolder(cfg),
		logger:   common.LoggerOrDefault(logger),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.llm != nil {
		p.llm.SetCaching(cfg.EnableCaching)
	}
	return p, nil
}

// ParseSMS parses one SMS. The LLM is tried first when enabled and its result
// is returned only if its confidence reaches the threshold. Otherwise the
// regex parser answers when fallback is enabled.
func (p *Parser) ParseSMS(ctx context.Context, message, sender string) (model.ParsedSMSData, error) {
	if strings.TrimSpace(message) == "" {
		return model.ParsedSMSData{}, common.InvalidInput("SMS message is required")
	}

	start := p.now()
	cfg := p.config.Load()
	requestID := common.RequestIDFrom(ctx)
	logger := p.logger.With("request_id", requestID, "sender", sender)
	logger.Debug("Hybrid parse started",
		"message", message,
		"use_llm", cfg.UseLLM,
		"threshold", cfg.LLMConfidenceThreshold)

	var (
		rec    attempt
		llmErr error
	)

	if cfg.UseLLM {
		rec.triedLLM = true
		result, err := p.parseWithLLM(ctx, message, sender)
		switch {
		case err != nil:
			llmErr = err
			rec.fellBack = true
			logger.Warn("LLM parsing failed", "error", err)
		case result.Confidence >= cfg.LLMConfidenceThreshold:
			parsed := p.convert(result, sender)
			rec.method = MethodLLM
			rec.confidence = parsed.Confidence
			rec.elapsed = p.now().Sub(start)
			p.stats.record(rec)
			logger.Info("SMS parsed",
				"method", MethodLLM,
				"confidence", parsed.Confidence,
				"duration_ms", rec.elapsed.Milliseconds())
			return parsed, nil
		default:
			rec.fellBack = true
			llmErr = fmt.Errorf("llm confidence %.2f below threshold %.2f", result.Confidence, cfg.LLMConfidenceThreshold)
			logger.Info("LLM confidence below threshold",
				"confidence", result.Confidence,
				"threshold", cfg.LLMConfidenceThreshold)
		}
	} else {
		logger.Debug("LLM parsing disabled, using regex only")
	}

	// FallbackToRegex only gates the step after an LLM attempt; with the LLM
	// disabled the regex path is the parse.
	if rec.triedLLM && !cfg.FallbackToRegex {
		rec.failed = true
		rec.elapsed = p.now().Sub(start)
		p.stats.record(rec)

		err := common.ErrNoParsingMethod
		if llmErr != nil {
			err = fmt.Errorf("%w: %w", common.ErrNoParsingMethod, llmErr)
		}
		return model.ParsedSMSData{}, common.NewAppError(common.KindUnavailable, "No parsing method available", err)
	}

	parsed, err := p.regex.Parse(message, sender)
	rec.elapsed = p.now().Sub(start)
	if err != nil {
		rec.failed = true
		p.stats.record(rec)
		logger.Info("SMS could not be parsed", "error", err, "llm_error", llmErr)
		return model.ParsedSMSData{}, err
	}

	rec.method = MethodRegex
	rec.confidence = parsed.Confidence
	p.stats.record(rec)
	logger.Info("SMS parsed",
		"method", MethodRegex,
		"pattern", parsed.Pattern,
		"confidence", parsed.Confidence,
		"duration_ms", rec.elapsed.Milliseconds())
	return parsed, nil
}

func (p *Parser) parseWithLLM(ctx context.Context, message, sender string) (model.LLMParsedSMS, error) {
	if p.llm == nil {
		return model.LLMParsedSMS{}, fmt.Errorf("%w: no llm parser configured", common.ErrLLMUnavailable)
	}
	return p.llm.ParseSMS(ctx, message, sender)
}

// Config returns the current configuration.
func (p *Parser) Config() Config {
	return p.config.Load()
}

// UpdateConfig merges u into the configuration and pushes endpoint, model
// and caching changes down to the LLM parser.
func (p *Parser) UpdateConfig(u ConfigUpdate) Config {
	next := p.config.Update(func(c Config) Config {
		return c.Apply(u)
	})

	if p.llm != nil {
		if u.OllamaURL != nil && *u.OllamaURL != "" {
			p.llm.SetOllamaURL(*u.OllamaURL)
		}
		if u.Model != nil && *u.Model != "" {
			p.llm.SetModel(*u.Model)
		}
		if u.EnableCaching != nil {
			p.llm.SetCaching(*u.EnableCaching)
		}
	}

	p.logger.Info("Hybrid parser configuration updated",
		"use_llm", next.UseLLM,
		"threshold", next.LLMConfidenceThreshold,
		"enable_caching", next.EnableCaching,
		"fallback_to_regex", next.FallbackToRegex,
		"ollama_url", next.OllamaURL,
		"model", next.Model)
	return next
}

// EnableLLM turns the LLM path on.
func (p *Parser) EnableLLM() {
	p.config.Update(func(c Config) Config {
		c.UseLLM = true
		return c
	})
	p.logger.Info("LLM parsing enabled")
}

// DisableLLM turns the LLM path off.
func (p *Parser) DisableLLM() {
	p.config.Update(func(c Config) Config {
		c.UseLLM = false
		return c
	})
	p.logger.Info("LLM parsing disabled")
}

// SetConfidenceThreshold sets the LLM acceptance threshold, clamped to [0,1].
func (p *Parser) SetConfidenceThreshold(threshold float64) float64 {
	next := p.config.Update(func(c Config) Config {
		c.LLMConfidenceThreshold = threshold
		return c
	})
	p.logger.Info("Confidence threshold updated", "threshold", next.LLMConfidenceThreshold)
	return next.LLMConfidenceThreshold
}

// ClearCache empties the LLM result cache.
func (p *Parser) ClearCache() {
	if p.llm != nil {
		p.llm.ClearCache()
	}
}

// TestConnection probes the LLM endpoint.
func (p *Parser) TestConnection(ctx context.Context) bool {
	if p.llm == nil {
		return false
	}
	return p.llm.TestConnection(ctx)
}

// Stats returns a snapshot of the controller counters.
func (p *Parser) Stats() Stats {
	s := p.stats.snapshot()
	if p.llm != nil {
		s.CacheHits = p.llm.Stats().CacheHits
	}
	return s
}

// DetailedStats returns the stats together with a live probe of the LLM
// endpoint and the models it advertises.
func (p *Parser) DetailedStats(ctx context.Context) DetailedStats {
	detail := DetailedStats{
		Config:          p.Config(),
		Stats:           p.Stats(),
		AvailableModels: []string{},
	}
	if p.llm == nil {
		return detail
	}

	detail.LLMStats = p.llm.Stats()
	detail.ConnectionStatus = p.llm.TestConnection(ctx)

	models, err := p.llm.AvailableModels(ctx)
	if err != nil {
		p.logger.Warn("Failed to list LLM models", "error", err)
		return detail
	}
	detail.AvailableModels = models
	return detail
}
