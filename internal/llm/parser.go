package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/registry"
)

// Config holds configuration for the LLM parser.
type Config struct {
	OllamaURL         string
	Model             string
	Stop              []string
	Timeout           time.Duration
	RetryDelay        time.Duration
	CacheTTL          time.Duration
	Temperature       float64
	TopP              float64
	NumPredict        int
	NumCtx            int
	CacheSize         int
	RateLimit         int
	MaxRetries        int
	EnableCaching     bool
	HeuristicFallback bool
}

// DefaultConfig returns the settings used for a local Ollama install.
func DefaultConfig() Config {
	return Config{
		OllamaURL:     "http://localhost:11434",
		Model:         "phi",
		Stop:          defaultStop,
		Timeout:       60 * time.Second,
		RetryDelay:    500 * time.Millisecond,
		CacheTTL:      24 * time.Hour,
		Temperature:   0.1,
		TopP:          0.9,
		NumPredict:    150,
		NumCtx:        2048,
		CacheSize:     1000,
		RateLimit:     120,
		MaxRetries:    1,
		EnableCaching: true,
	}
}

// Parser extracts transactions from SMS text with a language model.
// It is safe for concurrent use.
type Parser struct {
	client            Client
	scorer            ConfidenceScorer
	cache             *resultCache
	registry          *registry.Registry
	logger            *slog.Logger
	now               func() time.Time
	stats             statsRecorder
	model             string
	options           GenerateOptions
	mu                sync.RWMutex
	caching           atomic.Bool
	heuristicFallback bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithClient replaces the Ollama client, mostly for tests.
func WithClient(client Client) Option {
	return func(p *Parser) {
		p.client = client
	}
}

// WithScorer replaces the confidence scorer.
func WithScorer(scorer ConfidenceScorer) Option {
	return func(p *Parser) {
		p.scorer = scorer
	}
}

// WithRegistry sets the catalogue used to canonicalize bank names.
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

// NewParser creates a new LLM-based SMS parser.
func NewParser(cfg Config, logger *slog.Logger, opts ...Option) (*Parser, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: llm model is required", common.ErrMissingConfig)
	}

	stop := cfg.Stop
	if stop == nil {
		stop = defaultStop
	}

	p := &Parser{
		scorer:            DefaultScorer(),
		cache:             newResultCache(cfg.CacheSize, cfg.CacheTTL),
		registry:          registry.Default(),
		logger:            common.LoggerOrDefault(logger),
		now:               time.Now,
		model:             cfg.Model,
		heuristicFallback: cfg.HeuristicFallback,
		options: GenerateOptions{
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			NumPredict:  cfg.NumPredict,
			NumCtx:      cfg.NumCtx,
			Stop:        stop,
		},
	}
	p.caching.Store(cfg.EnableCaching)

	for _, opt := range opts {
		opt(p)
	}
	p.cache.now = p.now

	if p.client == nil {
		client, err := NewOllamaClient(cfg, p.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		p.client = client
	}

	return p, nil
}

// ParseSMS extracts a transaction from message. Fresh results are cached by
// normalized (sender, message). Endpoint and format failures are returned
// unless the parser was built with HeuristicFallback.
func (p *Parser) ParseSMS(ctx context.Context, message, sender string) (model.LLMParsedSMS, error) {
	if strings.TrimSpace(message) == "" {
		return model.LLMParsedSMS{}, common.InvalidInput("SMS message is required")
	}

	start := p.now()
	key := cacheKey(sender, message)

	if p.caching.Load() {
		if cached, ok := p.cache.get(key); ok {
			p.stats.record(outcomeCacheHit, p.now().Sub(start), cached.Confidence)
			p.logger.Debug("LLM parse served from cache", "sender", sender)
			return cached, nil
		}
	}

	result, err := p.parseWithModel(ctx, message, sender)
	if err != nil {
		if p.heuristicFallback {
			p.logger.Warn("LLM parse failed, using heuristic fallback", "sender", sender, "error", err)
			fallback := HeuristicParse(message, sender, p.registry, p.now())
			fallback.ProcessingTime = p.now().Sub(start).Milliseconds()
			p.stats.record(outcomeFallback, p.now().Sub(start), fallback.Confidence)
			return fallback, nil
		}
		p.stats.record(outcomeFailure, p.now().Sub(start), 0)
		return model.LLMParsedSMS{}, err
	}

	elapsed := p.now().Sub(start)
	result.ProcessingTime = elapsed.Milliseconds()
	if p.caching.Load() {
		p.cache.set(key, result)
	}
	p.stats.record(outcomeSuccess, elapsed, result.Confidence)

	p.logger.Debug("LLM parse completed",
		"sender", sender,
		"bank", result.Bank,
		"confidence", result.Confidence,
		"duration_ms", result.ProcessingTime)

	return result, nil
}

func (p *Parser) parseWithModel(ctx context.Context, message, sender string) (model.LLMParsedSMS, error) {
	p.mu.RLock()
	modelName, options := p.model, p.options
	p.mu.RUnlock()

	resp, err := p.client.Generate(ctx, GenerateRequest{
		Model:   modelName,
		Prompt:  buildPrompt(message, sender),
		Options: options,
	})
	if err != nil {
		return model.LLMParsedSMS{}, fmt.Errorf("llm generate: %w", err)
	}
	p.logger.Debug("LLM raw response", "response", resp.Response)

	raw, err := extractJSON(resp.Response)
	if err != nil {
		return model.LLMParsedSMS{}, err
	}

	var fields llmFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.LLMParsedSMS{}, fmt.Errorf("%w: %w", common.ErrLLMResponseFormat, err)
	}

	if resp.Model != "" {
		modelName = resp.Model
	}
	return p.normalize(fields, message, modelName), nil
}

func (p *Parser) normalize(f llmFields, message, modelName string) model.LLMParsedSMS {
	rawType := asString(f.TransactionType)
	rawCurrency := asString(f.Currency)

	result := model.LLMParsedSMS{
		Bank:            cleanBankName(p.registry, asString(f.Bank)),
		Amount:          coerceAmount(f.Amount),
		Currency:        strings.ToUpper(rawCurrency),
		Merchant:        cleanMerchantName(asString(f.Merchant)),
		CardLast4:       extractCardDigits(asString(f.CardLast4)),
		TransactionType: validateTransactionType(rawType),
		DateTime:        parseDateTime(asString(f.DateTime), p.now()),
		RawMessage:      message,
		Model:           modelName,
	}
	if result.Currency == "" {
		result.Currency = "INR"
	}

	result.Confidence = p.scorer.Score(ScoreInput{
		Bank:               result.Bank,
		Amount:             result.Amount,
		Merchant:           result.Merchant,
		CardLast4:          result.CardLast4,
		HasTransactionType: rawType != "",
		HasCurrency:        rawCurrency != "",
	})

	return result
}

// Stats returns a snapshot of the running counters.
func (p *Parser) Stats() Stats {
	s := p.stats.snapshot()
	s.CacheSize = p.cache.size()
	return s
}

// ClearCache drops every cached result.
func (p *Parser) ClearCache() {
	p.cache.clear()
	p.logger.Info("LLM parse cache cleared")
}

// SetCaching turns result caching on or off.
func (p *Parser) SetCaching(enabled bool) {
	p.caching.Store(enabled)
}

// Model returns the model requests are sent to.
func (p *Parser) Model() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

// SetModel changes the model used for subsequent requests.
func (p *Parser) SetModel(name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	p.mu.Lock()
	p.model = name
	p.mu.Unlock()
	p.logger.Info("LLM model updated", "model", name)
}

// SetOllamaURL repoints the client when it supports it.
func (p *Parser) SetOllamaURL(url string) {
	setter, ok := p.client.(interface{ SetBaseURL(string) })
	if !ok || strings.TrimSpace(url) == "" {
		return
	}
	setter.SetBaseURL(url)
	p.logger.Info("LLM endpoint updated", "url", url)
}

// TestConnection reports whether the endpoint answers a model listing.
func (p *Parser) TestConnection(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	if err != nil {
		p.logger.Warn("LLM connection test failed", "error", err)
		return false
	}
	return true
}

// AvailableModels lists the model names advertised by the endpoint.
func (p *Parser) AvailableModels(ctx context.Context) ([]string, error) {
	models, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names, nil
}
