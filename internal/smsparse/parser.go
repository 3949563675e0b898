// Package smsparse implements the deterministic, registry-driven SMS parser.
package smsparse

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/registry"
)

// LongMessageThreshold is the length above which Validate warns.
const LongMessageThreshold = 500

// Parser extracts transactions with the bank patterns of a registry.
// It holds no mutable state and is safe for concurrent use.
type Parser struct {
	registry *registry.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the clock used for ParsedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// NewParser creates a parser over reg. A nil registry uses registry.Default().
func NewParser(reg *registry.Registry, logger *slog.Logger, opts ...Option) *Parser {
	if reg == nil {
		reg = registry.Default()
	}
	p := &Parser{
		registry: reg,
		logger:   common.LoggerOrDefault(logger),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the catalogue the parser matches against.
func (p *Parser) Registry() *registry.Registry {
	return p.registry
}

// DetectBank identifies the issuing bank, first by sender id and then by the
// bank's name or code appearing in the message.
func (p *Parser) DetectBank(message, sender string) (model.BankInfo, bool) {
	if bank, ok := p.registry.BankBySender(sender); ok {
		return bank, true
	}
	return p.registry.BankInMessage(message)
}

// ExtractTransaction applies the first matching pattern of bank to message.
func (p *Parser) ExtractTransaction(message string, bank model.BankInfo) (model.TransactionData, model.SMSPattern, error) {
	pattern, groups, ok := p.registry.MatchPattern(message, bank.Code)
	if !ok {
		return model.TransactionData{}, model.SMSPattern{}, fmt.Errorf("%w for bank %s", common.ErrPatternNotMatched, bank.Code)
	}

	f := pattern.Fields
	txn := model.TransactionData{
		Amount:          NormalizeAmount(group(groups, f.Amount)),
		Currency:        pattern.Currency,
		Merchant:        UnknownMerchant,
		CardLast4:       group(groups, f.CardLast4),
		CardType:        model.CardTypeUnknown,
		Bank:            bank.Name,
		DateTime:        NormalizeDate(group(groups, f.DateTime), pattern.DateLayout),
		TransactionType: DetectTransactionType(message),
		Balance:         ExtractBalance(message),
		TransactionID:   ExtractTransactionID(message),
	}
	if f.Merchant > 0 {
		txn.Merchant = CleanMerchant(group(groups, f.Merchant))
	}
	if cardType := strings.TrimSpace(group(groups, f.CardType)); cardType != "" {
		txn.CardType = strings.ToUpper(cardType)
	}

	return txn, pattern, nil
}

func group(groups []string, idx int) string {
	if idx <= 0 || idx >= len(groups) {
		return ""
	}
	return groups[idx]
}

// Parse detects the bank and extracts the transaction. Failures are
// classified as extraction errors so callers can tell them from faults.
func (p *Parser) Parse(message, sender string) (model.ParsedSMSData, error) {
	if strings.TrimSpace(message) == "" {
		return model.ParsedSMSData{}, common.InvalidInput("SMS message is required")
	}

	p.logger.Debug("Parsing SMS with bank patterns", "sender", sender, "length", len(message))

	bank, ok := p.DetectBank(message, sender)
	if !ok {
		return model.ParsedSMSData{}, common.NewAppError(common.KindExtraction,
			"Unable to detect bank from SMS", common.ErrBankNotDetected)
	}

	txn, pattern, err := p.ExtractTransaction(message, bank)
	if err != nil {
		return model.ParsedSMSData{}, common.NewAppError(common.KindExtraction,
			"Unable to extract transaction data from SMS", err)
	}

	result := model.ParsedSMSData{
		Bank:        bank,
		Transaction: txn,
		RawMessage:  message,
		Sender:      sender,
		ParsedAt:    p.now().UTC().Format(model.TimestampLayout),
		Confidence:  pattern.Confidence * bank.Confidence,
		Pattern:     pattern.ID,
	}

	p.logger.Debug("SMS parsed with bank pattern",
		"bank", bank.Code,
		"pattern", pattern.ID,
		"amount", txn.Amount,
		"confidence", result.Confidence)

	return result, nil
}

// Validate reports every problem that would stop Parse, plus warnings.
func (p *Parser) Validate(message, sender string) model.ValidationResult {
	result := model.ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	if strings.TrimSpace(message) == "" {
		result.Errors = append(result.Errors, "SMS message is required")
	}
	if strings.TrimSpace(sender) == "" {
		result.Errors = append(result.Errors, "Sender is required")
	}
	if len(message) > LongMessageThreshold {
		result.Warnings = append(result.Warnings, "SMS message is unusually long")
	}
	if len(result.Errors) > 0 {
		return result
	}

	bank, ok := p.DetectBank(message, sender)
	if !ok {
		result.Errors = append(result.Errors, "Unable to detect bank from SMS")
		return result
	}
	result.DetectedBank = &bank

	txn, _, err := p.ExtractTransaction(message, bank)
	if err != nil {
		result.Errors = append(result.Errors, "Unable to extract transaction data from SMS")
		return result
	}
	result.DetectedTransaction = &txn
	result.IsValid = true

	return result
}

// PatternTestResult is the outcome of matching one pattern against a message.
type PatternTestResult struct {
	PatternID   string   `json:"patternId"`
	PatternName string   `json:"patternName"`
	Example     string   `json:"example"`
	Match       []string `json:"match"`
	Confidence  float64  `json:"confidence"`
	IsValid     bool     `json:"isValid"`
}

// TestPattern runs a single pattern against message and returns its captures.
func (p *Parser) TestPattern(message, patternID string) (PatternTestResult, error) {
	if strings.TrimSpace(message) == "" || strings.TrimSpace(patternID) == "" {
		return PatternTestResult{}, common.InvalidInput("Message and patternId are required")
	}

	pattern, ok := p.registry.Pattern(patternID)
	if !ok {
		return PatternTestResult{}, common.NewAppError(common.KindNotFound,
			fmt.Sprintf("Pattern %s not found", patternID), common.ErrNotFound)
	}

	match := p.registry.Regexp(pattern.ID).FindStringSubmatch(message)
	return PatternTestResult{
		PatternID:   pattern.ID,
		PatternName: pattern.Name,
		Example:     pattern.Example,
		Match:       match,
		Confidence:  pattern.Confidence,
		IsValid:     match != nil,
	}, nil
}

// ParsingStats summarizes the catalogue.
type ParsingStats struct {
	LastUpdated        string          `json:"lastUpdated"`
	SupportedCountries []model.Country `json:"supportedCountries"`
	TotalPatterns      int             `json:"totalPatterns"`
	TotalBanks         int             `json:"totalBanks"`
}

// Stats returns static counts for the catalogue.
func (p *Parser) Stats() ParsingStats {
	return ParsingStats{
		TotalPatterns:      len(p.registry.Patterns()),
		TotalBanks:         len(p.registry.Banks()),
		SupportedCountries: p.registry.Countries(),
		LastUpdated:        p.now().UTC().Format(model.TimestampLayout),
	}
}

// SupportedBanks lists the catalogue banks.
func (p *Parser) SupportedBanks() []model.BankInfo {
	return p.registry.Banks()
}

// SupportedPatterns lists the catalogue patterns.
func (p *Parser) SupportedPatterns() []model.SMSPattern {
	return p.registry.Patterns()
}
