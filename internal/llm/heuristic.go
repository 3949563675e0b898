package llm

import (
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/registry"
	"github.com/Veraticus/cardwise/internal/smsparse"
)

// HeuristicModel is the Model reported by HeuristicParse results.
const HeuristicModel = "regex-fallback"

// HeuristicConfidence is the fixed confidence of HeuristicParse results.
const HeuristicConfidence = 0.6

var (
	heuristicAmount   = regexp.MustCompile(`(?i)(?:Rs\.?|INR|₹|\$)\s*(\d+(?:,\d+)*(?:\.\d+)?)`)
	heuristicMerchant = regexp.MustCompile(`(?i)\bAt\s+(.+?)(?:\s+On\b|\.\s|\s*$)`)
	heuristicCard     = regexp.MustCompile(`(?i)Card\s+(?:ending\s+(?:in\s+)?)?[X*]*(\d{4})`)
)

// HeuristicParse pulls the obvious fields out of an SMS without a model.
// The bank comes from the sender id only.
func HeuristicParse(message, sender string, reg *registry.Registry, now time.Time) model.LLMParsedSMS {
	if reg == nil {
		reg = registry.Default()
	}

	result := model.LLMParsedSMS{
		Bank:            model.UnknownBankName,
		Currency:        "INR",
		Merchant:        smsparse.UnknownMerchant,
		TransactionType: smsparse.DetectTransactionType(message),
		DateTime:        now.UTC().Format(model.TimestampLayout),
		RawMessage:      message,
		Model:           HeuristicModel,
		Confidence:      HeuristicConfidence,
	}

	if bank, ok := reg.BankBySender(sender); ok {
		result.Bank = bank.Name
		if bank.Country == model.CountryUS {
			result.Currency = "USD"
		}
	}
	if m := heuristicAmount.FindStringSubmatch(message); m != nil {
		result.Amount = smsparse.NormalizeAmount(m[1])
		if strings.HasPrefix(m[0], "$") {
			result.Currency = "USD"
		}
	}
	if m := heuristicMerchant.FindStringSubmatch(message); m != nil {
		result.Merchant = smsparse.CleanMerchant(m[1])
	}
	if m := heuristicCard.FindStringSubmatch(message); m != nil {
		result.CardLast4 = m[1]
	}

	return result
}
