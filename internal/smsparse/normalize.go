package smsparse

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/cardwise/internal/model"
)

// UnknownMerchant is used when no merchant text survives cleanup.
const UnknownMerchant = "Unknown"

var (
	gatewayPrefix = regexp.MustCompile(`(?i)^(?:Payu|Razorpay|Stripe|Gateway|Paytm|CCAvenue|BillDesk)\*\s*`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	balanceRegex  = regexp.MustCompile(`(?i)balance[:\s]*(?:Rs\.?|INR|[₹$])?\s*(\d+(?:,\d+)*(?:\.\d+)?)`)
	txnIDRegex    = regexp.MustCompile(`(?i)(?:ref|txn|transaction)(?:\s*(?:no|id|number)\.?)?[\s#:]*([A-Z0-9]{8,})`)
)

var (
	debitKeywords    = []string{"spent", "debited", "purchase", "paid", "charged", "withdrawn"}
	creditKeywords   = []string{"credited", "received", "refund", "deposit", "added"}
	transferKeywords = []string{"transferred", "sent", "received", "moved"}
)

// AmountPlaces is the number of fractional digits amounts are kept to.
const AmountPlaces = 2

// ParseAmount converts captured amount text into a non-negative decimal
// rounded to AmountPlaces, half away from zero. Everything except digits and
// the decimal point is dropped. Malformed input reports false.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' {
			return r
		}
		return -1
	}, raw)
	cleaned = strings.Trim(cleaned, ".")
	if cleaned == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return amount.Round(AmountPlaces), true
}

// RoundAmount brings a model-supplied number onto the same scale as parsed
// amounts.
func RoundAmount(v float64) float64 {
	return decimal.NewFromFloat(v).Abs().Round(AmountPlaces).InexactFloat64()
}

// NormalizeAmount is ParseAmount as a float; malformed input yields 0.
func NormalizeAmount(raw string) float64 {
	amount, ok := ParseAmount(raw)
	if !ok {
		return 0
	}
	return amount.InexactFloat64()
}

// CleanMerchant strips payment gateway prefixes and collapses whitespace.
func CleanMerchant(raw string) string {
	merchant := strings.TrimSpace(raw)
	merchant = gatewayPrefix.ReplaceAllString(merchant, "")
	merchant = whitespaceRun.ReplaceAllString(merchant, " ")
	merchant = strings.TrimSpace(merchant)
	if merchant == "" {
		return UnknownMerchant
	}
	return merchant
}

// DetectTransactionType classifies a message by keyword. Debit keywords win
// over credit, credit over transfer; no match means debit.
func DetectTransactionType(message string) model.TransactionType {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, debitKeywords):
		return model.TransactionDebit
	case containsAny(lower, creditKeywords):
		return model.TransactionCredit
	case containsAny(lower, transferKeywords):
		return model.TransactionTransfer
	default:
		return model.TransactionDebit
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ExtractBalance finds an available balance mentioned in the message.
func ExtractBalance(message string) *float64 {
	m := balanceRegex.FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	balance := NormalizeAmount(m[1])
	return &balance
}

// ExtractTransactionID finds a reference number of at least eight characters.
func ExtractTransactionID(message string) string {
	m := txnIDRegex.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	return m[1]
}

// NormalizeDate parses raw with layout and renders it as an ISO-8601 UTC
// timestamp. Text that does not parse is returned trimmed.
func NormalizeDate(raw, layout string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || layout == "" {
		return raw
	}
	t, err := time.ParseInLocation(layout, raw, time.UTC)
	if err != nil {
		return raw
	}
	return t.UTC().Format(model.TimestampLayout)
}
