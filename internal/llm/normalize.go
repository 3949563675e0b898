package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/registry"
	"github.com/Veraticus/cardwise/internal/smsparse"
)

var (
	corporateSuffix = regexp.MustCompile(`(?i)\s+(?:Bank|Ltd\.?|Limited|Corp\.?|Corporation)$`)
	trailingDigits  = regexp.MustCompile(`(\d{4})$`)
)

// customDateLayout is the "YYYY-MM-DD:HH:MM:SS" form used in HDFC alerts.
const customDateLayout = "2006-01-02:15:04:05"

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var plainLayouts = []string{
	customDateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// llmFields is the object the model is asked to produce. Values are decoded
// loosely because models mix strings and numbers freely.
type llmFields struct {
	Bank            any `json:"bank"`
	Amount          any `json:"amount"`
	Currency        any `json:"currency"`
	Merchant        any `json:"merchant"`
	CardLast4       any `json:"cardLast4"`
	TransactionType any `json:"transactionType"`
	DateTime        any `json:"dateTime"`
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// cleanBankName strips a corporate suffix and resolves the name through the
// registry so both parsing paths report the same display names.
func cleanBankName(reg *registry.Registry, raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" || strings.EqualFold(name, model.UnknownBankName) {
		return model.UnknownBankName
	}

	if bank, ok := reg.LookupName(name); ok {
		return bank.Name
	}
	stripped := strings.TrimSpace(corporateSuffix.ReplaceAllString(name, ""))
	if bank, ok := reg.LookupName(stripped); ok {
		return bank.Name
	}
	if stripped == "" {
		return name
	}
	return stripped
}

// coerceAmount turns a JSON number or numeric text into a non-negative amount.
func coerceAmount(v any) float64 {
	switch val := v.(type) {
	case float64:
		return smsparse.RoundAmount(val)
	case string:
		return smsparse.NormalizeAmount(val)
	default:
		return 0
	}
}

// cleanMerchantName drops gateway prefixes; missing names become "Unknown".
func cleanMerchantName(raw string) string {
	return smsparse.CleanMerchant(raw)
}

// extractCardDigits returns the trailing four digits of s, or "".
func extractCardDigits(s string) string {
	m := trailingDigits.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ""
	}
	return m[1]
}

// validateTransactionType recognizes "credit"; anything else is a debit.
func validateTransactionType(raw string) model.TransactionType {
	if strings.EqualFold(strings.TrimSpace(raw), string(model.TransactionCredit)) {
		return model.TransactionCredit
	}
	return model.TransactionDebit
}

// parseDateTime accepts ISO-8601 and the custom HDFC layout, falling back to
// now when the text cannot be read.
func parseDateTime(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		layouts := plainLayouts
		if strings.Contains(raw, "T") {
			layouts = isoLayouts
		}
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
				return t.UTC().Format(model.TimestampLayout)
			}
		}
	}
	return now.UTC().Format(model.TimestampLayout)
}
