// Package model defines the data types shared by the SMS parsers, storage and API.
package model

// Country is the market a bank issues cards in.
type Country string

// Supported countries.
const (
	CountryIN Country = "IN"
	CountryUS Country = "US"
)

// UnknownBankCode is the code used when a bank cannot be resolved.
const UnknownBankCode = "UNKNOWN"

// UnknownBankName is the display name used when a bank cannot be resolved.
const UnknownBankName = "Unknown"

// BankInfo describes a card issuer and how its SMS senders are recognized.
// Values are loaded once from the registry and never mutated.
type BankInfo struct {
	Name       string   `json:"name"`
	Code       string   `json:"code"`
	Country    Country  `json:"country"`
	SenderIDs  []string `json:"senderIds"`
	Aliases    []string `json:"aliases,omitempty"`
	Confidence float64  `json:"confidence"`
}

// UnknownBank returns the placeholder used for unresolved banks.
func UnknownBank() BankInfo {
	return BankInfo{
		Name:       UnknownBankName,
		Code:       UnknownBankCode,
		Country:    CountryIN,
		SenderIDs:  []string{UnknownBankCode},
		Confidence: 0,
	}
}

// CountryForCurrency guesses the issuing country from a currency code.
func CountryForCurrency(currency string) Country {
	if currency == "INR" {
		return CountryIN
	}
	return CountryUS
}
