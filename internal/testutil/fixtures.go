package testutil

import (
	"github.com/Veraticus/cardwise/internal/model"
)

// SMSFixture is a known alert together with the fields it should yield.
type SMSFixture struct {
	Message   string
	Sender    string
	BankCode  string
	BankName  string
	Merchant  string
	CardLast4 string
	Currency  string
	Amount    float64
}

// Parsed returns the ParsedSMSData a regex parse of the fixture produces.
func (f SMSFixture) Parsed() model.ParsedSMSData {
	return model.ParsedSMSData{
		Bank: model.BankInfo{Name: f.BankName, Code: f.BankCode, Confidence: 0.95},
		Transaction: model.TransactionData{
			Amount:          f.Amount,
			Currency:        f.Currency,
			Merchant:        f.Merchant,
			CardLast4:       f.CardLast4,
			CardType:        model.CardTypeUnknown,
			Bank:            f.BankName,
			TransactionType: model.TransactionDebit,
		},
		RawMessage: f.Message,
		Sender:     f.Sender,
		Pattern:    "fixture",
		Confidence: 0.9,
	}
}

// Sample alerts.
var (
	HDFCSpent = SMSFixture{
		Message:   "Spent Rs.799 On HDFC Bank Card 0088 At Payu*Swiggy Food On 2025-07-30:19:56:11.Not You? To Block+Reissue Call 18002586161",
		Sender:    "VM-HDFCBK",
		BankCode:  "HDFC",
		BankName:  "HDFC Bank",
		Merchant:  "Swiggy Food",
		CardLast4: "0088",
		Currency:  "INR",
		Amount:    799,
	}

	SBIStandard = SMSFixture{
		Message:   "SBI: Rs.2,500 spent on MASTERCARD ending 5678 at FLIPKART on 16/12/2024",
		Sender:    "SBIINB",
		BankCode:  "SBI",
		BankName:  "State Bank of India",
		Merchant:  "FLIPKART",
		CardLast4: "5678",
		Currency:  "INR",
		Amount:    2500,
	}

	ChaseStandard = SMSFixture{
		Message:   "Chase: $45.67 spent on VISA card ending 3456 at STARBUCKS on 12/18/2024",
		Sender:    "CHASE",
		BankCode:  "CHASE",
		BankName:  "Chase Bank",
		Merchant:  "STARBUCKS",
		CardLast4: "3456",
		Currency:  "USD",
		Amount:    45.67,
	}

	// Unrecognized has no bank name, code or known sender.
	Unrecognized = SMSFixture{
		Message: "Your OTP for login is 482913. Do not share it with anyone.",
		Sender:  "VM-NOTIFY",
	}
)
