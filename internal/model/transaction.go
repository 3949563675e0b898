package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// SMSTransaction is a parsed SMS persisted by the webhook ingestion flow.
type SMSTransaction struct {
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	ID              string          `json:"id"`
	UserID          string          `json:"userId,omitempty"`
	Hash            string          `json:"hash"`
	Sender          string          `json:"sender"`
	RawMessage      string          `json:"rawMessage"`
	BankCode        string          `json:"bankCode"`
	BankName        string          `json:"bankName"`
	Merchant        string          `json:"merchant"`
	Currency        string          `json:"currency"`
	CardLast4       string          `json:"cardLast4"`
	CardType        string          `json:"cardType"`
	TransactionDate string          `json:"transactionDate"`
	TransactionRef  string          `json:"transactionRef,omitempty"`
	Pattern         string          `json:"pattern"`
	TransactionType TransactionType `json:"transactionType"`
	Status          PaymentStatus   `json:"status"`
	Amount          float64         `json:"amount"`
	Confidence      float64         `json:"confidence"`
}

// NewSMSTransaction builds a pending stored transaction from a parse result.
// ID is left empty for the store to assign.
func NewSMSTransaction(parsed ParsedSMSData, userID string) *SMSTransaction {
	txn := &SMSTransaction{
		UserID:          userID,
		Sender:          parsed.Sender,
		RawMessage:      parsed.RawMessage,
		BankCode:        parsed.Bank.Code,
		BankName:        parsed.Transaction.Bank,
		Merchant:        parsed.Transaction.Merchant,
		Currency:        parsed.Transaction.Currency,
		CardLast4:       parsed.Transaction.CardLast4,
		CardType:        parsed.Transaction.CardType,
		TransactionDate: parsed.Transaction.DateTime,
		TransactionRef:  parsed.Transaction.TransactionID,
		Pattern:         parsed.Pattern,
		TransactionType: parsed.Transaction.TransactionType,
		Status:          StatusPending,
		Amount:          parsed.Transaction.Amount,
		Confidence:      parsed.Confidence,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

// GenerateHash creates a unique hash for duplicate detection. Two deliveries
// of the same SMS differing only in case or whitespace hash identically.
func (t *SMSTransaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s",
		strings.ToUpper(strings.TrimSpace(t.Sender)),
		NormalizeMessage(t.RawMessage))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// NormalizeMessage lowercases msg and drops all whitespace.
func NormalizeMessage(msg string) string {
	var b strings.Builder
	b.Grow(len(msg))
	for _, r := range msg {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
