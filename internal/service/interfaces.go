// Package service defines the capability interfaces that connect the parsing
// core to persistence, rewards and notifications.
package service

import (
	"context"

	"github.com/Veraticus/cardwise/internal/model"
)

// SMSParser turns a bank SMS into a structured transaction.
type SMSParser interface {
	ParseSMS(ctx context.Context, message, sender string) (model.ParsedSMSData, error)
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	UserID string
	Status model.PaymentStatus
	Limit  int
	Offset int
}

// TransactionStore persists parsed SMS transactions.
type TransactionStore interface {
	// SaveSMSTransaction stores txn unless a transaction with the same hash
	// exists. It reports whether a new row was created and fills txn with the
	// stored values either way.
	SaveSMSTransaction(ctx context.Context, txn *model.SMSTransaction) (bool, error)
	GetSMSTransaction(ctx context.Context, id string) (*model.SMSTransaction, error)
	ListSMSTransactions(ctx context.Context, filter TransactionFilter) ([]model.SMSTransaction, error)
	UpdateTransactionStatus(ctx context.Context, update model.TransactionStatusUpdate) error
	GetStatusHistory(ctx context.Context, transactionID string) ([]model.TransactionStatusUpdate, error)
	Close() error
}

// RewardCalculator computes rewards earned or reversed by a transaction.
type RewardCalculator interface {
	Calculate(ctx context.Context, txn model.SMSTransaction) (model.RewardCalculation, error)
	Reverse(ctx context.Context, txn model.SMSTransaction) (model.RewardCalculation, error)
}

// Notifier delivers transaction notifications to users.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}
