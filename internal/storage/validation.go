// Package storage provides the data persistence layer for parsed SMS transactions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/cardwise/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidStatus      = errors.New("invalid transaction status")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSMSTransaction validates a transaction before it is stored.
func validateSMSTransaction(txn *model.SMSTransaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if strings.TrimSpace(txn.Sender) == "" {
		return fmt.Errorf("%w: missing sender", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.RawMessage) == "" {
		return fmt.Errorf("%w: missing raw message", ErrInvalidTransaction)
	}
	if txn.Amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrInvalidTransaction)
	}
	if txn.Confidence < 0 || txn.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidTransaction)
	}
	if txn.Status != "" && !txn.Status.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, txn.Status)
	}
	return nil
}

// validateStatusUpdate validates a status change.
func validateStatusUpdate(update model.TransactionStatusUpdate) error {
	if err := validateString(update.TransactionID, "transactionID"); err != nil {
		return err
	}
	if !update.Status.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, update.Status)
	}
	return validateString(update.UpdatedBy, "updatedBy")
}
