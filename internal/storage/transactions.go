package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Actor recorded in status history for transactions created from SMS.
const createdBySMS = "sms_webhook"

const smsTransactionColumns = `id, hash, user_id, sender, raw_message, bank_code, bank_name,
	merchant, currency, card_last4, card_type, amount, transaction_type,
	transaction_date, transaction_ref, pattern, confidence, status, created_at, updated_at`

// SaveSMSTransaction stores txn unless its hash is already present. The
// stored row is copied back into txn in both cases.
func (s *SQLiteStorage) SaveSMSTransaction(ctx context.Context, txn *model.SMSTransaction) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateSMSTransaction(txn); err != nil {
		return false, err
	}

	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}
	if txn.Status == "" {
		txn.Status = model.StatusPending
	}
	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO sms_transactions (`+smsTransactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.Hash, txn.UserID, txn.Sender, txn.RawMessage, txn.BankCode, txn.BankName,
		txn.Merchant, txn.Currency, txn.CardLast4, txn.CardType, txn.Amount, string(txn.TransactionType),
		txn.TransactionDate, txn.TransactionRef, txn.Pattern, txn.Confidence, string(txn.Status),
		txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check insert result: %w", err)
	}

	if inserted == 0 {
		existing, getErr := s.getSMSTransactionTx(ctx, tx, "hash", txn.Hash)
		if getErr != nil {
			return false, getErr
		}
		*txn = *existing
		return false, nil
	}

	if err := insertHistory(ctx, tx, model.TransactionStatusUpdate{
		TransactionID: txn.ID,
		Status:        txn.Status,
		UpdatedBy:     createdBySMS,
		UpdatedAt:     now,
	}); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// GetSMSTransaction returns the transaction with the given id.
func (s *SQLiteStorage) GetSMSTransaction(ctx context.Context, id string) (*model.SMSTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getSMSTransactionTx(ctx, s.db, "id", id)
}

// GetSMSTransactionByHash returns the transaction with the given content hash.
func (s *SQLiteStorage) GetSMSTransactionByHash(ctx context.Context, hash string) (*model.SMSTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return nil, err
	}
	return s.getSMSTransactionTx(ctx, s.db, "hash", hash)
}

func (s *SQLiteStorage) getSMSTransactionTx(ctx context.Context, q queryable, column, value string) (*model.SMSTransaction, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+smsTransactionColumns+` FROM sms_transactions WHERE `+column+` = ?`, value)

	txn, err := scanSMSTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", value, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// ListSMSTransactions returns transactions newest first.
func (s *SQLiteStorage) ListSMSTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.SMSTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + smsTransactionColumns + ` FROM sms_transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.SMSTransaction
	for rows.Next() {
		txn, err := scanSMSTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransactionStatus sets a new status and appends it to the history.
// When update.From is set the row must still hold that status, otherwise
// common.ErrStatusConflict is returned and nothing changes.
func (s *SQLiteStorage) UpdateTransactionStatus(ctx context.Context, update model.TransactionStatusUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateStatusUpdate(update); err != nil {
		return err
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `UPDATE sms_transactions SET status = ?, updated_at = ? WHERE id = ?`
	args := []any{string(update.Status), update.UpdatedAt, update.TransactionID}
	if update.From != "" {
		query += ` AND status = ?`
		args = append(args, string(update.From))
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM sms_transactions WHERE id = ?`, update.TransactionID).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("transaction %s: %w", update.TransactionID, common.ErrNotFound)
		case err != nil:
			return fmt.Errorf("failed to read current status: %w", err)
		}
		return fmt.Errorf("transaction %s is %s, expected %s: %w",
			update.TransactionID, current, update.From, common.ErrStatusConflict)
	}

	if err := insertHistory(ctx, tx, update); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}
	return nil
}

// GetStatusHistory returns the status changes of a transaction, oldest first.
func (s *SQLiteStorage) GetStatusHistory(ctx context.Context, transactionID string) ([]model.TransactionStatusUpdate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, status, updated_by, notes, updated_at
		FROM transaction_status_history
		WHERE transaction_id = ?
		ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []model.TransactionStatusUpdate
	for rows.Next() {
		var (
			update model.TransactionStatusUpdate
			status string
		)
		if err := rows.Scan(&update.TransactionID, &status, &update.UpdatedBy, &update.Notes, &update.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		update.Status = model.PaymentStatus(status)
		history = append(history, update)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status history: %w", err)
	}
	return history, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, update model.TransactionStatusUpdate) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transaction_status_history (transaction_id, status, updated_by, notes, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		update.TransactionID, string(update.Status), update.UpdatedBy, update.Notes, update.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSMSTransaction(row rowScanner) (*model.SMSTransaction, error) {
	var (
		txn     model.SMSTransaction
		txnType string
		status  string
	)
	err := row.Scan(
		&txn.ID,
		&txn.Hash,
		&txn.UserID,
		&txn.Sender,
		&txn.RawMessage,
		&txn.BankCode,
		&txn.BankName,
		&txn.Merchant,
		&txn.Currency,
		&txn.CardLast4,
		&txn.CardType,
		&txn.Amount,
		&txnType,
		&txn.TransactionDate,
		&txn.TransactionRef,
		&txn.Pattern,
		&txn.Confidence,
		&status,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.TransactionType = model.TransactionType(txnType)
	txn.Status = model.PaymentStatus(status)
	return &txn, nil
}
