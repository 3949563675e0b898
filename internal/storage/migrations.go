package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial SMS transaction schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS sms_transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					user_id TEXT NOT NULL DEFAULT '',
					sender TEXT NOT NULL,
					raw_message TEXT NOT NULL,
					bank_code TEXT NOT NULL,
					bank_name TEXT NOT NULL,
					merchant TEXT NOT NULL,
					currency TEXT NOT NULL,
					card_last4 TEXT NOT NULL DEFAULT '',
					card_type TEXT NOT NULL DEFAULT '',
					amount REAL NOT NULL,
					transaction_type TEXT NOT NULL,
					transaction_date TEXT NOT NULL DEFAULT '',
					pattern TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'pending',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_sms_transactions_user ON sms_transactions(user_id)`,
				`CREATE INDEX IF NOT EXISTS idx_sms_transactions_created ON sms_transactions(created_at)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add status history for payment webhooks",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS transaction_status_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL,
					status TEXT NOT NULL,
					updated_by TEXT NOT NULL,
					notes TEXT NOT NULL DEFAULT '',
					updated_at DATETIME NOT NULL,
					FOREIGN KEY (transaction_id) REFERENCES sms_transactions(id)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_status_history_transaction ON transaction_status_history(transaction_id)`,
				`CREATE INDEX IF NOT EXISTS idx_sms_transactions_status ON sms_transactions(status)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Store bank reference numbers",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`ALTER TABLE sms_transactions ADD COLUMN transaction_ref TEXT NOT NULL DEFAULT ''`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Migrate runs all pending migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the applied schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
