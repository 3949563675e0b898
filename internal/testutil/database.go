// Package testutil provides shared test helpers for the cardwise packages:
// a migrated throwaway database, a scriptable Ollama server and sample SMS.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/cardwise/internal/model"
	"github.com/Veraticus/cardwise/internal/storage"
)

// TestDB wraps an in-memory store that is closed when the test ends.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	txn := db.MustSave(testutil.HDFCSpent.Parsed(), "user-1")
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustSave stores a transaction built from parsed or fails the test.
func (db *TestDB) MustSave(parsed model.ParsedSMSData, userID string) *model.SMSTransaction {
	db.t.Helper()

	txn := model.NewSMSTransaction(parsed, userID)
	if _, err := db.Storage.SaveSMSTransaction(context.Background(), txn); err != nil {
		db.t.Fatalf("failed to save transaction: %v", err)
	}
	return txn
}

// MustGet loads a transaction or fails the test.
func (db *TestDB) MustGet(id string) *model.SMSTransaction {
	db.t.Helper()

	txn, err := db.Storage.GetSMSTransaction(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load transaction %s: %v", id, err)
	}
	return txn
}
