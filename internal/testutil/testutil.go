// Package testutil provides shared test helpers for setting up the
// durable substrate and the service stack.
package testutil

import (
	"os"
	"testing"

	"shelf/internal/persist"
	"shelf/internal/store"
	"shelf/internal/vaultservice"
)

// TestDB creates a temporary SQLite database that is automatically
// cleaned up.
func TestDB(t *testing.T) *persist.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "shelf-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := persist.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService builds a service over a fresh store and temporary
// database, without events or an export directory.
func TestService(t *testing.T) *vaultservice.Service {
	t.Helper()
	return vaultservice.NewService(store.New(), TestDB(t), nil, nil)
}
