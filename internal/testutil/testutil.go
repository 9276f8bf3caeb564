// Package testutil provides shared test helpers for setting up databases and object stores.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/mynotes/internal/notedb"
	"github.com/starford/mynotes/internal/storage"
)

// ObjectPrefix is the URL prefix test stores resolve object keys under.
const ObjectPrefix = "/objects/"

// TestDB creates a temporary SQLite note database that is automatically cleaned up.
func TestDB(t *testing.T) *notedb.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "mynotes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := notedb.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary object directory with a storage.FS.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, ObjectPrefix)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
