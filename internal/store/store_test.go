package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ralphcore/ralph/internal/config"
)

func newTestDB(t *testing.T) DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "store-test.db")
	db, err := NewSQLite(config.DatabaseConfig{Path: dbPath})
	if err != nil {
		t.Fatalf("new sqlite db: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
