package store

import (
	"path/filepath"
	"testing"

	"github.com/ralphcore/ralph/internal/config"
)

func TestNewDefaultsToSQLiteWhenDriverUnset(t *testing.T) {
	db, err := New(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "db.sqlite")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()
	if db.Driver() != "sqlite" {
		t.Fatalf("Driver() = %q, want sqlite", db.Driver())
	}
}

func TestNewRejectsUnsupportedDriver(t *testing.T) {
	if _, err := New(config.DatabaseConfig{Driver: "postgres"}); err == nil {
		t.Fatalf("expected an error for an unsupported driver")
	}
}
