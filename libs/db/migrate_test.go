package db

import (
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMigrationFilesSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_reviews.sql": {Data: []byte("SELECT 2")},
		"migrations/0001_init.sql":    {Data: []byte("SELECT 1")},
		"migrations/README.md":        {Data: []byte("notes")},
		"migrations/old/0000.sql":     {Data: []byte("SELECT 0")},
	}
	got, err := migrationFiles(fsys, "migrations")
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(got) != 2 || got[0] != "0001_init.sql" || got[1] != "0002_reviews.sql" {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestMigrationFilesMissingDir(t *testing.T) {
	if _, err := migrationFiles(fstest.MapFS{}, "migrations"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "appointments_active_slot_key"})
	if !HasCode(err, CodeExclusionViolation, CodeUniqueViolation) {
		t.Fatal("expected unique violation to match")
	}
	if HasCode(err, CodeForeignKey) {
		t.Fatal("foreign key code should not match")
	}
	if HasCode(errors.New("plain"), CodeUniqueViolation) {
		t.Fatal("plain error should not match")
	}
	if got := ConstraintName(err); got != "appointments_active_slot_key" {
		t.Fatalf("ConstraintName = %q", got)
	}
}
