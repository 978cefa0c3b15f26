package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db_test.db")
	conn, err := Open("sqlite://" + path)
	if err != nil {
		t.Fatalf("Open() error = %v, want nil", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestOpen_RejectsUnknownScheme(t *testing.T) {
	if _, err := Open("mysql://localhost/db"); err == nil {
		t.Fatal("Open(mysql://) error = nil, want error")
	}
	if _, err := Open("://bad"); err == nil {
		t.Fatal("Open(malformed) error = nil, want error")
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	conn := openTestDB(t)

	if err := MigrateUp(conn); err != nil {
		t.Fatalf("MigrateUp() error = %v, want nil", err)
	}
	// A second run must be a no-op, not a failure.
	if err := MigrateUp(conn); err != nil {
		t.Fatalf("MigrateUp() second run error = %v, want nil", err)
	}

	statuses, err := MigrateStatus(conn)
	if err != nil {
		t.Fatalf("MigrateStatus() error = %v, want nil", err)
	}
	if len(statuses) == 0 {
		t.Fatal("MigrateStatus() returned no migrations")
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %s not applied", s.ID)
		}
		if s.AppliedAt == nil {
			t.Errorf("migration %s has no applied_at", s.ID)
		}
	}
}

func TestMigrateUp_ChecksumGuard(t *testing.T) {
	conn := openTestDB(t)

	if err := MigrateUp(conn); err != nil {
		t.Fatalf("MigrateUp() error = %v, want nil", err)
	}

	// Tamper with a recorded checksum: the next run must refuse.
	if _, err := conn.Exec("UPDATE migrations SET checksum = 'tampered'"); err != nil {
		t.Fatalf("fixture update error = %v, want nil", err)
	}
	err := MigrateUp(conn)
	if err == nil {
		t.Fatal("MigrateUp() after tamper error = nil, want checksum error")
	}
	if !strings.Contains(err.Error(), "checksum") {
		t.Errorf("error = %v, want mention of checksum", err)
	}
}

func TestLoadQueries_KnowsNamedQueries(t *testing.T) {
	conn := openTestDB(t)
	if err := MigrateUp(conn); err != nil {
		t.Fatalf("MigrateUp() error = %v, want nil", err)
	}

	q, err := LoadQueries(conn)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v, want nil", err)
	}
	ctx := context.Background()

	// A known name runs against the migrated schema.
	if _, err := q.Exec(ctx, "delete-cached-results", "nobody"); err != nil {
		t.Errorf("Exec(delete-cached-results) error = %v, want nil", err)
	}

	// An unknown name reports which query was missing.
	_, err = q.Exec(ctx, "no-such-query")
	if err == nil || !strings.Contains(err.Error(), "no-such-query") {
		t.Errorf("Exec(no-such-query) error = %v, want named not-found error", err)
	}
}
