package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// openTestDB opens a throwaway database under t.TempDir.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "offgrid.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		rel  string
	}{
		{"flat", "offgrid.db"},
		{"nested directory", filepath.Join("var", "lib", "offgrid", "offgrid.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.rel)
			db, err := Open(context.Background(), Config{Path: path, WALMode: true, BusyTimeout: 1})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer db.Close() //nolint:errcheck // Test cleanup

			if _, err := os.Stat(path); err != nil {
				t.Errorf("database file: %v", err)
			}
			if db.Path() != path {
				t.Errorf("Path() = %q, want %q", db.Path(), path)
			}
		})
	}
}

func TestOpen_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(context.Background(), Config{Path: filepath.Join(blocker, "offgrid.db")}); err == nil {
		t.Fatal("Open() under a regular file succeeded, want error")
	}
}

func TestOpen_Pragmas(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var journal string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if !strings.EqualFold(journal, "wal") {
		t.Errorf("journal_mode = %q, want wal", journal)
	}

	var fk int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	var busy int
	if err := db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if busy != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", busy)
	}

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Path: "/var/lib/offgrid/offgrid.db", WALMode: true, BusyTimeout: 5}
	want := "file:/var/lib/offgrid/offgrid.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	cfg.WALMode = false
	if got := cfg.DSN(); strings.Contains(got, "journal_mode") {
		t.Errorf("DSN() without WAL = %q", got)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────

func TestHealthCheck_AfterClose(t *testing.T) {
	db, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "offgrid.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() on open database = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close() = nil, want error")
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil handle = %v", err)
	}
}

func TestExecContext_WrapsErrors(t *testing.T) {
	db := openTestDB(t)

	_, err := db.ExecContext(context.Background(), "INSERT INTO missing_table VALUES (1)")
	if err == nil || !strings.HasPrefix(err.Error(), "executing query:") {
		t.Errorf("ExecContext() error = %v, want executing query prefix", err)
	}
}

func TestBeginTx(t *testing.T) {
	tests := []struct {
		name      string
		commit    bool
		wantCount int
	}{
		{"commit keeps entry", true, 1},
		{"rollback drops entry", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTestDB(t)
			ctx := context.Background()

			if _, err := db.ExecContext(ctx, "CREATE TABLE entries (id TEXT PRIMARY KEY, description TEXT NOT NULL)"); err != nil {
				t.Fatalf("CREATE TABLE: %v", err)
			}

			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("BeginTx() error = %v", err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO entries VALUES (?, ?)", "e1", "Check battery terminals"); err != nil {
				t.Fatalf("INSERT: %v", err)
			}

			if tt.commit {
				err = tx.Commit()
			} else {
				err = tx.Rollback()
			}
			if err != nil {
				t.Fatalf("finish tx: %v", err)
			}

			var count int
			if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
				t.Fatalf("SELECT: %v", err)
			}
			if count != tt.wantCount {
				t.Errorf("rows = %d, want %d", count, tt.wantCount)
			}
		})
	}
}
