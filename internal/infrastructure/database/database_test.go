package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "hwcore.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesFileAndDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state", "db", "hwcore.db")

	db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file missing after Open(): %v", err)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestCloseIsNilSafe(t *testing.T) {
	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "hwcore.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() after close error = %v", err)
	}
}

func TestControlCacheRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE control_values (
			device_id TEXT NOT NULL,
			control TEXT NOT NULL,
			value INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (device_id, control)
		)
	`)
	if err != nil {
		t.Fatalf("creating control_values: %v", err)
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO control_values (device_id, control, value, updated_at) VALUES (?, ?, ?, ?)",
		"camera0", "gain", 256, "2026-08-20T10:00:00Z")
	if err != nil {
		t.Fatalf("inserting control value: %v", err)
	}

	var value int
	err = db.QueryRowContext(ctx,
		"SELECT value FROM control_values WHERE device_id = ? AND control = ?",
		"camera0", "gain").Scan(&value)
	if err != nil {
		t.Fatalf("reading control value: %v", err)
	}
	if value != 256 {
		t.Errorf("value = %d, want 256", value)
	}
}

func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx,
		"CREATE TABLE probe_results (device_id TEXT, chip_id TEXT)"); err != nil {
		t.Fatalf("creating table: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO probe_results VALUES (?, ?)", "camera0", "0x2710"); err != nil {
		t.Fatalf("insert in transaction: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM probe_results").Scan(&n); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if n != 0 {
		t.Errorf("rows after rollback = %d, want 0", n)
	}
}
